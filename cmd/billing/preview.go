package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jhoicas/Vigilancia-api/internal/application/billing"
	"github.com/jhoicas/Vigilancia-api/pkg/money"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Previsualiza las facturas candidatas del período",
	Example: `  billing preview --month 3 --year 2025
  billing preview --month 3 --year 2025 --include-empty`,
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	addPeriodFlags(previewCmd)
	previewCmd.Flags().Bool("include-empty", false, "incluir clientes sin sitios pendientes")
}

func runPreview(cmd *cobra.Command, _ []string) error {
	period, err := periodFromFlags(cmd)
	if err != nil {
		return err
	}
	includeEmpty, _ := cmd.Flags().GetBool("include-empty")

	eng, err := newEngine(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	pp, err := eng.preview.PreviewPeriod(cmd.Context(), period, includeEmpty)
	if err != nil {
		return err
	}
	printPreview(cmd, pp, eng.formatter)
	return nil
}

func printPreview(cmd *cobra.Command, pp *billing.PeriodPreview, f *money.Formatter) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "CLIENTE\tSITIOS\tVIGILANTES\tPRESTACIÓN\n")
	for _, p := range pp.Previews {
		fmt.Fprintf(w, "%s (%s)\t%d\t%d\t%s\n", p.ClientName, p.ClientID, p.SiteCount, p.TotalGuardCount,
			f.Format(p.PrestationSubtotal, p.Currency))
		for _, d := range p.Details {
			fmt.Fprintf(w, "  %s\t\t%d\t%s\n", d.Description, d.GuardCount, f.Format(d.Amount, p.Currency))
		}
	}
	_ = w.Flush()

	fmt.Fprintf(cmd.OutOrStdout(), "\nPeríodo %s: %d facturas, %d vigilantes, prestación %s\n",
		pp.Period, pp.Totals.PreviewCount, pp.Totals.TotalGuards, f.Format(pp.Totals.TotalPrestation, ""))
	if pp.HasZeroAmount() {
		fmt.Fprintf(cmd.OutOrStdout(), "Clientes con monto cero (requieren --confirm-zero): %v\n", pp.ZeroAmountClientIDs)
	}
}
