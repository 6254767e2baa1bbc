package main

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jhoicas/Vigilancia-api/internal/application/billing"
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Emite las facturas del período para los clientes indicados",
	Long: `Emite una factura por cliente con todos sus sitios pendientes del período.
Cada cliente se procesa de forma independiente: un fallo no detiene al resto.`,
	Example: `  billing issue --month 3 --year 2025 --client cli-acme --client cli-beta
  billing issue --month 3 --year 2025 --all --confirm-zero`,
	RunE: runIssue,
}

func init() {
	rootCmd.AddCommand(issueCmd)
	addPeriodFlags(issueCmd)
	issueCmd.Flags().StringSlice("client", nil, "ID de cliente a facturar (repetible)")
	issueCmd.Flags().Bool("all", false, "facturar todos los clientes con sitios pendientes")
	issueCmd.Flags().Bool("confirm-zero", false, "confirmar la emisión de facturas con monto cero")
	issueCmd.Flags().String("notes", "", "observaciones para todas las facturas")
}

func runIssue(cmd *cobra.Command, _ []string) error {
	period, err := periodFromFlags(cmd)
	if err != nil {
		return err
	}
	clientIDs, _ := cmd.Flags().GetStringSlice("client")
	all, _ := cmd.Flags().GetBool("all")
	confirmZero, _ := cmd.Flags().GetBool("confirm-zero")
	notes, _ := cmd.Flags().GetString("notes")
	if len(clientIDs) == 0 && !all {
		return errors.New("indique --client o --all")
	}

	eng, err := newEngine(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	if all {
		pp, err := eng.preview.PreviewPeriod(cmd.Context(), period, false)
		if err != nil {
			return err
		}
		clientIDs = clientIDs[:0]
		for _, p := range pp.Previews {
			clientIDs = append(clientIDs, p.ClientID)
		}
	}

	selections := make([]billing.Selection, 0, len(clientIDs))
	for _, id := range clientIDs {
		selections = append(selections, billing.Selection{
			ClientID:          id,
			ExtraFees:         decimal.Zero,
			CarriedDebt:       decimal.Zero,
			ConfirmZeroAmount: confirmZero,
			Notes:             notes,
		})
	}
	approved := eng.issuer.PrepareSelection(cmd.Context(), period, selections)
	res := eng.issuer.IssueBatch(cmd.Context(), approved)

	out := cmd.OutOrStdout()
	for _, inv := range res.Issued {
		fmt.Fprintf(out, "emitida %s  %s  %s\n", inv.Number, inv.ClientName, eng.formatter.Format(inv.DueTotal, ""))
	}
	for _, f := range res.Failures {
		fmt.Fprintf(out, "fallo   %s\n", f.Message())
	}
	fmt.Fprintf(out, "\n%d emitidas, %d con error\n", res.IssuedCount(), len(res.Failures))

	if len(res.Failures) > 0 && res.IssuedCount() == 0 {
		return errors.New("ninguna factura emitida")
	}
	return nil
}
