package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:     "summary <invoice-id>",
	Short:   "Muestra el estado de cobro de una factura",
	Example: `  billing summary 6f1c0a7e-...`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	eng, err := newEngine(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	s, err := eng.payments.ComputeSummary(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	payments, err := eng.payments.ListPayments(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Factura   %s\n", s.InvoiceID)
	fmt.Fprintf(out, "Estado    %s\n", s.Status)
	fmt.Fprintf(out, "Total     %s\n", eng.formatter.Format(s.DueTotal, ""))
	fmt.Fprintf(out, "Pagado    %s (%d pagos)\n", eng.formatter.Format(s.TotalPaid, ""), s.PaymentCount)
	fmt.Fprintf(out, "Saldo     %s\n", eng.formatter.Format(s.RemainingBalance, ""))
	for _, p := range payments {
		fmt.Fprintf(out, "  %s  %-12s %s %s\n", p.PaidAt.Format("2006-01-02"), p.Method,
			eng.formatter.Format(p.Amount, ""), p.Reference)
	}
	return nil
}
