package commands

import (
	"fmt"
	"slices"

	"esg-kpi/internal/reconcile"
	"esg-kpi/internal/session"

	"github.com/spf13/cobra"
)

var (
	calcFlags sessionFlags
	calcKPIs  []string
	calcAll   bool
)

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Calculate KPIs from uploaded tables and print their values as JSON",
	Example: `  esg-kpi calculate -t energy.csv
  esg-kpi calculate -t data.csv -m "Energy consumption, total:energy_by_source=Source MWh" --kpi "Energy consumption, total"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := buildDeps(ctx, cfg)
		if err != nil {
			return err
		}
		defer d.Close()

		st, err := calcFlags.build(ctx, d)
		if err != nil {
			return err
		}

		var out []session.KPIState
		if len(calcKPIs) > 0 {
			for _, kpi := range calcKPIs {
				if _, err := d.catalogue.GetSpec(kpi); err != nil {
					return err
				}
				out = append(out, st.Recompute(ctx, kpi))
			}
		} else {
			for _, ks := range st.KPIs() {
				if calcAll || ks.Status != reconcile.StatusPending {
					out = append(out, ks)
				}
			}
		}
		if len(out) == 0 {
			return fmt.Errorf("no KPI could be mapped; pass --map assignments or --all to list pending KPIs")
		}

		failed := slices.ContainsFunc(out, func(ks session.KPIState) bool { return ks.Status == reconcile.StatusError })
		if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
		if failed {
			return fmt.Errorf("one or more KPIs failed to calculate")
		}
		return nil
	},
}

func init() {
	calcFlags.register(calculateCmd)
	calculateCmd.Flags().StringArrayVarP(&calcKPIs, "kpi", "k", nil, "KPI to calculate (repeatable; default: every mapped KPI)")
	calculateCmd.Flags().BoolVar(&calcAll, "all", false, "include pending KPIs in the output")
	rootCmd.AddCommand(calculateCmd)
}
