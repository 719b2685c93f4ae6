package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"esg-kpi/internal/advisor"
	"esg-kpi/internal/report"
	"esg-kpi/internal/visuals"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	scoreFlags sessionFlags
	withCharts bool
)

var scorecardCmd = &cobra.Command{
	Use:   "scorecard",
	Short: "Score every KPI with a value and print the scorecard as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := buildDeps(ctx, cfg)
		if err != nil {
			return err
		}
		defer d.Close()

		st, err := scoreFlags.build(ctx, d)
		if err != nil {
			return err
		}
		card, err := st.Scorecard(ctx, d.scorers())
		if err != nil {
			return err
		}
		if err := writeJSON(cmd.OutOrStdout(), card); err != nil {
			return err
		}
		if withCharts || cfg.EnableMermaidCharts {
			fmt.Fprintln(cmd.OutOrStdout(), visuals.GenerateCategoryChart(card))
			fmt.Fprintln(cmd.OutOrStdout(), visuals.GenerateKPIChart(card))
		}
		return nil
	},
}

var (
	reportFlags  sessionFlags
	reportOut    string
	reportOpen   bool
	reportAdvice bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the scorecard, optionally with an advisory strategy, as an HTML report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := buildDeps(ctx, cfg)
		if err != nil {
			return err
		}
		defer d.Close()

		st, err := reportFlags.build(ctx, d)
		if err != nil {
			return err
		}
		card, err := st.Scorecard(ctx, d.scorers())
		if err != nil {
			return err
		}

		r := report.Report{Scorecard: card}
		if reportAdvice {
			if d.advisor == nil {
				return fmt.Errorf("--advice needs GEMINI_API_KEY")
			}
			r.Advice, err = d.advisor.Advise(ctx, advisor.Request{
				Type:     advisor.TypeFullAnalysis,
				Data:     advisor.DataFromValues(st.Values()),
				Industry: st.Industry(),
			})
			if err != nil {
				return err
			}
		}

		path := reportOut
		if path == "" {
			path = filepath.Join(cfg.SessionDir, "report-"+strings.SplitN(st.ID, "-", 2)[0]+".html")
		}
		if err := report.WriteFile(path, r); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)

		if reportOpen {
			if err := report.Open(path); err != nil {
				log.Warn().Err(err).Msg("Failed to open report")
			}
		}
		return nil
	},
}

func init() {
	scoreFlags.register(scorecardCmd)
	scorecardCmd.Flags().BoolVar(&withCharts, "charts", false, "also print Mermaid charts")
	rootCmd.AddCommand(scorecardCmd)

	reportFlags.register(reportCmd)
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "output file (default: a file in SESSION_DIR)")
	reportCmd.Flags().BoolVar(&reportOpen, "open", false, "open the report in the default browser")
	reportCmd.Flags().BoolVar(&reportAdvice, "advice", false, "include a full advisory analysis")
	rootCmd.AddCommand(reportCmd)
}
