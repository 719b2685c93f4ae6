package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"esg-kpi/internal/config"
	"esg-kpi/internal/logging"
	"esg-kpi/internal/mcp"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "esg-kpi",
	Short: "ESG-KPI calculates, scores and explains ESG key performance indicators",
	Long: `An MCP server and CLI that maps uploaded ESG data onto a KPI catalogue, calculates each KPI from its
formula, scores the results against reference values and asks a team of LLM agents for improvement advice.

Without a subcommand the MCP server is started on stdio.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("ESG-KPI starting")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := buildDeps(ctx, cfg)
		if err != nil {
			return err
		}
		defer d.Close()

		server := mcp.NewServer(d.mcpDeps(), mcp.Options{
			Version:             Version,
			EnableMermaidCharts: cfg.EnableMermaidCharts,
		})
		return server.Serve(ctx)
	},
	SilenceUsage: true,
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}
