package commands

import (
	"fmt"
	"sort"

	"esg-kpi/internal/namemap"

	"github.com/spf13/cobra"
)

var namesCmd = &cobra.Command{
	Use:   "names",
	Short: "Inspect the persistent KPI name to file name mapping",
}

var namesMapCmd = &cobra.Command{
	Use:   "map <kpi name>...",
	Short: "Print the sanitized name of each KPI, registering new ones",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mapper, closeFn, err := openMapper(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		for _, name := range args {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", mapper.SanitizeAndMap(cmd.Context(), name), name)
		}
		return nil
	},
}

var namesResolveCmd = &cobra.Command{
	Use:   "resolve <sanitized name or file>...",
	Short: "Print the original KPI name for sanitized names or calculated-data files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mapper, closeFn, err := openMapper(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		var unknown int
		for _, name := range args {
			original, ok := mapper.ResolveOriginal(cmd.Context(), name)
			if !ok {
				unknown++
				original = name
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, original)
		}
		if unknown > 0 {
			return fmt.Errorf("%d name(s) not in the mapping table", unknown)
		}
		return nil
	},
}

var namesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the whole mapping table",
	RunE: func(cmd *cobra.Command, args []string) error {
		mapper, closeFn, err := openMapper(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		table := mapper.Snapshot(cmd.Context())
		keys := make([]string, 0, len(table))
		for k := range table {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", k, table[k])
		}
		return nil
	},
}

// openMapper builds only the name mapper; the catalogue is not needed here.
func openMapper(cmd *cobra.Command) (*namemap.Mapper, func(), error) {
	if cfg.DatabaseURL != "" {
		pg, err := namemap.NewPGStore(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open name mapping database: %w", err)
		}
		return namemap.NewMapper(pg), pg.Close, nil
	}
	return namemap.NewMapper(namemap.NewFileStore(cfg.NameMappingFile)), func() {}, nil
}

func init() {
	namesCmd.AddCommand(namesMapCmd, namesResolveCmd, namesListCmd)
	rootCmd.AddCommand(namesCmd)
}
