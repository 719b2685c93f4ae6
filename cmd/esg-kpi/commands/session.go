package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"esg-kpi/internal/session"
	"esg-kpi/internal/table"

	"github.com/spf13/cobra"
)

// sessionFlags describe the data a batch command feeds into a session.
type sessionFlags struct {
	industry  string
	tables    []string
	kpiTables []string
	mappings  []string
	manual    []string
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.industry, "industry", "", "industry whose KPIs are tracked")
	cmd.Flags().StringArrayVarP(&f.tables, "table", "t", nil, "CSV or HTML table shared by all KPIs (repeatable; later tables replace earlier ones)")
	cmd.Flags().StringArrayVar(&f.kpiTables, "kpi-table", nil, `table for one KPI, as "KPI=path"`)
	cmd.Flags().StringArrayVarP(&f.mappings, "map", "m", nil, `column assignment, as "KPI:field=column"`)
	cmd.Flags().StringArrayVar(&f.manual, "manual", nil, `manually entered value, as "KPI=value"`)
}

// mappingArg is one parsed --map flag.
type mappingArg struct {
	KPI, Field, Column string
}

func parseMapping(s string) (mappingArg, error) {
	eq := strings.LastIndex(s, "=")
	if eq < 0 {
		return mappingArg{}, fmt.Errorf("invalid mapping %q: want KPI:field=column", s)
	}
	left, column := s[:eq], s[eq+1:]
	colon := strings.LastIndex(left, ":")
	if colon <= 0 || colon == len(left)-1 {
		return mappingArg{}, fmt.Errorf("invalid mapping %q: want KPI:field=column", s)
	}
	return mappingArg{
		KPI:    strings.TrimSpace(left[:colon]),
		Field:  strings.TrimSpace(left[colon+1:]),
		Column: strings.TrimSpace(column),
	}, nil
}

func parseAssignment(s string) (string, string, error) {
	kpi, value, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(kpi) == "" {
		return "", "", fmt.Errorf("invalid value %q: want KPI=value", s)
	}
	return strings.TrimSpace(kpi), strings.TrimSpace(value), nil
}

// build runs the flags through a new session in the order an interactive
// user would: industry, uploads, manual mappings, manual values.
func (f *sessionFlags) build(ctx context.Context, d *deps) (*session.State, error) {
	st := d.newSession()
	if f.industry != "" {
		if err := st.SetIndustry(f.industry); err != nil {
			return nil, err
		}
	}

	for _, path := range f.tables {
		tbl, err := table.ReadFile(path)
		if err != nil {
			return nil, err
		}
		st.LoadTable(ctx, tbl)
	}
	for _, arg := range f.kpiTables {
		kpi, path, err := parseAssignment(arg)
		if err != nil {
			return nil, err
		}
		tbl, err := table.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if _, err := st.LoadKPITable(ctx, kpi, tbl); err != nil {
			return nil, err
		}
	}
	for _, arg := range f.mappings {
		m, err := parseMapping(arg)
		if err != nil {
			return nil, err
		}
		if _, err := st.SetMapping(ctx, m.KPI, m.Field, m.Column); err != nil {
			return nil, err
		}
	}
	for _, arg := range f.manual {
		kpi, value, err := parseAssignment(arg)
		if err != nil {
			return nil, err
		}
		if _, err := st.SetManualValue(kpi, value); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
