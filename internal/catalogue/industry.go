package catalogue

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"esg-kpi/internal/kpierr"
)

// ESG pillars. KPIs whose cluster is empty land in CategoryUnclassified;
// any other cluster label is kept as its own category.
const (
	CategoryEnvironmental = "Environmental"
	CategorySocial        = "Social"
	CategoryGovernance    = "Governance"
	CategoryUnclassified  = "Unclassified"
)

// Categories lists the canonical pillars in display order.
var Categories = []string{CategoryEnvironmental, CategorySocial, CategoryGovernance}

// IndustryKPI is one row of the industry index.
type IndustryKPI struct {
	Industry        string `json:"industry"`
	KPIName         string `json:"kpi_name"`
	SpecificationID string `json:"specification_id,omitempty"`
	Scope           string `json:"scope,omitempty"`
	Specification   string `json:"specification,omitempty"`
	Cluster         string `json:"cluster,omitempty"`
}

// Category resolves the row's cluster label to a pillar name.
func (k IndustryKPI) Category() string {
	return normalizeCluster(k.Cluster)
}

func normalizeCluster(cluster string) string {
	c := strings.TrimSpace(cluster)
	if c == "" {
		return CategoryUnclassified
	}
	for _, cat := range Categories {
		if strings.EqualFold(c, cat) || strings.EqualFold(c, cat[:1]) {
			return cat
		}
	}
	return c
}

// IndustryIndex maps industries to the KPIs that apply to them.
type IndustryIndex struct {
	rows []IndustryKPI
}

var industryColumns = []string{"Industry", "KPI Name", "Specification ID", "Scope", "Specification", "Cluster"}

// NewIndustryIndex builds an index from rows already in memory.
func NewIndustryIndex(rows []IndustryKPI) *IndustryIndex {
	return &IndustryIndex{rows: slices.Clone(rows)}
}

// LoadIndustryIndex reads the industry CSV from disk.
func LoadIndustryIndex(path string) (*IndustryIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, kpierr.Wrap(kpierr.Configuration, "", fmt.Errorf("failed to open industry file: %w", err))
	}
	defer f.Close()
	return ReadIndustryIndex(f)
}

// ReadIndustryIndex parses the industry CSV. The Cluster column is optional;
// every other column in industryColumns must be present.
func ReadIndustryIndex(r io.Reader) (*IndustryIndex, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, kpierr.Wrap(kpierr.Configuration, "", fmt.Errorf("failed to read industry headers: %w", err))
	}

	pos := make(map[string]int, len(headers))
	for i, h := range headers {
		pos[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range industryColumns[:5] {
		if _, ok := pos[col]; !ok {
			return nil, kpierr.New(kpierr.Configuration, "", fmt.Sprintf("industry file missing required column %q", col))
		}
	}

	cell := func(row []string, col string) string {
		i, ok := pos[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var rows []IndustryKPI
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, kpierr.Wrap(kpierr.Configuration, "", fmt.Errorf("failed to read industry row: %w", err))
		}
		rows = append(rows, IndustryKPI{
			Industry:        cell(row, "Industry"),
			KPIName:         cell(row, "KPI Name"),
			SpecificationID: cell(row, "Specification ID"),
			Scope:           cell(row, "Scope"),
			Specification:   cell(row, "Specification"),
			Cluster:         cell(row, "Cluster"),
		})
	}

	return &IndustryIndex{rows: rows}, nil
}

// Industries returns the distinct industries, sorted.
func (x *IndustryIndex) Industries() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range x.rows {
		if r.Industry == "" || seen[r.Industry] {
			continue
		}
		seen[r.Industry] = true
		out = append(out, r.Industry)
	}
	slices.Sort(out)
	return out
}

// SearchIndustries matches industries by case-insensitive substring.
// An empty query returns every industry.
func (x *IndustryIndex) SearchIndustries(query string) []string {
	all := x.Industries()
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all
	}
	var out []string
	for _, ind := range all {
		if strings.Contains(strings.ToLower(ind), q) {
			out = append(out, ind)
		}
	}
	return out
}

// KPIsByCategory groups an industry's KPIs by their cluster. KPI order
// follows the file; duplicates are dropped.
func (x *IndustryIndex) KPIsByCategory(industry string) (map[string][]string, error) {
	out := make(map[string][]string)
	seen := make(map[string]bool)
	found := false
	for _, r := range x.rows {
		if r.Industry != industry {
			continue
		}
		found = true
		if r.KPIName == "" || seen[r.KPIName] {
			continue
		}
		seen[r.KPIName] = true
		cat := r.Category()
		out[cat] = append(out[cat], r.KPIName)
	}
	if !found {
		return nil, kpierr.New(kpierr.NotFound, "", fmt.Sprintf("unknown industry %q", industry))
	}
	return out, nil
}

// CategoryOf returns the pillar of a KPI within an industry.
func (x *IndustryIndex) CategoryOf(industry, kpi string) string {
	for _, r := range x.rows {
		if r.Industry == industry && r.KPIName == kpi {
			return r.Category()
		}
	}
	return CategoryUnclassified
}

// Details returns the first index row describing a KPI.
func (x *IndustryIndex) Details(kpi string) (IndustryKPI, error) {
	for _, r := range x.rows {
		if r.KPIName == kpi {
			return r, nil
		}
	}
	return IndustryKPI{}, kpierr.New(kpierr.NotFound, kpi, "no industry index entry")
}

// TotalKPIs counts the distinct KPIs of an industry.
func (x *IndustryIndex) TotalKPIs(industry string) int {
	groups, err := x.KPIsByCategory(industry)
	if err != nil {
		return 0
	}
	n := 0
	for _, kpis := range groups {
		n += len(kpis)
	}
	return n
}
