// Package session owns the per-user state of the KPI engine: uploaded
// tables, column mappings, and the last calculated value of every KPI.
// Each mutation runs the reconciliation -> calculation chain synchronously.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"esg-kpi/internal/calc"
	"esg-kpi/internal/catalogue"
	"esg-kpi/internal/kpierr"
	"esg-kpi/internal/namemap"
	"esg-kpi/internal/reconcile"
	"esg-kpi/internal/table"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Value sources.
const (
	SourceCalculated = "calculated"
	SourceManual     = "manual"
)

// KPIState is the current record of one KPI.
type KPIState struct {
	Name     string           `json:"name"`
	Status   reconcile.Status `json:"status"`
	Value    calc.Value       `json:"value"`
	Source   string           `json:"source,omitempty"`
	Error    *kpierr.Error    `json:"error,omitempty"`
	DataFile string           `json:"data_file,omitempty"`
	Updated  time.Time        `json:"updated,omitempty"`
}

// Deps are the shared, read-mostly collaborators of every session.
type Deps struct {
	Catalogue *catalogue.Catalogue
	Index     *catalogue.IndustryIndex
	Mapper    *namemap.Mapper
	DataDir   string
}

// State is one user's session.
type State struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	deps     Deps
	engine   *calc.Engine
	industry string
	active   *table.Table
	perKPI   map[string]*table.Table
	mapping  *reconcile.Mapping
	kpis     map[string]*KPIState
}

// New starts an empty session.
func New(deps Deps) *State {
	s := &State{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		deps:      deps,
		engine:    calc.NewEngine(deps.Catalogue),
		perKPI:    make(map[string]*table.Table),
		mapping:   reconcile.NewMapping(),
		kpis:      make(map[string]*KPIState),
	}
	log.Info().Str("session", s.ID).Msg("Session started")
	return s
}

// SetIndustry selects the industry whose KPIs the session tracks.
func (s *State) SetIndustry(industry string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deps.Index != nil {
		if _, err := s.deps.Index.KPIsByCategory(industry); err != nil {
			return err
		}
	}
	s.industry = industry
	return nil
}

// Industry returns the selected industry.
func (s *State) Industry() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.industry
}

// trackedLocked lists the catalogue KPIs in scope: the industry's KPIs when an
// industry and index are set, otherwise the whole catalogue.
func (s *State) trackedLocked() []string {
	all := s.deps.Catalogue.Names()
	if s.industry == "" || s.deps.Index == nil {
		return all
	}
	groups, err := s.deps.Index.KPIsByCategory(s.industry)
	if err != nil {
		return all
	}
	var out []string
	for _, kpis := range groups {
		for _, k := range kpis {
			if _, err := s.deps.Catalogue.GetSpec(k); err == nil {
				out = append(out, k)
			}
		}
	}
	slices.Sort(out)
	return out
}

func (s *State) stateLocked(kpi string) *KPIState {
	st, ok := s.kpis[kpi]
	if !ok {
		st = &KPIState{Name: kpi, Status: reconcile.StatusPending, Value: calc.Pending()}
		s.kpis[kpi] = st
	}
	return st
}

func (s *State) tableForLocked(kpi string) *table.Table {
	if t, ok := s.perKPI[kpi]; ok {
		return t
	}
	return s.active
}

// LoadTable makes tbl the session's shared upload, auto-maps every tracked
// KPI against it and recomputes them. It returns the KPIs whose mapping
// changed.
func (s *State) LoadTable(ctx context.Context, tbl *table.Table) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = tbl
	var updated []string
	for _, kpi := range s.trackedLocked() {
		if _, own := s.perKPI[kpi]; own {
			continue
		}
		fields, _ := s.deps.Catalogue.RequiredFields(kpi)
		if s.mapping.AutoMap(kpi, tbl.Columns, fields) {
			updated = append(updated, kpi)
		}
		s.recomputeLocked(ctx, kpi)
	}

	log.Info().
		Str("session", s.ID).
		Str("table", tbl.Name).
		Int("rows", tbl.Len()).
		Int("automapped", len(updated)).
		Msg("Table loaded")
	return updated
}

// LoadKPITable attaches tbl to a single KPI, overriding the shared upload.
func (s *State) LoadKPITable(ctx context.Context, kpi string, tbl *table.Table) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields, err := s.deps.Catalogue.RequiredFields(kpi)
	if err != nil {
		return false, err
	}
	s.perKPI[kpi] = tbl
	updated := s.mapping.AutoMap(kpi, tbl.Columns, fields)
	s.recomputeLocked(ctx, kpi)
	return updated, nil
}

// AutoMap re-runs exact-name matching for one KPI.
func (s *State) AutoMap(ctx context.Context, kpi string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields, err := s.deps.Catalogue.RequiredFields(kpi)
	if err != nil {
		return false, err
	}
	tbl := s.tableForLocked(kpi)
	if tbl == nil {
		return false, nil
	}
	updated := s.mapping.AutoMap(kpi, tbl.Columns, fields)
	if updated {
		s.recomputeLocked(ctx, kpi)
	}
	return updated, nil
}

// SetMapping assigns (or, with an empty column, clears) the source column of
// a KPI field. A change triggers recomputation of that KPI.
func (s *State) SetMapping(ctx context.Context, kpi, field, column string) (KPIState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields, err := s.deps.Catalogue.RequiredFields(kpi)
	if err != nil {
		return KPIState{}, err
	}
	if !slices.Contains(fields, field) {
		return KPIState{}, kpierr.New(kpierr.NotFound, kpi, fmt.Sprintf("%q is not a required field", field))
	}

	if s.mapping.Set(kpi, field, column) {
		log.Debug().Str("session", s.ID).Str("kpi", kpi).Str("field", field).Str("column", column).Msg("Mapping changed")
		s.recomputeLocked(ctx, kpi)
	}
	return *s.stateLocked(kpi), nil
}

// SetManualValue stores a directly entered value. Numeric KPIs require a
// number; anything else is kept as narrative text.
func (s *State) SetManualValue(kpi, raw string) (KPIState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var v calc.Value
	spec, err := s.deps.Catalogue.GetSpec(kpi)
	switch {
	case err == nil && spec.IsNumerical:
		f, perr := table.ParseNumber(raw)
		if perr != nil {
			return KPIState{}, kpierr.Wrap(kpierr.Calculation, kpi, perr)
		}
		v = calc.Numeric(f)
	case err == nil:
		if raw == "" {
			return KPIState{}, kpierr.New(kpierr.NoData, kpi, "narrative is empty")
		}
		v = calc.Narrative(raw)
	default:
		// KPIs outside the catalogue can still be reported by hand.
		if f, perr := table.ParseNumber(raw); perr == nil {
			v = calc.Numeric(f)
		} else {
			v = calc.Narrative(raw)
		}
	}

	st := s.stateLocked(kpi)
	st.Value = v
	st.Status = reconcile.StatusComplete
	st.Source = SourceManual
	st.Error = nil
	st.Updated = time.Now()
	return *st, nil
}

// Recompute re-runs the chain for one KPI.
func (s *State) Recompute(ctx context.Context, kpi string) KPIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputeLocked(ctx, kpi)
	return *s.stateLocked(kpi)
}

func (s *State) recomputeLocked(ctx context.Context, kpi string) {
	st := s.stateLocked(kpi)

	fields, err := s.deps.Catalogue.RequiredFields(kpi)
	if err != nil {
		st.Status = reconcile.StatusError
		st.Error = asKPIError(kpi, err)
		return
	}

	tbl := s.tableForLocked(kpi)
	check := s.mapping.Check(kpi, fields, tbl)
	switch check.Status {
	case reconcile.StatusPending:
		if st.Source == SourceManual {
			return
		}
		st.Status = reconcile.StatusPending
		st.Error = nil
		if st.Source == SourceCalculated {
			// Every assignment was cleared; the old result no longer has a source.
			st.Value = calc.Pending()
			st.Source = ""
			st.DataFile = ""
			st.Updated = time.Now()
		}
		return
	case reconcile.StatusInvalid:
		st.Status = reconcile.StatusInvalid
		st.Error = &kpierr.Error{
			Kind:   kpierr.MappingIncomplete,
			KPI:    kpi,
			Fields: check.Absent,
			Detail: "mapped columns no longer in table",
		}
		return
	}

	reconciled := s.mapping.Reconcile(kpi, fields, tbl)
	value, err := s.engine.Calculate(kpi, reconciled)
	if err != nil {
		kerr := asKPIError(kpi, err)
		st.Error = kerr
		if kerr.Kind == kpierr.MissingColumns {
			st.Status = reconcile.StatusIncomplete
		} else {
			st.Status = reconcile.StatusError
			log.Warn().Err(err).Str("session", s.ID).Str("kpi", kpi).Msg("KPI calculation failed")
		}
		return
	}

	st.Value = value
	st.Status = reconcile.StatusComplete
	st.Source = SourceCalculated
	st.Error = nil
	st.Updated = time.Now()
	st.DataFile = s.writeDataFileLocked(ctx, kpi, reconciled)

	log.Info().Str("session", s.ID).Str("kpi", kpi).Str("value", value.String()).Msg("KPI calculated")
}

func (s *State) writeDataFileLocked(ctx context.Context, kpi string, reconciled *table.Table) string {
	if s.deps.Mapper == nil || s.deps.DataDir == "" {
		return ""
	}
	path := s.deps.Mapper.KPIFilename(ctx, s.deps.DataDir, kpi)
	if err := reconciled.WriteFile(path); err != nil {
		log.Warn().Err(kpierr.Wrap(kpierr.Persistence, kpi, err)).Str("path", path).Msg("Failed to write calculated data")
		return ""
	}
	return path
}

func asKPIError(kpi string, err error) *kpierr.Error {
	var kerr *kpierr.Error
	if errors.As(err, &kerr) {
		return kerr
	}
	return kpierr.Wrap(kpierr.Calculation, kpi, err)
}

// KPI returns a copy of one KPI's record.
func (s *State) KPI(kpi string) KPIState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.kpis[kpi]; ok {
		return *st
	}
	return KPIState{Name: kpi, Status: reconcile.StatusPending, Value: calc.Pending()}
}

// KPIs returns every tracked or touched KPI, sorted by name.
func (s *State) KPIs() []KPIState {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := s.trackedLocked()
	for k := range s.kpis {
		if !slices.Contains(names, k) {
			names = append(names, k)
		}
	}
	slices.Sort(names)

	out := make([]KPIState, 0, len(names))
	for _, n := range names {
		if st, ok := s.kpis[n]; ok {
			out = append(out, *st)
		} else {
			out = append(out, KPIState{Name: n, Status: reconcile.StatusPending, Value: calc.Pending()})
		}
	}
	return out
}

// Values returns the non-pending values by KPI.
func (s *State) Values() map[string]calc.Value {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]calc.Value)
	for name, st := range s.kpis {
		if !st.Value.IsPending() {
			out[name] = st.Value
		}
	}
	return out
}
