package namemap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"esg-kpi/internal/kpierr"

	"github.com/rs/zerolog/log"
)

const maxInsertAttempts = 8

// Mapper assigns stable, unique sanitized keys to KPI names. Registration is
// serialized by a mutex within the process; across processes the Store's
// insert-if-absent decides, and a lost race moves on to the next suffix.
//
// Persistence failures never fail a lookup: they are logged and the
// in-memory table keeps serving the current process.
type Mapper struct {
	mu    sync.Mutex
	store Store
	known map[string]string // sanitized -> original
}

// NewMapper creates a Mapper over store.
func NewMapper(store Store) *Mapper {
	return &Mapper{
		store: store,
		known: make(map[string]string),
	}
}

// refresh merges the persisted table into memory. Caller holds mu.
func (m *Mapper) refresh(ctx context.Context) {
	persisted, err := m.store.Load(ctx)
	if err != nil {
		log.Warn().Err(kpierr.Wrap(kpierr.Persistence, "", err)).Msg("Name mapping unavailable, using in-memory table")
		return
	}
	for k, v := range persisted {
		m.known[k] = v
	}
}

func (m *Mapper) lookup(original string) (string, bool) {
	var keys []string
	for k, v := range m.known {
		if v == original {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", false
	}
	sort.Strings(keys)
	return keys[0], true
}

// SanitizeAndMap returns the sanitized key for original, registering a new
// one on first use. Repeated calls return the same key.
func (m *Mapper) SanitizeAndMap(ctx context.Context, original string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refresh(ctx)
	if key, ok := m.lookup(original); ok {
		return key
	}

	base := Sanitize(original)
	suffix := 0
	for attempt := 0; ; attempt++ {
		key := base
		if suffix > 0 {
			key = fmt.Sprintf("%s_%d", base, suffix)
		}
		if holder, taken := m.known[key]; taken && holder != original {
			suffix++
			continue
		}

		err := m.store.Insert(ctx, key, original)
		switch {
		case err == nil:
			m.known[key] = original
			log.Debug().Str("kpi", original).Str("key", key).Msg("Registered KPI name")
			return key
		case errors.Is(err, ErrConflict) && attempt < maxInsertAttempts:
			// Another writer claimed the key; pick up its entry and try again.
			m.refresh(ctx)
			if k, ok := m.lookup(original); ok {
				return k
			}
			suffix++
		case errors.Is(err, ErrConflict):
			// The store keeps handing keys away; settle on a process-local key
			// no known name holds.
			for {
				suffix++
				key = fmt.Sprintf("%s_%d", base, suffix)
				if _, taken := m.known[key]; !taken {
					break
				}
			}
			log.Warn().
				Err(kpierr.Wrap(kpierr.Persistence, original, err)).
				Str("key", key).
				Int("attempts", attempt+1).
				Msg("Gave up persisting KPI name mapping, using session-local key")
			m.known[key] = original
			return key
		default:
			log.Warn().
				Err(kpierr.Wrap(kpierr.Persistence, original, err)).
				Str("key", key).
				Msg("Failed to persist KPI name mapping")
			m.known[key] = original
			return key
		}
	}
}

// ResolveOriginal returns the KPI name for a sanitized key. The calculated-data
// filename form ("<key>_cal_data.csv", with or without directory) is accepted.
func (m *Mapper) ResolveOriginal(ctx context.Context, sanitized string) (string, bool) {
	key := strings.TrimSuffix(filepath.Base(sanitized), CalDataSuffix)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.refresh(ctx)
	original, ok := m.known[key]
	return original, ok
}

// KPIFilename returns the calculated-data file path of a KPI under dir.
func (m *Mapper) KPIFilename(ctx context.Context, dir, original string) string {
	return filepath.Join(dir, m.SanitizeAndMap(ctx, original)+CalDataSuffix)
}

// Snapshot returns a copy of the current table.
func (m *Mapper) Snapshot(ctx context.Context) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refresh(ctx)
	out := make(map[string]string, len(m.known))
	for k, v := range m.known {
		out[k] = v
	}
	return out
}
