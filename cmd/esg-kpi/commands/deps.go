package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"esg-kpi/internal/advisor"
	"esg-kpi/internal/catalogue"
	"esg-kpi/internal/config"
	"esg-kpi/internal/llm"
	"esg-kpi/internal/mcp"
	"esg-kpi/internal/namemap"
	"esg-kpi/internal/scoring"
	"esg-kpi/internal/session"

	"github.com/rs/zerolog/log"
)

// deps are the engines built from the configuration.
type deps struct {
	catalogue  *catalogue.Catalogue
	index      *catalogue.IndustryIndex
	mapper     *namemap.Mapper
	normalizer *scoring.Normalizer
	narrative  *scoring.NarrativeScorer
	advisor    advisor.Advisor
	sessionDir string

	closers []func()
}

func (d *deps) Close() {
	for _, c := range d.closers {
		c()
	}
}

func (d *deps) mcpDeps() mcp.Deps {
	return mcp.Deps{
		Catalogue:  d.catalogue,
		Index:      d.index,
		Mapper:     d.mapper,
		Normalizer: d.normalizer,
		Narrative:  d.narrative,
		Advisor:    d.advisor,
		SessionDir: d.sessionDir,
	}
}

func (d *deps) newSession() *session.State {
	return session.New(session.Deps{
		Catalogue: d.catalogue,
		Index:     d.index,
		Mapper:    d.mapper,
		DataDir:   d.sessionDir,
	})
}

func (d *deps) scorers() session.Scorers {
	return session.Scorers{Normalizer: d.normalizer, Narrative: d.narrative}
}

// buildDeps loads the catalogue and wires the optional services. A missing
// industry file or API key disables the features that need them.
func buildDeps(ctx context.Context, cfg *config.AppConfig) (*deps, error) {
	cat, err := catalogue.Load(cfg.CatalogueFile, cfg.ReferenceFile)
	if err != nil {
		return nil, err
	}
	d := &deps{
		catalogue:  cat,
		normalizer: scoring.NewNormalizer(cat),
		sessionDir: cfg.SessionDir,
	}

	index, err := catalogue.LoadIndustryIndex(cfg.IndustryFile)
	switch {
	case err == nil:
		d.index = index
	case errors.Is(err, os.ErrNotExist):
		log.Warn().Str("path", cfg.IndustryFile).Msg("No industry index; KPIs will not be grouped by industry")
	default:
		return nil, err
	}

	var store namemap.Store
	if cfg.DatabaseURL != "" {
		pg, err := namemap.NewPGStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open name mapping database: %w", err)
		}
		d.closers = append(d.closers, pg.Close)
		store = pg
		log.Info().Msg("Using PostgreSQL name mapping store")
	} else {
		store = namemap.NewFileStore(cfg.NameMappingFile)
	}
	d.mapper = namemap.NewMapper(store)

	if cfg.LLM.APIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set; narrative scoring and advice are disabled")
		return d, nil
	}
	gemini, err := llm.NewGeminiProvider(ctx, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	d.narrative = scoring.NewNarrativeScorer(cat, gemini, cfg.LLM.EmbeddingTimeout)

	agents, err := advisor.LoadConfig(cfg.AgentsFile)
	if err != nil {
		return nil, err
	}
	d.advisor = advisor.NewPipeline(&llm.Retrying{
		Provider: gemini,
		Timeout:  cfg.LLM.AdvisorTimeout,
		Retries:  cfg.LLM.AdvisorRetries,
		Backoff:  2 * time.Second,
	}, agents)
	return d, nil
}
