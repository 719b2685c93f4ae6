package mcp

import (
	"context"
	"sync"

	"esg-kpi/internal/advisor"
	"esg-kpi/internal/catalogue"
	"esg-kpi/internal/namemap"
	"esg-kpi/internal/scoring"
	"esg-kpi/internal/session"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// Deps are the engines the server exposes. Narrative and Advisor are
// optional; the tools that need them report an error when they are nil.
type Deps struct {
	Catalogue  *catalogue.Catalogue
	Index      *catalogue.IndustryIndex
	Mapper     *namemap.Mapper
	Normalizer *scoring.Normalizer
	Narrative  *scoring.NarrativeScorer
	Advisor    advisor.Advisor
	SessionDir string
}

// Options tune the tool responses.
type Options struct {
	Version             string
	EnableMermaidCharts bool
}

// Server holds the state for the MCP server: one session per connection.
type Server struct {
	deps Deps
	opts Options

	mu         sync.Mutex
	state      *session.State
	lastAdvice string
}

// NewServer creates a new MCP server with a fresh session.
func NewServer(deps Deps, opts Options) *Server {
	s := &Server{deps: deps, opts: opts}
	s.state = s.newState()
	return s
}

func (s *Server) newState() *session.State {
	return session.New(session.Deps{
		Catalogue: s.deps.Catalogue,
		Index:     s.deps.Index,
		Mapper:    s.deps.Mapper,
		DataDir:   s.deps.SessionDir,
	})
}

// Session returns the current session.
func (s *Server) Session() *session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Server) scorers() session.Scorers {
	return session.Scorers{Normalizer: s.deps.Normalizer, Narrative: s.deps.Narrative}
}

// MCPServer builds the protocol server with every tool registered.
func (s *Server) MCPServer() *mcp.Server {
	version := s.opts.Version
	if version == "" {
		version = "dev"
	}
	srv := mcp.NewServer(&mcp.Implementation{Name: "esg-kpi", Version: version}, nil)
	s.registerTools(srv)
	return srv
}

// Serve runs the server over stdio until the client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().
		Int("kpis", s.deps.Catalogue.Len()).
		Bool("narrative", s.deps.Narrative != nil).
		Bool("advisor", s.deps.Advisor != nil).
		Msg("Serving MCP over stdio")
	return s.MCPServer().Run(ctx, &mcp.StdioTransport{})
}
