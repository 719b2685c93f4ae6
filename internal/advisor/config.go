package advisor

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Agent roles.
const (
	AgentData          = "data"
	AgentEnvironmental = "environmental"
	AgentSocial        = "social"
	AgentGovernance    = "governance"
	AgentStrategy      = "strategy"
	AgentCommunication = "communication"
)

// AgentSpec configures one agent of the pipeline.
type AgentSpec struct {
	Role        string  `yaml:"role" json:"role"`
	Goal        string  `yaml:"goal" json:"goal"`
	Backstory   string  `yaml:"backstory" json:"backstory"`
	Model       string  `yaml:"model,omitempty" json:"model,omitempty"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
}

// SystemPrompt renders the agent persona.
func (a AgentSpec) SystemPrompt() string {
	return fmt.Sprintf("You are the %s.\nGoal: %s\nBackground: %s", a.Role, a.Goal, a.Backstory)
}

// Config holds the agent definitions keyed by role.
type Config struct {
	Agents map[string]AgentSpec `yaml:"agents" json:"agents"`
}

// DefaultConfig returns the built-in agent team. Analysis agents run cold,
// the strategy agent slightly warmer.
func DefaultConfig() Config {
	return Config{Agents: map[string]AgentSpec{
		AgentData: {
			Role:        "ESG Data Processor",
			Goal:        "Process and validate ESG metrics",
			Backstory:   "Expert in ESG data processing and validation, ensuring data quality and standardization.",
			Temperature: 0.1,
		},
		AgentEnvironmental: {
			Role:        "Environmental Analyst",
			Goal:        "Analyze environmental performance",
			Backstory:   "Specialist in environmental metrics, climate impact and sustainability practices.",
			Temperature: 0.1,
		},
		AgentSocial: {
			Role:        "Social Impact Analyst",
			Goal:        "Analyze social performance",
			Backstory:   "Expert in social metrics, workforce analytics and community impact assessment.",
			Temperature: 0.1,
		},
		AgentGovernance: {
			Role:        "Governance Analyst",
			Goal:        "Analyze governance structure",
			Backstory:   "Specialist in corporate governance, ethics and compliance frameworks.",
			Temperature: 0.1,
		},
		AgentStrategy: {
			Role:        "Strategy Developer",
			Goal:        "Develop improvement strategies",
			Backstory:   "Expert in ESG strategy development and implementation planning.",
			Temperature: 0.2,
		},
		AgentCommunication: {
			Role:        "Communication Specialist",
			Goal:        "Present findings effectively",
			Backstory:   "Specialist in presenting ESG information to different stakeholders.",
			Temperature: 0.3,
		},
	}}
}

// LoadConfig reads an agents YAML file over the defaults. A missing file
// yields the defaults; entries in the file replace whole agents.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("path", path).Msg("No agents file, using built-in agents")
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read agents file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("failed to parse agents file: %w", err)
	}
	for role, spec := range file.Agents {
		if _, known := cfg.Agents[role]; !known {
			log.Warn().Str("role", role).Msg("Ignoring unknown agent role")
			continue
		}
		cfg.Agents[role] = spec
	}
	return cfg, nil
}
