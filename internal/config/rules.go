package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/riskibarqy/kart-league/internal/domain/ledger"
	"github.com/riskibarqy/kart-league/internal/domain/market"
)

// LeagueRules groups the economy and market limits loaded from the rules file.
type LeagueRules struct {
	Economy ledger.Rules `yaml:"economy"`
	Market  market.Rules `yaml:"market"`
}

func DefaultLeagueRules() LeagueRules {
	return LeagueRules{
		Economy: ledger.DefaultRules(),
		Market:  market.DefaultRules(),
	}
}

// LoadRules reads the league rules YAML, expanding ${VAR} references. Keys
// missing from the file keep their defaults. An empty path returns the defaults.
func LoadRules(path string) (LeagueRules, error) {
	rules := DefaultLeagueRules()
	if strings.TrimSpace(path) == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return LeagueRules{}, fmt.Errorf("read rules file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), &rules); err != nil {
		return LeagueRules{}, fmt.Errorf("parse rules yaml: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return LeagueRules{}, fmt.Errorf("validate rules: %w", err)
	}
	return rules, nil
}

func (r LeagueRules) Validate() error {
	if err := r.Economy.Validate(); err != nil {
		return fmt.Errorf("economy: %w", err)
	}
	if err := r.Market.Validate(); err != nil {
		return fmt.Errorf("market: %w", err)
	}
	return nil
}
