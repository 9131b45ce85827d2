package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Name: "volume-breakout",
		Scoring: map[string]float64{
			"liquidity": 0.4,
			"momentum":  0.6,
		},
		Rules: map[string]Rule{
			"liquidity": {Ladder: []LadderStep{{Min: 1000, Score: 8}, {Min: 100, Score: 5}}},
			"momentum":  {Ladder: []LadderStep{{Min: 5, Score: 9}, {Min: 2, Score: 6}}},
		},
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	// Feature defaults to the criterion name.
	if cfg.Rules["liquidity"].Feature != "liquidity" {
		t.Errorf("expected feature default, got %q", cfg.Rules["liquidity"].Feature)
	}
}

func TestValidateWeightSum(t *testing.T) {
	cfg := validConfig()
	cfg.Scoring["momentum"] = 0.5

	err := cfg.Validate()
	if _, ok := err.(*InvalidScannerConfigError); !ok {
		t.Errorf("expected InvalidScannerConfigError for bad weight sum, got %v", err)
	}
}

func TestValidateWeightSumTolerance(t *testing.T) {
	cfg := validConfig()
	cfg.Scoring = map[string]float64{"a": 0.1, "b": 0.2, "c": 0.3, "d": 0.4}
	cfg.Rules = map[string]Rule{
		"a": {Ladder: []LadderStep{{Min: 0, Score: 5}}},
		"b": {Ladder: []LadderStep{{Min: 0, Score: 5}}},
		"c": {Ladder: []LadderStep{{Min: 0, Score: 5}}},
		"d": {Ladder: []LadderStep{{Min: 0, Score: 5}}},
	}

	// 0.1+0.2+0.3+0.4 accumulates float error well inside the tolerance.
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected sum within tolerance to pass, got %v", err)
	}
}

func TestValidateMissingRule(t *testing.T) {
	cfg := validConfig()
	delete(cfg.Rules, "momentum")

	err := cfg.Validate()
	invalid, ok := err.(*InvalidScannerConfigError)
	if !ok {
		t.Fatalf("expected InvalidScannerConfigError, got %v", err)
	}
	if invalid.Criterion != "momentum" {
		t.Errorf("expected criterion momentum in error, got %q", invalid.Criterion)
	}
}

func TestValidateLadderScoreRange(t *testing.T) {
	cfg := validConfig()
	cfg.Rules["momentum"] = Rule{Ladder: []LadderStep{{Min: 5, Score: 11}}}

	if _, ok := cfg.Validate().(*InvalidScannerConfigError); !ok {
		t.Error("expected InvalidScannerConfigError for ladder score above 10")
	}
}

func TestValidateNegativeWeight(t *testing.T) {
	cfg := validConfig()
	cfg.Scoring["liquidity"] = -0.1
	cfg.Scoring["momentum"] = 1.1

	if _, ok := cfg.Validate().(*InvalidScannerConfigError); !ok {
		t.Error("expected InvalidScannerConfigError for weight outside [0, 1]")
	}
}

func TestRuleScoreLadder(t *testing.T) {
	rule := Rule{Ladder: []LadderStep{
		{Min: 1000, Score: 8},
		{Min: 100, Score: 5},
	}}

	tests := []struct {
		value float64
		want  float64
	}{
		{5000, 8},
		{1000, 8}, // threshold is inclusive
		{999, 5},
		{100, 5},
		{99, 0}, // below every step
	}
	for _, tt := range tests {
		if got := rule.Score(tt.value); got != tt.want {
			t.Errorf("Score(%.0f) = %.0f, want %.0f", tt.value, got, tt.want)
		}
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "volume-breakout.yaml")
	content := []byte(`
scanner_config:
  schedule_minutes: 5
  max_candidates: 20
quality_filters:
  min_price: 50
  min_volume_lots: 500
scoring:
  liquidity: 0.4
  momentum: 0.6
rules:
  liquidity:
    feature: volume_lots
    ladder:
      - {min: 1000, score: 8}
      - {min: 100, score: 5}
  momentum:
    ladder:
      - {min: 5, score: 9}
      - {min: 2, score: 6}
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	// Name defaults to the file basename.
	if cfg.Name != "volume-breakout" {
		t.Errorf("expected name volume-breakout, got %q", cfg.Name)
	}
	if cfg.ScannerConfig.ScheduleMinutes != 5 {
		t.Errorf("expected schedule 5 minutes, got %d", cfg.ScannerConfig.ScheduleMinutes)
	}
	if cfg.Rules["liquidity"].Feature != "volume_lots" {
		t.Errorf("expected explicit feature kept, got %q", cfg.Rules["liquidity"].Feature)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
scoring:
  momentum: 1.0
rules:
  momentum:
    ladder:
      - {min: 0, score: 5}
`)
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), yaml, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	configs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("expected 1 config, got %d", len(configs))
	}
	if _, ok := configs["a"]; !ok {
		t.Errorf("expected config keyed by name, got %v", configs)
	}
}
