package cfg

import (
	"strings"
	"testing"
	"time"

	"loan-predictor/internal/ml"
)

// createValidSettings creates a valid Settings struct for testing
func createValidSettings() *Settings {
	return &Settings{
		Port:              8000,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		LogisticModelFile: "loan_logistic_model.json",
		TreeModelFile:     "loan_tree_model.json",
		DecisionPolicy:    ml.PolicyAveraged,
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

func TestValidateSettings_ValidConfig(t *testing.T) {
	settings := createValidSettings()

	err := validateSettings(settings)
	if err != nil {
		t.Errorf("Expected valid config to pass, got error: %v", err)
	}
}

func TestValidateSettings_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantMsg string
	}{
		{"port zero", func(s *Settings) { s.Port = 0 }, "port must be between"},
		{"port too high", func(s *Settings) { s.Port = 65536 }, "port must be between"},
		{"read timeout too short", func(s *Settings) { s.ReadTimeout = 500 * time.Millisecond }, "read timeout"},
		{"write timeout too long", func(s *Settings) { s.WriteTimeout = 10 * time.Minute }, "write timeout"},
		{"empty logistic file", func(s *Settings) { s.LogisticModelFile = "" }, "cannot be empty"},
		{"empty tree file", func(s *Settings) { s.TreeModelFile = "" }, "cannot be empty"},
		{"same file", func(s *Settings) { s.TreeModelFile = s.LogisticModelFile }, "different files"},
		{"unknown policy", func(s *Settings) { s.DecisionPolicy = "vote" }, "unknown decision policy"},
		{"bad log level", func(s *Settings) { s.LogLevel = "verbose" }, "invalid log level"},
		{"bad log format", func(s *Settings) { s.LogFormat = "xml" }, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			tt.mutate(settings)

			err := validateSettings(settings)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected error containing %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestValidateSettings_Boundaries(t *testing.T) {
	settings := createValidSettings()
	settings.Port = 65535
	settings.ReadTimeout = time.Second
	settings.WriteTimeout = 300 * time.Second
	settings.LogFormat = "CONSOLE"
	settings.LogLevel = "DEBUG"
	settings.DecisionPolicy = ml.PolicyLogistic

	if err := validateSettings(settings); err != nil {
		t.Errorf("Expected boundary values to pass, got error: %v", err)
	}
}
