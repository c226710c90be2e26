package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/eventmail/internal/config"
)

func TestNewServeCmd_Flags(t *testing.T) {
	cmd := newServeCmd()

	for _, name := range []string{
		"debug",
		"http-addr",
		"google-client-id",
		"classifier",
		"gmail-query",
		"gmail-max-results",
		"fetch-concurrency",
		"metrics-enabled",
		"metrics-addr",
		"allowed-origin",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "expected flag %q to be registered", name)
	}

	assert.Equal(t, "serve", cmd.Use)
}

func TestBuildClassifier(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.ClassifierConfig
		wantName  string
		expectErr bool
	}{
		{
			name:     "keyword strategy",
			cfg:      config.ClassifierConfig{Strategy: config.StrategyKeyword},
			wantName: "keyword",
		},
		{
			name: "gemini strategy",
			cfg: config.ClassifierConfig{
				Strategy:     config.StrategyGemini,
				GeminiAPIKey: "test-key",
				GeminiModel:  "gemini-1.5-flash",
			},
			wantName: "gemini",
		},
		{
			name:      "unknown strategy",
			cfg:       config.ClassifierConfig{Strategy: "magic"},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier, err := buildClassifier(&config.Config{Classifier: tt.cfg}, nil)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, classifier.Name())
		})
	}
}
