package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/config"
)

func TestNewSugaredLogger(t *testing.T) {
	tests := []struct {
		name    string
		logging map[string]interface{}
		wantErr bool
	}{
		{
			name:    "json production",
			logging: map[string]interface{}{"level": "info", "encoding": "json"},
		},
		{
			name:    "console development",
			logging: map[string]interface{}{"level": "debug", "development": true, "encoding": "console"},
		},
		{
			name:    "bad level",
			logging: map[string]interface{}{"level": "shouting"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := config.NewStaticProvider(map[string]interface{}{"logging": tt.logging})
			require.NoError(t, err)

			logger, err := NewSugaredLogger(provider)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
			assert.NotNil(t, NewLogger(logger))
		})
	}
}
