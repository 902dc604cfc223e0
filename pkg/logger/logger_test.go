package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env       string
		debugging bool
	}{
		{env: "dev", debugging: true},
		{env: "prod", debugging: false},
		{env: "", debugging: true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			log, err := NewLogger(tt.env, "test")
			require.NoError(t, err)
			assert.Equal(t, tt.debugging, log.Core().Enabled(zapcore.DebugLevel))
		})
	}
}
