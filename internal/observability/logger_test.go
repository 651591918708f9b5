package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		env, level string
		want       zapcore.Level
	}{
		{"", "", zap.InfoLevel},
		{"development", "", zap.DebugLevel},
		{"dev", "warn", zap.WarnLevel},
		{"production", "DEBUG", zap.DebugLevel},
		{"staging", "chatty", zap.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			t.Setenv("ENV", tt.env)
			t.Setenv("LOG_LEVEL", tt.level)
			assert.Equal(t, tt.want, levelFromEnv())
		})
	}
}

func TestGetSamplingRate(t *testing.T) {
	t.Setenv("LOG_SAMPLE_RATE", "")
	t.Setenv("ENV", "dev")
	assert.Equal(t, 1.0, GetSamplingRate())
	t.Setenv("ENV", "staging")
	assert.Equal(t, 0.5, GetSamplingRate())
	t.Setenv("ENV", "")
	assert.Equal(t, 0.1, GetSamplingRate())

	t.Setenv("LOG_SAMPLE_RATE", "0.25")
	assert.Equal(t, 0.25, GetSamplingRate())
}

func TestSamplingStats(t *testing.T) {
	LogSamplingStats(zap.NewNop())

	assert.True(t, ShouldSample(1))
	assert.False(t, ShouldSample(0))
	assert.Equal(t, SamplingStats{}, CurrentSamplingStats())

	for i := 0; i < 10; i++ {
		ShouldSample(0.5)
	}
	stats := CurrentSamplingStats()
	assert.Equal(t, int64(10), stats.Total)
	assert.LessOrEqual(t, stats.Sampled, int64(10))

	core, logs := observer.New(zap.InfoLevel)
	LogSamplingStats(zap.New(core))
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, SamplingStats{}, CurrentSamplingStats())
}
