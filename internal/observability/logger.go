package observability

import (
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultServiceName names loggers and spans when no service name is configured.
const DefaultServiceName = "availability"

// InitLogger constructs the production logger under DefaultServiceName.
func InitLogger() (*zap.Logger, error) {
	return InitLoggerWithService(DefaultServiceName)
}

// InitLoggerWithService constructs a production zap.Logger for serviceName at
// the level chosen by ENV and LOG_LEVEL.
func InitLoggerWithService(serviceName string) (*zap.Logger, error) {
	return InitLoggerWithLevel(levelFromEnv(), serviceName)
}

// InitLoggerWithLevel constructs a JSON zap.Logger writing to stderr.
// The returned logger is named with the service name and installed as the global logger.
func InitLoggerWithLevel(level zapcore.Level, serviceName string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	// Field names match the Promtail pipeline.
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.NameKey = "logger"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	logger = logger.Named(serviceName).With(zap.String("service", serviceName))
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// levelFromEnv returns LOG_LEVEL when it parses, otherwise debug for
// development environments and info everywhere else.
func levelFromEnv() zapcore.Level {
	if s := strings.TrimSpace(os.Getenv("LOG_LEVEL")); s != "" {
		if lvl, err := zapcore.ParseLevel(strings.ToLower(s)); err == nil {
			return lvl
		}
	}
	switch environment() {
	case "development", "dev":
		return zap.DebugLevel
	default:
		return zap.InfoLevel
	}
}

func environment() string {
	return strings.ToLower(strings.TrimSpace(os.Getenv("ENV")))
}

var (
	sampleTotal atomic.Int64
	sampleKept  atomic.Int64
)

// SamplingStats counts sampling decisions since the last LogSamplingStats.
type SamplingStats struct {
	Total   int64
	Sampled int64
}

// ShouldSample reports whether a per-request log line should be written at
// the given rate in [0, 1].
func ShouldSample(rate float64) bool {
	if rate >= 1.0 {
		return true
	}
	if rate <= 0.0 {
		return false
	}
	keep := rand.Float64() < rate
	sampleTotal.Add(1)
	if keep {
		sampleKept.Add(1)
	}
	return keep
}

// GetSamplingRate returns LOG_SAMPLE_RATE when set, otherwise a default per
// environment: everything in development, half in staging, a tenth in production.
func GetSamplingRate() float64 {
	if s := os.Getenv("LOG_SAMPLE_RATE"); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	switch environment() {
	case "development", "dev":
		return 1.0
	case "staging", "test":
		return 0.5
	default:
		return 0.1
	}
}

// CurrentSamplingStats returns the counters without resetting them.
func CurrentSamplingStats() SamplingStats {
	return SamplingStats{Total: sampleTotal.Load(), Sampled: sampleKept.Load()}
}

// LogSamplingStats logs and resets the sampling counters.
func LogSamplingStats(logger *zap.Logger) {
	total := sampleTotal.Swap(0)
	kept := sampleKept.Swap(0)
	if total == 0 {
		return
	}
	logger.Info("sampling stats",
		zap.Float64("target_rate", GetSamplingRate()),
		zap.Float64("actual_rate", float64(kept)/float64(total)),
		zap.Int64("total_logs", total),
		zap.Int64("sampled_logs", kept),
	)
}
