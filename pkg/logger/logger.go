// Package logger provides structured logging with context support.
//
// Every line carries the process name and version. Lines logged from a
// request or job context also carry its trace and actor, and an "error"
// value that is an AppError adds its code as "error_code" so allocation
// refusals can be counted from logs alone.
package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ncfledger/internal/core/apperror"
	appctx "ncfledger/internal/core/context"
)

// Logger wraps zap.SugaredLogger with context-aware logging.
type Logger struct {
	*zap.SugaredLogger
}

type loggerKey struct{}

// Config holds logger configuration.
type Config struct {
	Level       string // debug, info, warn, error
	Development bool   // console encoding with colors
	Service     string // server, worker, ncfctl
	Version     string
}

// New creates a new Logger from configuration.
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var config zap.Config
	if cfg.Development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "ts"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	config.Level = zap.NewAtomicLevelAt(level)

	zapLogger, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return wrap(zapLogger, cfg), nil
}

// NewWithCore builds a Logger on an existing core. Tests pass an observer
// core to assert on emitted fields.
func NewWithCore(core zapcore.Core, cfg Config) *Logger {
	return wrap(zap.New(core, zap.AddCallerSkip(1)), cfg)
}

func wrap(z *zap.Logger, cfg Config) *Logger {
	sugar := z.Sugar()
	if cfg.Service != "" {
		sugar = sugar.With("service", cfg.Service)
	}
	if cfg.Version != "" {
		sugar = sugar.With("version", cfg.Version)
	}
	return &Logger{sugar}
}

// Default returns a production logger writing to stdout.
func Default() *Logger {
	defaultOnce.Do(func() {
		config := zap.NewProductionConfig()
		config.OutputPaths = []string{"stdout"}
		zapLogger, err := config.Build(zap.AddCallerSkip(1))
		if err != nil {
			zapLogger = zap.NewNop()
		}
		defaultLogger = &Logger{zapLogger.Sugar()}
	})
	return defaultLogger
}

var (
	defaultOnce   sync.Once
	defaultLogger *Logger
)

// WithContext adds trace and actor info from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	sugar := l.SugaredLogger

	if trace := appctx.GetTrace(ctx); trace != nil {
		sugar = sugar.With(
			"trace_id", trace.TraceID,
			"request_id", trace.RequestID,
		)
	}
	if actor := appctx.GetActor(ctx); actor != nil {
		sugar = sugar.With(
			"actor_id", actor.ID,
			"actor_source", actor.Source,
		)
	}
	return &Logger{sugar}
}

// WithComponent adds component name to logger.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{l.SugaredLogger.With("component", name)}
}

// WithLogger adds Logger to context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns Logger from context or default logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return l.WithContext(ctx)
	}
	return Default().WithContext(ctx)
}

// Debug logs at debug level from context.
func Debug(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Debugw(msg, withErrorCode(keysAndValues)...)
}

// Info logs at info level from context.
func Info(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Infow(msg, withErrorCode(keysAndValues)...)
}

// Warn logs at warn level from context.
func Warn(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Warnw(msg, withErrorCode(keysAndValues)...)
}

// Error logs at error level from context.
func Error(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Errorw(msg, withErrorCode(keysAndValues)...)
}

// withErrorCode appends error_code when an "error" value is an AppError.
func withErrorCode(kv []any) []any {
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i] != "error" {
			continue
		}
		err, ok := kv[i+1].(error)
		if !ok {
			return kv
		}
		if appErr, ok := apperror.AsAppError(err); ok {
			return append(kv[:len(kv):len(kv)], "error_code", appErr.Code)
		}
		return kv
	}
	return kv
}
