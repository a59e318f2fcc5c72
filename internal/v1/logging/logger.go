package logging

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

type contextKey string

const (
	SocketIDKey contextKey = "socket_id"
	UsernameKey contextKey = "username"
	RoomKey     contextKey = "room"
)

// Initialize sets up the global logger. Verbose mode selects the zap
// development config (colored output, debug level); otherwise the production
// JSON config is used. Disabled logging swaps in a no-op logger.
func Initialize(verbose, enabled bool) error {
	var err error
	once.Do(func() {
		if !enabled {
			logger = zap.NewNop()
			return
		}

		var config zap.Config
		if verbose {
			config = zap.NewDevelopmentConfig()
			config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			config = zap.NewProductionConfig()
			config.EncoderConfig.TimeKey = "timestamp"
			config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		}

		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}

		logger, err = config.Build(zap.AddCallerSkip(1))
	})
	return err
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// Fallback specific for tests or before init
		l, _ := zap.NewDevelopment()
		return l
	}
	return logger
}

// Info logs a message at InfoLevel
func Info(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Info(msg, appendContextFields(ctx, fields)...)
}

// Warn logs a message at WarnLevel
func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, appendContextFields(ctx, fields)...)
}

// Error logs a message at ErrorLevel
func Error(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Error(msg, appendContextFields(ctx, fields)...)
}

// Fatal logs a message at FatalLevel
func Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, appendContextFields(ctx, fields)...)
}

// WithSession returns a context carrying the per-connection identity fields
// that appendContextFields picks up on every log call.
func WithSession(ctx context.Context, socketID, username string) context.Context {
	ctx = context.WithValue(ctx, SocketIDKey, socketID)
	if username != "" {
		ctx = context.WithValue(ctx, UsernameKey, username)
	}
	return ctx
}

func appendContextFields(ctx context.Context, fields []zap.Field) []zap.Field {
	if ctx == nil {
		return fields
	}

	if sid, ok := ctx.Value(SocketIDKey).(string); ok {
		fields = append(fields, zap.String("socket_id", sid))
	}
	if name, ok := ctx.Value(UsernameKey).(string); ok {
		fields = append(fields, zap.String("username", name))
	}
	if room, ok := ctx.Value(RoomKey).(string); ok {
		fields = append(fields, zap.String("room", room))
	}

	fields = append(fields, zap.String("service", "chat-server"))

	return fields
}
