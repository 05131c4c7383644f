package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log      *zap.Logger
	initOnce sync.Once
)

// Init configures the process-wide structured logger. Safe to call more
// than once; only the first call takes effect.
func Init() {
	initOnce.Do(func() {
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.TimeKey = "ts"
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		level := zapcore.InfoLevel
		if os.Getenv("LOG_LEVEL") == "debug" {
			level = zapcore.DebugLevel
		}

		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.Lock(os.Stdout),
			level,
		)
		log = zap.New(core)
	})
}

func fields(data map[string]interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(data))
	for key, value := range data {
		out = append(out, zap.Any(key, value))
	}
	return out
}

func Info(event string, data map[string]interface{}) {
	if log == nil {
		Init()
	}
	log.Info(event, fields(data)...)
}

func Warn(event string, data map[string]interface{}) {
	if log == nil {
		Init()
	}
	log.Warn(event, fields(data)...)
}

func Error(event string, err error, data map[string]interface{}) {
	if log == nil {
		Init()
	}
	log.Error(event, append(fields(data), zap.Error(err))...)
}

func InfoWithUser(userID, event string, data map[string]interface{}) {
	if log == nil {
		Init()
	}
	log.Info(event, append(fields(data), zap.String("user_id", userID))...)
}

func WarnWithUser(userID, event string, data map[string]interface{}) {
	if log == nil {
		Init()
	}
	log.Warn(event, append(fields(data), zap.String("user_id", userID))...)
}
