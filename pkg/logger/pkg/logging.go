package logging

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type ctxKey string

const requestIDKey ctxKey = "x_request_id"

var _logger = NewTmpLogger()

// NewLogger builds a logger from the logging section of the config file.
func NewLogger() (*zap.Logger, error) {
	var c zap.Config
	var opts []zap.Option
	if viper.GetBool("logging.pretty") {
		c = zap.NewDevelopmentConfig()
		opts = append(opts, zap.AddStacktrace(zap.ErrorLevel))
	} else {
		c = zap.NewProductionConfig()
	}

	level := zap.NewAtomicLevel()

	levelName := viper.GetString("logging.level")
	if levelName == "" {
		levelName = "INFO"
	}
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return nil, fmt.Errorf("could not parse log level %s", levelName)
	}
	c.Level = level

	return c.Build(opts...)
}

func InitLogger() (err error) {
	_logger, err = NewLogger()
	return err
}

func NewTmpLogger() *zap.Logger {
	c := zap.NewProductionConfig()
	c.DisableStacktrace = true
	l, err := c.Build()
	if err != nil {
		panic(err)
	}
	return l
}

// WithRequestID stores a request id on the context so Logger picks it up.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Logger returns the process logger enriched with the request id from ctx.
// ctx is nillable.
func Logger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return _logger
	}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		return _logger.With(zap.String(string(requestIDKey), requestID))
	}
	return _logger
}
