package billetera

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Supported logging backends.
const (
	LogBackendZap     = "zap"
	LogBackendZerolog = "zerolog"
	LogBackendLogrus  = "logrus"
)

// badKey labels a value that has no string key, as log/slog does.
const badKey = "!BADKEY"

// NewLogger builds a JSON logger writing to w with the given backend and
// level (debug, info, warn or error).
func NewLogger(backend, level string, w io.Writer) (Logger, error) {
	level = strings.ToLower(level)

	switch strings.ToLower(backend) {
	case LogBackendZap, "":
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		return NewZapLogger(zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), lvl))), nil

	case LogBackendZerolog:
		lvl, err := zerolog.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		return NewZerologLogger(zerolog.New(w).Level(lvl).With().Timestamp().Logger()), nil

	case LogBackendLogrus:
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		l := logrus.New()
		l.SetOutput(w)
		l.SetFormatter(&logrus.JSONFormatter{})
		l.SetLevel(lvl)
		return NewLogrusLogger(l), nil
	}

	return nil, fmt.Errorf("unknown log backend %q", backend)
}

// NewZapLogger returns a Logger adapter for zap.Logger.
func NewZapLogger(l *zap.Logger) Logger {
	return &zapLoggerAdapter{l.Sugar()}
}

type zapLoggerAdapter struct{ l *zap.SugaredLogger }

func (z *zapLoggerAdapter) Debug(msg string, args ...any) { z.l.Debugw(msg, args...) }
func (z *zapLoggerAdapter) Info(msg string, args ...any)  { z.l.Infow(msg, args...) }
func (z *zapLoggerAdapter) Warn(msg string, args ...any)  { z.l.Warnw(msg, args...) }
func (z *zapLoggerAdapter) Error(msg string, args ...any) { z.l.Errorw(msg, args...) }

// NewZerologLogger returns a Logger adapter for zerolog.Logger.
func NewZerologLogger(l zerolog.Logger) Logger {
	return &zerologLoggerAdapter{l}
}

type zerologLoggerAdapter struct{ l zerolog.Logger }

func (z *zerologLoggerAdapter) Debug(msg string, args ...any) {
	z.l.Debug().Fields(fields(args)).Msg(msg)
}
func (z *zerologLoggerAdapter) Info(msg string, args ...any) {
	z.l.Info().Fields(fields(args)).Msg(msg)
}
func (z *zerologLoggerAdapter) Warn(msg string, args ...any) {
	z.l.Warn().Fields(fields(args)).Msg(msg)
}
func (z *zerologLoggerAdapter) Error(msg string, args ...any) {
	z.l.Error().Fields(fields(args)).Msg(msg)
}

// NewLogrusLogger returns a Logger adapter for logrus.FieldLogger.
func NewLogrusLogger(l logrus.FieldLogger) Logger {
	return &logrusLoggerAdapter{l}
}

type logrusLoggerAdapter struct{ l logrus.FieldLogger }

func (l *logrusLoggerAdapter) Debug(msg string, args ...any) {
	l.l.WithFields(logrus.Fields(fields(args))).Debug(msg)
}
func (l *logrusLoggerAdapter) Info(msg string, args ...any) {
	l.l.WithFields(logrus.Fields(fields(args))).Info(msg)
}
func (l *logrusLoggerAdapter) Warn(msg string, args ...any) {
	l.l.WithFields(logrus.Fields(fields(args))).Warn(msg)
}
func (l *logrusLoggerAdapter) Error(msg string, args ...any) {
	l.l.WithFields(logrus.Fields(fields(args))).Error(msg)
}

// fields turns slog-style alternating key/value args into a map. Errors are
// stored as their message so every backend renders them the same way.
func fields(args []any) map[string]any {
	out := make(map[string]any, len(args)/2)
	for i := 0; i < len(args); i++ {
		key, ok := args[i].(string)
		if !ok || i+1 == len(args) {
			out[badKey] = args[i]
			continue
		}
		v := args[i+1]
		if err, isErr := v.(error); isErr {
			v = err.Error()
		}
		out[key] = v
		i++
	}
	return out
}
