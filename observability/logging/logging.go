package logging

import (
	"log"
	"log/slog"
	"os"
	"strings"
)

const (
	defaultService = "tradevaultd"
	levelEnv       = "TRADEVAULT_LOG_LEVEL"
)

// Setup installs a JSON slog handler as the process default and returns it.
// Every line carries the service name (defaulting to tradevaultd) and the
// environment when provided; the minimum level comes from TRADEVAULT_LOG_LEVEL.
func Setup(service, env string) *slog.Logger {
	if service = strings.TrimSpace(service); service == "" {
		service = defaultService
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       levelFromEnv(),
		ReplaceAttr: remapAttr,
	})

	attrs := []slog.Attr{slog.String("service", service)}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}

	base := slog.New(handler).With(args...)
	slog.SetDefault(base)
	bridgeStdLog(handler.WithAttrs(attrs))
	return base
}

// remapAttr renames the built-in slog keys to the field names the node's log
// consumers index on.
func remapAttr(groups []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		return slog.Attr{Key: "timestamp", Value: attr.Value}
	case slog.LevelKey:
		return slog.String("severity", strings.ToUpper(attr.Value.String()))
	case slog.MessageKey:
		return slog.Attr{Key: "message", Value: attr.Value}
	}
	return attr
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(levelEnv))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// bridgeStdLog routes the standard library logger through the same handler so
// dependency log lines keep the structured shape.
func bridgeStdLog(handler slog.Handler) {
	bridge := slog.NewLogLogger(handler, slog.LevelInfo)
	bridge.SetFlags(0)
	log.SetOutput(bridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")
}
