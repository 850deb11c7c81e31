// Package logger owns the process-wide logrus logger. Packages never see the
// logger itself; they receive a component-scoped entry from Component.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"birthday_reminder_bot/internal/infra/config"
)

const serviceName = "birthday_reminder_bot"

var root = logrus.New()

// Init applies the configured level and format. An unknown level falls back
// to info; production and staging log JSON, everything else logs text.
func Init(cfg *config.AppConfig) {
	configure(root, cfg)
}

func configure(l *logrus.Logger, cfg *config.AppConfig) {
	l.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		l.Warnf("Invalid log level '%s', defaulting to 'info'", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Environment) {
	case "production", "staging":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap:        logrus.FieldMap{logrus.FieldKeyMsg: "message"},
		})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
}

// Component returns an entry tagged with the service and component names.
// Reminder code adds reminder_id and subject_id fields on top of it.
func Component(name string) *logrus.Entry {
	return root.WithFields(logrus.Fields{
		"service":   serviceName,
		"component": name,
	})
}
