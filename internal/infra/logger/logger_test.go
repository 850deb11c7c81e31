package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"birthday_reminder_bot/internal/infra/config"
)

func TestConfigureLevelAndFormat(t *testing.T) {
	l := logrus.New()

	configure(l, &config.AppConfig{LogLevel: "DEBUG", Environment: "production"})
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	configure(l, &config.AppConfig{LogLevel: "loud", Environment: "development"})
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)
}

func TestProductionFormatWritesMessageKey(t *testing.T) {
	l := logrus.New()
	configure(l, &config.AppConfig{LogLevel: "info", Environment: "staging"})
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.WithField("reminder_id", "birthday_s_birthday_2").Info("Reminder sent")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Reminder sent", line["message"])
	assert.Equal(t, "birthday_s_birthday_2", line["reminder_id"])
}

func TestComponentTagsEntries(t *testing.T) {
	hook := test.NewLocal(root)
	defer hook.Reset()

	Component("dispatch_service").Info("Dispatch tick complete")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "dispatch_service", entry.Data["component"])
	assert.Equal(t, serviceName, entry.Data["service"])
}
