package logger_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vytor/ctiprep/internal/logger"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logger.Level
	}{
		{"debug", logger.DEBUG},
		{"INFO", logger.INFO},
		{"warning", logger.WARN},
		{" error ", logger.ERROR},
		{"bogus", logger.INFO},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, logger.ParseLevel(tt.in), tt.in)
	}
}

func TestLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithLevel(logger.WARN), logger.WithColors(false))

	log.Info("hidden")
	log.Warn("shown %d", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 1")
	assert.Contains(t, out, "WARN")
}

func TestLogger_FieldsAreSorted(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithColors(false)).
		WithPrefix("deck").
		WithFields(map[string]any{"zeta": 1, "alpha": 2})

	log.Info("hello")

	line := buf.String()
	assert.Contains(t, line, "[deck]")
	assert.Less(t, strings.Index(line, "alpha=2"), strings.Index(line, "zeta=1"))
}

func TestLogger_DerivedLoggersShareOutput(t *testing.T) {
	var buf bytes.Buffer
	base := logger.New(logger.WithOutput(&buf), logger.WithColors(false))
	child := base.WithField("k", "v")

	base.Info("one")
	child.Info("two")

	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithColors(false))
	ctx := logger.NewContext(context.Background(), log)

	logger.FromContext(ctx).Info("scoped")
	assert.Contains(t, buf.String(), "scoped")

	assert.NotNil(t, logger.FromContext(context.Background()))
}
