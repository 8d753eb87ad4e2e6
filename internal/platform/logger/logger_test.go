package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)

	l, err := New(Options{Development: true, Level: "debug"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestEventCarriesAuditFields(t *testing.T) {
	base, logs := NewObserved(zapcore.InfoLevel)
	l := base.With(zap.String("colony", "COLONY_1"))

	l.Event("BILL_SCHEDULED", "C001", "Extract hemogen", zap.Float64("rest", 0.3))
	l.Debug("dropped")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "BILL_SCHEDULED", fields["event_type"])
	assert.Equal(t, "C001", fields["actor"])
	assert.Equal(t, "COLONY_1", fields["colony"])
	assert.Equal(t, 0.3, fields["rest"])
}
