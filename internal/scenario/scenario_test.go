package scenario

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
)

func TestBuiltinScenariosPass(t *testing.T) {
	results := Run(context.Background(), Builtin(), logger.NewTestLogger(t))
	require.Len(t, results, len(Builtin()))
	for _, r := range results {
		assert.True(t, r.Passed, "%s: %s", r.Name, r.Reason)
	}
}

func TestFailingScenarioReportsReason(t *testing.T) {
	failing := Scenario{
		Name: "always-fails",
		Run: func(h *Harness) error {
			h.AddColonist("C1", true)
			h.Engine.Run(10)
			return Expect("scheduled", 0, 1)
		},
	}

	results := Run(context.Background(), []Scenario{failing}, logger.NewTestLogger(t))
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Equal(t, "scheduled: got 0, want 1", results[0].Reason)
	assert.Equal(t, int64(10), results[0].Ticks)
}

func TestEngineLogsCarryScenarioName(t *testing.T) {
	log, logs := logger.NewObserved(zapcore.InfoLevel)
	sc := Scenario{
		Name: "tagged",
		Run: func(h *Harness) error {
			h.AddColonist("C1", false)
			return nil
		},
	}

	Run(context.Background(), []Scenario{sc}, log)

	registered := logs.FilterMessage("Colonist registered with engine sub-systems").All()
	require.Len(t, registered, 1)
	assert.Equal(t, "tagged", registered[0].ContextMap()["scenario"])
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, Run(ctx, Builtin(), logger.NewTestLogger(t)))
}

func TestSelect(t *testing.T) {
	picked, err := Select(Builtin(), []string{"hemogenic-donor", "full-night"})
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "hemogenic-donor", picked[0].Name)

	all, err := Select(Builtin(), nil)
	require.NoError(t, err)
	assert.Len(t, all, len(Builtin()))

	_, err = Select(Builtin(), []string{"nope"})
	assert.Error(t, err)
}

func TestExpect(t *testing.T) {
	assert.NoError(t, Expect("x", 1, 1))
	err := errors.Join(Expect("a", 1, 2), Expect("b", 3, 3))
	assert.EqualError(t, err, "a: got 1, want 2")
}
