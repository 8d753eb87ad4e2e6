// Package scenario runs scripted nights against a fresh engine and checks
// the extraction policy's outcomes. The hemofarm-sim binary prints the results.
package scenario

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/HemogenFarm/internal/domain/colonist"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/rules"
	"github.com/MRamiBalles/HemogenFarm/internal/engine"
	"github.com/MRamiBalles/HemogenFarm/internal/events"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/metrics"
)

// Result captures the outcome of one scenario.
type Result struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Passed      bool          `json:"passed"`
	Reason      string        `json:"reason,omitempty"`
	Scheduled   int           `json:"scheduled"`
	Cancelled   int           `json:"cancelled"`
	Completed   int           `json:"completed"`
	Ticks       int64         `json:"ticks"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Scenario is one scripted run.
type Scenario struct {
	Name        string
	Description string
	Settings    rules.Settings
	Run         func(h *Harness) error
}

// Harness gives a scenario a private engine and event log.
type Harness struct {
	Engine   *engine.Engine
	EventLog *events.EventLog
	settings staticSettings
}

type staticSettings struct{ s *rules.Settings }

func (s staticSettings) Current() rules.Settings { return *s.s }

func newHarness(settings rules.Settings, log *logger.Logger) *Harness {
	el := events.NewEventLog(nil)
	st := staticSettings{s: &settings}
	return &Harness{
		Engine:   engine.NewEngine(el, st, log, engine.Options{BiotechActive: true, Metrics: metrics.New()}),
		EventLog: el,
		settings: st,
	}
}

// SetIgnoreRest changes the colony-wide flag between steps.
func (h *Harness) SetIgnoreRest(v bool) {
	h.settings.s.IgnoreRestCondition = v
}

// Count returns how many events of a type were recorded.
func (h *Harness) Count(t events.EventType) int {
	return len(h.EventLog.GetByType(t))
}

// AddColonist registers a rested colonist with the toggle set.
func (h *Harness) AddColonist(id string, farmEnabled bool) *colonist.Colonist {
	c := colonist.NewColonist(id, id, colonist.FactionColony)
	c.Rest = &colonist.RestNeed{Level: 1.0, Trend: rules.TrendFlat}
	c.Farm.SetEnabled(farmEnabled)
	h.Engine.RegisterColonist(c)
	return c
}

// Expect fails the scenario unless got equals want.
func Expect(what string, got, want int) error {
	if got != want {
		return fmt.Errorf("%s: got %d, want %d", what, got, want)
	}
	return nil
}

// Run executes scenarios in order. A cancelled context stops before the next one.
func Run(ctx context.Context, scenarios []Scenario, log *logger.Logger) []Result {
	results := make([]Result, 0, len(scenarios))
	for _, sc := range scenarios {
		if ctx.Err() != nil {
			break
		}
		results = append(results, runOne(sc, log))
	}
	return results
}

func runOne(sc Scenario, log *logger.Logger) Result {
	h := newHarness(sc.Settings, log.With(zap.String("scenario", sc.Name)))
	start := time.Now()
	err := sc.Run(h)

	r := Result{
		Name:        sc.Name,
		Description: sc.Description,
		Passed:      err == nil,
		Scheduled:   h.Count(events.EventTypeBillScheduled),
		Cancelled:   h.Count(events.EventTypeBillCancelled),
		Completed:   h.Count(events.EventTypeBillCompleted),
		Ticks:       h.Engine.CurrentTick(),
		Elapsed:     time.Since(start),
	}
	if err != nil {
		r.Reason = err.Error()
	}
	return r
}
