package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/HemogenFarm/internal/domain/bill"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/colonist"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/farm"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/rules"
	"github.com/MRamiBalles/HemogenFarm/internal/events"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/metrics"
)

// ErrColonistNotFound is returned for unknown colonist IDs.
var ErrColonistNotFound = errors.New("colonist not found")

// SettingsSource provides the colony-wide policy settings.
type SettingsSource interface {
	Current() rules.Settings
}

// Options configures a new Engine.
type Options struct {
	TickRate time.Duration
	// BiotechActive is the host feature flag for hemogen extraction.
	BiotechActive bool
	Metrics       *metrics.Collector
}

// Engine is the central orchestrator that runs every system once per tick.
// All colonist state is guarded by mu; a tick runs to completion before the
// next one or any API mutation.
type Engine struct {
	mu       sync.Mutex
	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector
	settings SettingsSource
	ticker   *Ticker

	// Sub-systems, in the order they run each tick
	restSystem    *RestSystem
	healthSystem  *HealthSystem
	surgerySystem *SurgerySystem
	hemogenSystem *HemogenSystem

	// State
	lastTick  int64
	colonists map[string]*colonist.Colonist
}

// NewEngine initializes the colony systems and dependencies.
func NewEngine(eventLog *events.EventLog, settings SettingsSource, log *logger.Logger, opts Options) *Engine {
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	rate := opts.TickRate
	if rate <= 0 {
		rate = time.Second / 60
	}

	e := &Engine{
		eventLog: eventLog,
		logger:   log,
		metrics:  m,
		settings: settings,

		restSystem:    NewRestSystem(eventLog, log),
		healthSystem:  NewHealthSystem(eventLog, log),
		surgerySystem: NewSurgerySystem(eventLog, log, m),
		hemogenSystem: NewHemogenSystem(eventLog, log, m, opts.BiotechActive),

		colonists: make(map[string]*colonist.Colonist),
	}
	e.ticker = NewTicker(rate, e.Step, log)
	return e
}

// Start runs the ticker until ctx is cancelled. Blocks.
func (e *Engine) Start(ctx context.Context) {
	e.logger.Info("Starting colony engine...")
	e.ticker.Start(ctx)
}

// Stop halts the ticker.
func (e *Engine) Stop() {
	e.ticker.Stop()
}

// OverrideTick restores the clock, e.g. from the last persisted event.
func (e *Engine) OverrideTick(tick int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastTick = tick
	e.ticker.SetTick(tick)
}

// CurrentTick returns the last tick that was processed.
func (e *Engine) CurrentTick() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastTick
}

// Step processes a single tick. The ticker calls it; tests and the headless
// simulator call it directly.
func (e *Engine) Step(tick int64) {
	start := time.Now()

	e.mu.Lock()
	clock := ClockAt(tick)
	settings := e.settings.Current()

	e.restSystem.OnTimeTick(clock)
	e.healthSystem.OnTimeTick(clock)
	e.surgerySystem.OnTimeTick(clock)
	e.hemogenSystem.OnTimeTick(clock, settings)

	e.lastTick = tick
	e.mu.Unlock()

	e.metrics.RecordTick(time.Since(start))
}

// Run steps from the current tick through n more ticks.
func (e *Engine) Run(n int64) {
	from := e.CurrentTick()
	for t := from + 1; t <= from+n; t++ {
		e.Step(t)
	}
	e.ticker.SetTick(from + n)
}

// RegisterColonist adds a colonist to all relevant subsystems.
func (e *Engine) RegisterColonist(c *colonist.Colonist) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c.Bills == nil {
		c.Bills = bill.NewStack()
	}
	e.colonists[c.ID] = c
	e.restSystem.RegisterColonist(c)
	e.healthSystem.RegisterColonist(c)
	e.surgerySystem.RegisterColonist(c)
	e.hemogenSystem.RegisterColonist(c)

	e.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeColonistRegistered,
		ActorID:  events.ActorOperator,
		TargetID: c.ID,
		Payload:  map[string]string{"name": c.Name, "faction": string(c.Faction)},
		Tick:     e.lastTick,
		GameDay:  ClockAt(e.lastTick).GameDay,
	})
	e.logger.Info("Colonist registered with engine sub-systems", zap.String("colonist", c.ID))
}

// RemoveColonist drops a colonist and its farm state.
func (e *Engine) RemoveColonist(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.colonists[id]; !ok {
		return ErrColonistNotFound
	}
	delete(e.colonists, id)
	e.restSystem.UnregisterColonist(id)
	e.healthSystem.UnregisterColonist(id)
	e.surgerySystem.UnregisterColonist(id)
	e.hemogenSystem.UnregisterColonist(id)

	e.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeColonistRemoved,
		ActorID:  events.ActorOperator,
		TargetID: id,
		Tick:     e.lastTick,
		GameDay:  ClockAt(e.lastTick).GameDay,
	})
	e.logger.Info("Colonist removed from engine sub-systems", zap.String("colonist", id))
	return nil
}

// ColonistStatus is a read-only copy of a colonist for callers outside the tick.
type ColonistStatus struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Faction       colonist.Faction   `json:"faction"`
	Genes         []string           `json:"genes"`
	Spawned       bool               `json:"spawned"`
	Rest          *colonist.RestNeed `json:"rest,omitempty"`
	BloodLoss     float64            `json:"blood_loss"`
	Consciousness float64            `json:"consciousness"`
	FarmEnabled   bool               `json:"farm_enabled"`
	Bills         []bill.Bill        `json:"bills"`
}

func statusOf(c *colonist.Colonist) ColonistStatus {
	s := ColonistStatus{
		ID:            c.ID,
		Name:          c.Name,
		Faction:       c.Faction,
		Genes:         append([]string(nil), c.Genes...),
		Spawned:       c.Spawned,
		BloodLoss:     c.Hediffs[colonist.HediffBloodLoss],
		Consciousness: c.Consciousness,
		FarmEnabled:   c.Farm.Enabled(),
		Bills:         c.PendingBills(),
	}
	if c.Rest != nil {
		rest := *c.Rest
		s.Rest = &rest
	}
	return s
}

// Colonists returns a snapshot of every colonist, ordered by ID.
func (e *Engine) Colonists() []ColonistStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]ColonistStatus, 0, len(e.colonists))
	for _, c := range e.colonists {
		out = append(out, statusOf(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Colonist returns a snapshot of one colonist.
func (e *Engine) Colonist(id string) (ColonistStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.colonists[id]
	if !ok {
		return ColonistStatus{}, ErrColonistNotFound
	}
	return statusOf(c), nil
}

// SetFarmEnabled sets the toggle without recording an event. Used when
// restoring persisted state.
func (e *Engine) SetFarmEnabled(id string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.colonists[id]
	if !ok {
		return ErrColonistNotFound
	}
	c.Farm.SetEnabled(enabled)
	return nil
}

// ToggleFarm flips a colonist's automatic extraction toggle and returns the
// new value. Pending bills are left as they are.
func (e *Engine) ToggleFarm(id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.colonists[id]
	if !ok {
		return false, ErrColonistNotFound
	}
	enabled := c.Farm.Toggle()

	e.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeFarmToggled,
		ActorID:  events.ActorOperator,
		TargetID: id,
		Payload:  events.TogglePayload{ColonistID: id, Enabled: enabled},
		Tick:     e.lastTick,
		GameDay:  ClockAt(e.lastTick).GameDay,
	})
	e.logger.Event(string(events.EventTypeFarmToggled), id, "toggle", zap.Bool("enabled", enabled))
	return enabled, nil
}

// Gizmo builds the toggle shown to the player for a colonist.
func (e *Engine) Gizmo(id string) (farm.Gizmo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.colonists[id]
	if !ok {
		return farm.Gizmo{}, ErrColonistNotFound
	}
	return farm.BuildGizmo(
		c.ID,
		c.Farm,
		e.settings.Current(),
		bill.AvailableFor(bill.KindExtractHemogen, c),
		c.IsColonist() || c.IsPrisonerOfColony(),
	), nil
}

// Vitals is an operator override of colonist state. Nil fields are left alone.
type Vitals struct {
	RestLevel     *float64 `json:"rest_level,omitempty"`
	Asleep        *bool    `json:"asleep,omitempty"`
	Consciousness *float64 `json:"consciousness,omitempty"`
	BloodLoss     *float64 `json:"blood_loss,omitempty"`
	Spawned       *bool    `json:"spawned,omitempty"`

	// ClearConsciousness drops a previous consciousness override.
	ClearConsciousness bool `json:"clear_consciousness,omitempty"`
}

// OverrideVitals applies an operator override between ticks.
func (e *Engine) OverrideVitals(id string, v Vitals) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.colonists[id]
	if !ok {
		return ErrColonistNotFound
	}

	if c.Rest != nil {
		if v.RestLevel != nil {
			c.Rest.Level = clamp01(*v.RestLevel)
		}
		if v.Asleep != nil {
			c.Rest.Asleep = *v.Asleep
		}
	}
	if v.ClearConsciousness {
		c.ConsciousnessOverride = nil
	}
	if v.Consciousness != nil {
		level := clamp01(*v.Consciousness)
		c.ConsciousnessOverride = &level
	}
	if v.BloodLoss != nil {
		delete(c.Hediffs, colonist.HediffBloodLoss)
		if *v.BloodLoss > 0 {
			c.AddHediff(colonist.HediffBloodLoss, *v.BloodLoss)
		}
	}
	if v.Spawned != nil {
		c.Spawned = *v.Spawned
	}
	c.Consciousness = consciousnessOf(c)

	e.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeVitalsOverridden,
		ActorID:  events.ActorOperator,
		TargetID: id,
		Payload:  v,
		Tick:     e.lastTick,
		GameDay:  ClockAt(e.lastTick).GameDay,
	})
	return nil
}

// CompleteBill performs a colonist's pending Extract Hemogen bill now.
func (e *Engine) CompleteBill(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.colonists[id]
	if !ok {
		return ErrColonistNotFound
	}
	if err := e.surgerySystem.Complete(c, ClockAt(e.lastTick)); err != nil {
		return err
	}
	c.Consciousness = consciousnessOf(c)
	return nil
}

// AddManualBill queues a bill on behalf of the player rather than the policy.
func (e *Engine) AddManualBill(id string, kind bill.Kind) (bill.Bill, error) {
	if _, ok := bill.GetRecipe(kind); !ok {
		return bill.Bill{}, bill.ErrUnknownRecipe
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.colonists[id]
	if !ok {
		return bill.Bill{}, ErrColonistNotFound
	}
	if !bill.AvailableFor(kind, c) {
		return bill.Bill{}, bill.ErrRecipeUnavailable
	}
	b, err := c.Bills.Insert(kind, e.lastTick, false)
	if err != nil {
		return bill.Bill{}, err
	}
	return *b, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
