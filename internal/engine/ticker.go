// Package engine contains the colony loop and simulation logic.
//
// ARCHITECTURAL RULE: the Ticker knows nothing about colonists. It only
// advances the tick counter and hands each tick to the Engine.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
)

// Simulated clock.
const (
	TicksPerHour   = 2500
	TicksPerDay    = 24 * TicksPerHour
	StartHour      = 6 // Day 1 starts at 06:00
	NightStartHour = 22
	NightEndHour   = 6
)

// TimeTickPayload describes the simulated clock at one tick.
type TimeTickPayload struct {
	GameDay     int   `json:"game_day"`
	GameHour    int   `json:"game_hour"` // 0-23 in-game
	TickNumber  int64 `json:"tick_number"`
	IsNightTime bool  `json:"is_night_time"` // 22:00-06:00
}

// ClockAt converts a tick number to the in-game clock.
func ClockAt(tick int64) TimeTickPayload {
	total := tick + StartHour*TicksPerHour
	hour := int((total % TicksPerDay) / TicksPerHour)
	return TimeTickPayload{
		GameDay:     int(total/TicksPerDay) + 1,
		GameHour:    hour,
		TickNumber:  tick,
		IsNightTime: hour >= NightStartHour || hour < NightEndHour,
	}
}

// Ticker drives the simulation heartbeat in wall-clock time.
type Ticker struct {
	step       func(tick int64)
	logger     *logger.Logger
	rate       time.Duration
	tickNumber atomic.Int64
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// NewTicker creates a ticker that calls step once per rate.
func NewTicker(rate time.Duration, step func(tick int64), log *logger.Logger) *Ticker {
	return &Ticker{
		step:     step,
		logger:   log,
		rate:     rate,
		stopChan: make(chan struct{}),
	}
}

// Start runs the loop until the context is cancelled or Stop is called.
// Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info("Engine ticker started", zap.Duration("rate", t.rate), zap.Int64("tick", t.tickNumber.Load()))

	ticker := time.NewTicker(t.rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Engine ticker stopped by context")
			return
		case <-t.stopChan:
			t.logger.Info("Engine ticker stopped manually")
			return
		case <-ticker.C:
			t.tick()
		}
	}
}

// Stop gracefully stops the ticker. Safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}

// SetTick restores the tick counter, e.g. after a restart.
func (t *Ticker) SetTick(tick int64) {
	t.tickNumber.Store(tick)
}

// CurrentTick returns the last tick handed to the engine.
func (t *Ticker) CurrentTick() int64 {
	return t.tickNumber.Load()
}

func (t *Ticker) tick() {
	t.step(t.tickNumber.Add(1))
}
