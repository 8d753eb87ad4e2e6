// Package colonist defines the core domain entities for colonists in the simulation.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package colonist

import (
	"github.com/MRamiBalles/HemogenFarm/internal/domain/bill"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/farm"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/rules"
)

// Faction is who the colonist belongs to.
type Faction string

const (
	FactionColony   Faction = "Colony"
	FactionPrisoner Faction = "Prisoner" // Prisoner of the colony
	FactionGuest    Faction = "Guest"
)

// Gene identifiers relevant to hemogen extraction.
const (
	GeneHemogenic = "Hemogenic" // Sanguophage-like; cannot donate
)

// HediffID identifies a health condition.
type HediffID string

const (
	HediffBloodLoss HediffID = "BloodLoss"
)

// RestNeed tracks sleep. Level ranges from 0.0 (exhausted) to 1.0 (fully rested).
type RestNeed struct {
	Level  float64     `json:"level"`
	Trend  rules.Trend `json:"trend"`
	Asleep bool        `json:"asleep"`
}

// Colonist represents the state of a pawn tracked by the server.
type Colonist struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Faction   Faction `json:"faction"`
	Humanlike bool    `json:"humanlike"`
	Spawned   bool    `json:"spawned"`

	Genes   []string             `json:"genes"`
	Rest    *RestNeed            `json:"rest"`    // nil when the pawn has no rest need
	Hediffs map[HediffID]float64 `json:"hediffs"` // ID -> severity

	// Consciousness is the current capacity level, 0.0-1.0.
	Consciousness float64 `json:"consciousness"`
	// ConsciousnessOverride pins Consciousness when set by an operator.
	ConsciousnessOverride *float64 `json:"consciousness_override,omitempty"`

	Bills *bill.Stack `json:"-"`
	Farm  farm.State  `json:"-"`
}

// NewColonist creates a fresh, spawned, fully rested colonist.
func NewColonist(id, name string, faction Faction) *Colonist {
	return &Colonist{
		ID:            id,
		Name:          name,
		Faction:       faction,
		Humanlike:     true,
		Spawned:       true,
		Genes:         []string{},
		Rest:          &RestNeed{Level: 1.0, Trend: rules.TrendFlat},
		Hediffs:       make(map[HediffID]float64),
		Consciousness: 1.0,
		Bills:         bill.NewStack(),
		Farm:          farm.NewState(false),
	}
}

func (c *Colonist) IsHumanlike() bool {
	return c.Humanlike
}

func (c *Colonist) HasGene(gene string) bool {
	for _, g := range c.Genes {
		if g == gene {
			return true
		}
	}
	return false
}

func (c *Colonist) IsColonist() bool {
	return c.Faction == FactionColony
}

func (c *Colonist) IsPrisonerOfColony() bool {
	return c.Faction == FactionPrisoner
}

func (c *Colonist) HasHediff(id HediffID) bool {
	_, ok := c.Hediffs[id]
	return ok
}

// AddHediff adds severity to a condition, creating it if needed.
func (c *Colonist) AddHediff(id HediffID, severity float64) {
	if c.Hediffs == nil {
		c.Hediffs = make(map[HediffID]float64)
	}
	c.Hediffs[id] += severity
	if c.Hediffs[id] > 1.0 {
		c.Hediffs[id] = 1.0
	}
}

// HealHediff reduces a condition's severity and removes it at zero.
func (c *Colonist) HealHediff(id HediffID, amount float64) {
	sev, ok := c.Hediffs[id]
	if !ok {
		return
	}
	sev -= amount
	if sev <= 0 {
		delete(c.Hediffs, id)
		return
	}
	c.Hediffs[id] = sev
}

// PendingBills returns the queued bills, or nil without a bill stack.
func (c *Colonist) PendingBills() []bill.Bill {
	if c.Bills == nil {
		return nil
	}
	return c.Bills.Bills()
}

// Snapshot captures what the hemogen policy needs to decide for this colonist.
func (c *Colonist) Snapshot(kind bill.Kind) rules.Snapshot {
	s := rules.Snapshot{
		HasBloodLoss:  c.HasHediff(HediffBloodLoss),
		Consciousness: c.Consciousness,
		HasBillStack:  c.Bills != nil,
		BillAvailable: bill.AvailableFor(kind, c),
	}
	if c.Rest != nil {
		s.HasRestNeed = true
		s.RestLevel = c.Rest.Level
		s.RestTrend = c.Rest.Trend
	}
	if c.Bills != nil {
		s.HasPendingBill = c.Bills.HasPending(kind)
	}
	return s
}
