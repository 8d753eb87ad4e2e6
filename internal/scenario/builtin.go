package scenario

import (
	"errors"
	"fmt"

	"github.com/MRamiBalles/HemogenFarm/internal/domain/bill"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/colonist"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/rules"
	"github.com/MRamiBalles/HemogenFarm/internal/engine"
	"github.com/MRamiBalles/HemogenFarm/internal/events"
)

// Tick of the first evaluation after a colonist awake since 06:00 goes to bed.
const firstNightEvaluation = 40500

// Builtin returns the stock scenarios.
func Builtin() []Scenario {
	return []Scenario{
		{
			Name:        "full-night",
			Description: "A farmed colonist sleeps one night and gives exactly one pack",
			Run: func(h *Harness) error {
				h.AddColonist("C1", true)
				h.Engine.Run(engine.TicksPerDay)
				return errors.Join(
					Expect("scheduled", h.Count(events.EventTypeBillScheduled), 1),
					Expect("completed", h.Count(events.EventTypeBillCompleted), 1),
					Expect("cancelled", h.Count(events.EventTypeBillCancelled), 0),
				)
			},
		},
		{
			Name:        "single-pending-bill",
			Description: "Three days with the rest condition ignored never stack two bills",
			Settings:    rules.Settings{IgnoreRestCondition: true},
			Run: func(h *Harness) error {
				h.AddColonist("C1", true)
				for i := 0; i < 3*engine.TicksPerDay/rules.EvaluationInterval; i++ {
					h.Engine.Run(rules.EvaluationInterval)
					st, err := h.Engine.Colonist("C1")
					if err != nil {
						return err
					}
					if len(st.Bills) > 1 {
						return fmt.Errorf("tick %d: %d pending bills", h.Engine.CurrentTick(), len(st.Bills))
					}
				}
				return nil
			},
		},
		{
			Name:        "low-consciousness",
			Description: "A pending bill is pulled once consciousness drops to the floor",
			Run: func(h *Harness) error {
				h.AddColonist("C1", true)
				h.Engine.Run(firstNightEvaluation)
				if err := Expect("scheduled", h.Count(events.EventTypeBillScheduled), 1); err != nil {
					return err
				}
				low := rules.MinConsciousness
				if err := h.Engine.OverrideVitals("C1", engine.Vitals{Consciousness: &low}); err != nil {
					return err
				}
				h.Engine.Run(rules.EvaluationInterval)
				return Expect("cancelled", h.Count(events.EventTypeBillCancelled), 1)
			},
		},
		{
			Name:        "ignore-rest-toggle",
			Description: "A well rested sleeper is only farmed while the rest condition is ignored",
			Run: func(h *Harness) error {
				h.AddColonist("C1", true)
				h.Engine.Run(firstNightEvaluation - 1)
				rested, asleep := 0.75, true
				if err := h.Engine.OverrideVitals("C1", engine.Vitals{RestLevel: &rested, Asleep: &asleep}); err != nil {
					return err
				}
				h.Engine.Run(1)
				if err := Expect("scheduled without flag", h.Count(events.EventTypeBillScheduled), 0); err != nil {
					return err
				}
				h.SetIgnoreRest(true)
				h.Engine.Run(rules.EvaluationInterval)
				if err := Expect("scheduled with flag", h.Count(events.EventTypeBillScheduled), 1); err != nil {
					return err
				}
				h.SetIgnoreRest(false)
				h.Engine.Run(rules.EvaluationInterval)
				return Expect("cancelled after flag cleared", h.Count(events.EventTypeBillCancelled), 1)
			},
		},
		{
			Name:        "toggle-off-manual-bill",
			Description: "With the toggle off the policy never touches a manual bill",
			Run: func(h *Harness) error {
				h.AddColonist("C1", false)
				if _, err := h.Engine.AddManualBill("C1", bill.KindExtractHemogen); err != nil {
					return err
				}
				h.Engine.Run(engine.TicksPerDay)
				return errors.Join(
					Expect("scheduled", h.Count(events.EventTypeBillScheduled), 0),
					Expect("cancelled", h.Count(events.EventTypeBillCancelled), 0),
				)
			},
		},
		{
			Name:        "hemogenic-donor",
			Description: "A colonist with the Hemogenic gene is never farmed",
			Run: func(h *Harness) error {
				c := h.AddColonist("C1", true)
				c.Genes = append(c.Genes, colonist.GeneHemogenic)
				h.Engine.Run(engine.TicksPerDay)
				return Expect("scheduled", h.Count(events.EventTypeBillScheduled), 0)
			},
		},
	}
}

// Select returns the named scenarios, or all of them when names is empty.
func Select(all []Scenario, names []string) ([]Scenario, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]Scenario, len(all))
	for _, sc := range all {
		byName[sc.Name] = sc
	}
	out := make([]Scenario, 0, len(names))
	for _, n := range names {
		sc, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", n)
		}
		out = append(out, sc)
	}
	return out, nil
}
