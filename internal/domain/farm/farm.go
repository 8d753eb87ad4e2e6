// Package farm holds the per-colonist hemogen farming toggle and the
// text shown for it.
// This package is PURE and must NOT import any infrastructure packages.
package farm

import "github.com/MRamiBalles/HemogenFarm/internal/domain/rules"

// GizmoLabel is the label of the per-colonist toggle.
const GizmoLabel = "Automatically Extract Hemogen"

// GizmoIcon names the icon the client renders on the toggle.
const GizmoIcon = "HemogenPack"

const (
	defaultDescription = "Automatically place the 'Extract Hemogen Pack' bill on this pawn whenever they meet the following conditions:\n\n" +
		"- Pawn Already Resting\n" +
		"- Rest Need Below 40%\n" +
		"- No Blood Loss condition\n\n" +
		"If the bill is not completed by 60% rest, it will be removed, try again the next night. " +
		"This ensures we only take it when pawns can sleep off the worst of it."

	ignoreRestDescription = "Automatically place the 'Extract Hemogen Pack' bill on this pawn whenever they meet the following conditions:\n\n" +
		"- Pawn Already Resting\n" +
		"- No Blood Loss condition"
)

// State is the persisted per-colonist farming toggle. The zero value is disabled.
type State struct {
	enabled bool
}

// NewState creates a state with the given toggle value.
func NewState(enabled bool) State {
	return State{enabled: enabled}
}

// Enabled reports whether automatic extraction is on.
func (s *State) Enabled() bool {
	return s.enabled
}

// SetEnabled sets the toggle.
func (s *State) SetEnabled(v bool) {
	s.enabled = v
}

// Toggle flips the toggle and returns the new value.
func (s *State) Toggle() bool {
	s.enabled = !s.enabled
	return s.enabled
}

// Description returns the toggle's hover text for the given settings.
func Description(settings rules.Settings) string {
	if settings.IgnoreRestCondition {
		return ignoreRestDescription
	}
	return defaultDescription
}

// Gizmo is the client-facing description of the toggle.
type Gizmo struct {
	ColonistID  string `json:"colonist_id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Active      bool   `json:"active"`
	Visible     bool   `json:"visible"`
}

// BuildGizmo assembles the toggle. It is only shown for colony members and
// prisoners of the colony when the recipe can be performed on them.
func BuildGizmo(colonistID string, state State, settings rules.Settings, recipeAvailable, colonyMember bool) Gizmo {
	return Gizmo{
		ColonistID:  colonistID,
		Label:       GizmoLabel,
		Description: Description(settings),
		Icon:        GizmoIcon,
		Active:      state.Enabled(),
		Visible:     recipeAvailable && colonyMember,
	}
}
