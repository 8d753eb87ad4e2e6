// Package bill defines medical bills and the per-colonist bill stack.
// This package is PURE and must NOT import any infrastructure packages.
package bill

import (
	"errors"

	"github.com/google/uuid"
)

// Kind identifies the recipe a bill performs.
type Kind string

const (
	KindExtractHemogen   Kind = "EXTRACT_HEMOGEN_PACK"
	KindBloodTransfusion Kind = "BLOOD_TRANSFUSION"
	KindAnesthetize      Kind = "ANESTHETIZE"
)

var (
	// ErrDuplicateBill is returned when a bill of the same kind is already queued.
	ErrDuplicateBill = errors.New("bill of this kind already pending")
	// ErrUnknownRecipe is returned for a kind missing from the registry.
	ErrUnknownRecipe = errors.New("unknown recipe")
	// ErrRecipeUnavailable is returned when the patient cannot receive the recipe.
	ErrRecipeUnavailable = errors.New("recipe not available for this patient")
)

// Recipe provides metadata about a bill kind.
type Recipe struct {
	Label       string
	Description string
	WorkTicks   int64 // Ticks of surgery work once the patient is in bed
	// BloodLossSeverity is applied to the patient when the surgery completes.
	BloodLossSeverity float64
	// BloodLossHeal is removed from the patient's blood loss on completion.
	BloodLossHeal float64
	// ExcludeGene makes the recipe unavailable for carriers of this gene.
	ExcludeGene string
}

// Registry contains all known recipes.
var Registry = map[Kind]Recipe{
	KindExtractHemogen: {
		Label:             "Extract Hemogen Pack",
		Description:       "Extract a hemogen pack from the patient. Causes blood loss.",
		WorkTicks:         1500,
		BloodLossSeverity: 0.45,
		ExcludeGene:       "Hemogenic",
	},
	KindBloodTransfusion: {
		Label:         "Blood Transfusion",
		Description:   "Administer a hemogen pack to reduce blood loss.",
		WorkTicks:     1000,
		BloodLossHeal: 0.35,
	},
	KindAnesthetize: {
		Label:       "Anesthetize",
		Description: "Put the patient under.",
		WorkTicks:   500,
	},
}

// GetRecipe returns the recipe for a bill kind.
func GetRecipe(k Kind) (Recipe, bool) {
	r, ok := Registry[k]
	return r, ok
}

// Patient is what a recipe needs to know about the colonist it targets.
type Patient interface {
	IsHumanlike() bool
	HasGene(gene string) bool
}

// AvailableFor reports whether a recipe can currently be performed on a patient.
func AvailableFor(kind Kind, p Patient) bool {
	r, ok := Registry[kind]
	if !ok || p == nil || !p.IsHumanlike() {
		return false
	}
	if r.ExcludeGene != "" && p.HasGene(r.ExcludeGene) {
		return false
	}
	return true
}

// Bill is a queued medical operation not yet performed.
type Bill struct {
	ID         string `json:"id"`
	Kind       Kind   `json:"kind"`
	PlacedTick int64  `json:"placed_tick"`
	// Auto is true when the bill was placed by the hemogen policy.
	Auto bool `json:"auto"`
}

// Stack is the ordered list of bills queued on a colonist.
type Stack struct {
	bills []*Bill
}

// NewStack creates an empty bill stack.
func NewStack() *Stack {
	return &Stack{bills: make([]*Bill, 0)}
}

// Bills returns a copy of the queued bills in order.
func (s *Stack) Bills() []Bill {
	out := make([]Bill, 0, len(s.bills))
	for _, b := range s.bills {
		out = append(out, *b)
	}
	return out
}

// Len returns the number of queued bills.
func (s *Stack) Len() int {
	return len(s.bills)
}

// HasPending reports whether a bill of this kind is queued.
func (s *Stack) HasPending(kind Kind) bool {
	return s.First(kind) != nil
}

// First returns the oldest bill of this kind, or nil.
func (s *Stack) First(kind Kind) *Bill {
	for _, b := range s.bills {
		if b.Kind == kind {
			return b
		}
	}
	return nil
}

// Insert queues a new bill of this kind. At most one bill per kind is kept.
func (s *Stack) Insert(kind Kind, tick int64, auto bool) (*Bill, error) {
	if s.HasPending(kind) {
		return nil, ErrDuplicateBill
	}
	b := &Bill{
		ID:         uuid.NewString(),
		Kind:       kind,
		PlacedTick: tick,
		Auto:       auto,
	}
	s.bills = append(s.bills, b)
	return b, nil
}

// RemoveAll deletes every bill of this kind and returns how many were removed.
func (s *Stack) RemoveAll(kind Kind) int {
	kept := s.bills[:0]
	removed := 0
	for _, b := range s.bills {
		if b.Kind == kind {
			removed++
			continue
		}
		kept = append(kept, b)
	}
	for i := len(kept); i < len(s.bills); i++ {
		s.bills[i] = nil
	}
	s.bills = kept
	return removed
}

// Remove deletes a single bill by ID.
func (s *Stack) Remove(id string) bool {
	for i, b := range s.bills {
		if b.ID == id {
			s.bills = append(s.bills[:i], s.bills[i+1:]...)
			return true
		}
	}
	return false
}
