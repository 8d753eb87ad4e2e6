package bill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePatient struct {
	humanlike bool
	genes     []string
}

func (p fakePatient) IsHumanlike() bool { return p.humanlike }

func (p fakePatient) HasGene(gene string) bool {
	for _, g := range p.genes {
		if g == gene {
			return true
		}
	}
	return false
}

func TestInsertRejectsDuplicates(t *testing.T) {
	s := NewStack()

	b, err := s.Insert(KindExtractHemogen, 750, true)
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.True(t, s.HasPending(KindExtractHemogen))

	_, err = s.Insert(KindExtractHemogen, 1500, true)
	assert.ErrorIs(t, err, ErrDuplicateBill)
	assert.Equal(t, 1, s.Len())
}

func TestRemoveAllKeepsOtherKinds(t *testing.T) {
	s := NewStack()
	_, err := s.Insert(KindAnesthetize, 0, false)
	require.NoError(t, err)
	_, err = s.Insert(KindExtractHemogen, 0, true)
	require.NoError(t, err)
	_, err = s.Insert(KindBloodTransfusion, 0, false)
	require.NoError(t, err)

	assert.Equal(t, 1, s.RemoveAll(KindExtractHemogen))
	assert.False(t, s.HasPending(KindExtractHemogen))

	kinds := []Kind{}
	for _, b := range s.Bills() {
		kinds = append(kinds, b.Kind)
	}
	assert.Equal(t, []Kind{KindAnesthetize, KindBloodTransfusion}, kinds)
}

func TestRemoveAllIsIdempotent(t *testing.T) {
	s := NewStack()

	assert.Equal(t, 0, s.RemoveAll(KindExtractHemogen))
	assert.Equal(t, 0, s.RemoveAll(KindExtractHemogen))
	assert.Equal(t, 0, s.Len())
}

func TestRemoveByID(t *testing.T) {
	s := NewStack()
	b, err := s.Insert(KindExtractHemogen, 0, false)
	require.NoError(t, err)

	assert.True(t, s.Remove(b.ID))
	assert.False(t, s.Remove(b.ID))
}

func TestAvailableFor(t *testing.T) {
	assert.True(t, AvailableFor(KindExtractHemogen, fakePatient{humanlike: true}))
	assert.False(t, AvailableFor(KindExtractHemogen, fakePatient{humanlike: false}))
	assert.False(t, AvailableFor(KindExtractHemogen, fakePatient{humanlike: true, genes: []string{"Hemogenic"}}))
	assert.False(t, AvailableFor(Kind("UNKNOWN"), fakePatient{humanlike: true}))
	assert.True(t, AvailableFor(KindBloodTransfusion, fakePatient{humanlike: true, genes: []string{"Hemogenic"}}))
}
