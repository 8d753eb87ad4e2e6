package colonist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MRamiBalles/HemogenFarm/internal/domain/bill"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/rules"
)

func TestNewColonistDefaults(t *testing.T) {
	c := NewColonist("C1", "Ada", FactionColony)

	assert.True(t, c.Spawned)
	assert.True(t, c.IsColonist())
	assert.False(t, c.IsPrisonerOfColony())
	assert.False(t, c.Farm.Enabled())
	assert.Equal(t, 1.0, c.Consciousness)
	assert.NotNil(t, c.Bills)
}

func TestHediffLifecycle(t *testing.T) {
	c := NewColonist("C1", "Ada", FactionColony)

	c.AddHediff(HediffBloodLoss, 0.45)
	assert.True(t, c.HasHediff(HediffBloodLoss))

	c.AddHediff(HediffBloodLoss, 0.9)
	assert.Equal(t, 1.0, c.Hediffs[HediffBloodLoss])

	c.HealHediff(HediffBloodLoss, 0.5)
	assert.InDelta(t, 0.5, c.Hediffs[HediffBloodLoss], 1e-9)

	c.HealHediff(HediffBloodLoss, 0.5)
	assert.False(t, c.HasHediff(HediffBloodLoss))
}

func TestSnapshot(t *testing.T) {
	c := NewColonist("C1", "Ada", FactionPrisoner)
	c.Rest.Level = 0.3
	c.Rest.Trend = rules.TrendImproving
	_, _ = c.Bills.Insert(bill.KindExtractHemogen, 0, true)

	s := c.Snapshot(bill.KindExtractHemogen)
	assert.True(t, s.HasRestNeed)
	assert.Equal(t, 0.3, s.RestLevel)
	assert.Equal(t, rules.TrendImproving, s.RestTrend)
	assert.True(t, s.HasPendingBill)
	assert.True(t, s.BillAvailable)
	assert.False(t, s.HasBloodLoss)
}

func TestSnapshotWithoutRestOrBills(t *testing.T) {
	c := NewColonist("C1", "Ada", FactionColony)
	c.Rest = nil
	c.Bills = nil
	c.Genes = append(c.Genes, GeneHemogenic)

	s := c.Snapshot(bill.KindExtractHemogen)
	assert.False(t, s.HasRestNeed)
	assert.False(t, s.HasBillStack)
	assert.False(t, s.HasPendingBill)
	assert.False(t, s.BillAvailable)
	assert.Nil(t, c.PendingBills())
}
