package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/HemogenFarm/internal/domain/rules"
	"github.com/MRamiBalles/HemogenFarm/internal/infra/storage"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
)

type memRepo struct {
	values map[string]bool
	err    error
}

func (m *memRepo) GetBool(_ context.Context, key string, def bool) (bool, error) {
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return def, nil
}

func (m *memRepo) SetBool(_ context.Context, key string, value bool) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func TestStoreDefaultsToFalse(t *testing.T) {
	s := NewStore(&memRepo{values: map[string]bool{}}, logger.NewTestLogger(t))
	require.NoError(t, s.Load(context.Background()))
	assert.False(t, s.Current().IgnoreRestCondition)
}

func TestStoreLoadsPersistedValue(t *testing.T) {
	repo := &memRepo{values: map[string]bool{storage.KeyIgnoreRestCondition: true}}
	s := NewStore(repo, logger.NewTestLogger(t))
	require.NoError(t, s.Load(context.Background()))
	assert.True(t, s.Current().IgnoreRestCondition)
}

func TestStoreSetPersistsAndNotifies(t *testing.T) {
	repo := &memRepo{values: map[string]bool{}}
	s := NewStore(repo, logger.NewTestLogger(t))

	var seen []rules.Settings
	s.OnChange(func(v rules.Settings) { seen = append(seen, v) })

	got, err := s.SetIgnoreRestCondition(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, got.IgnoreRestCondition)
	assert.True(t, repo.values[storage.KeyIgnoreRestCondition])

	_, err = s.SetIgnoreRestCondition(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, seen, 1, "unchanged value does not notify")
}

func TestStoreKeepsValueWhenSaveFails(t *testing.T) {
	repo := &memRepo{values: map[string]bool{}, err: errors.New("disk full")}
	s := NewStore(repo, logger.NewTestLogger(t))

	_, err := s.SetIgnoreRestCondition(context.Background(), true)
	require.Error(t, err)
	assert.False(t, s.Current().IgnoreRestCondition)
}

func TestSurface(t *testing.T) {
	s := NewStore(nil, logger.NewTestLogger(t))
	_, err := s.SetIgnoreRestCondition(context.Background(), true)
	require.NoError(t, err)

	surface := s.Surface()
	require.Len(t, surface, 1)
	assert.Equal(t, Checkbox{
		Key:     "ignoreRestCondition",
		Label:   "Ignore Rest Condition",
		Tooltip: "If checked, the rest condition will be ignored when deciding to extract hemogen.",
		Checked: true,
	}, surface[0])
}

type blockingRepo struct {
	memRepo
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRepo) SetBool(ctx context.Context, key string, value bool) error {
	close(b.entered)
	<-b.release
	return b.memRepo.SetBool(ctx, key, value)
}

func TestStoreReadsDuringSlowSave(t *testing.T) {
	repo := &blockingRepo{
		memRepo: memRepo{values: map[string]bool{}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := NewStore(repo, logger.NewTestLogger(t))

	saved := make(chan rules.Settings)
	go func() {
		v, _ := s.SetIgnoreRestCondition(context.Background(), true)
		saved <- v
	}()
	<-repo.entered

	read := make(chan rules.Settings)
	go func() { read <- s.Current() }()
	select {
	case v := <-read:
		assert.False(t, v.IgnoreRestCondition, "not published before the save lands")
	case <-time.After(time.Second):
		t.Fatal("Current blocked behind the repository write")
	}

	close(repo.release)
	assert.True(t, (<-saved).IgnoreRestCondition)
	assert.True(t, s.Current().IgnoreRestCondition)
}
