// Package colony wires the engine to persistence for the server surfaces.
// Handlers call the Service; the Service calls the engine and the repositories.
package colony

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/HemogenFarm/internal/domain/bill"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/colonist"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/farm"
	"github.com/MRamiBalles/HemogenFarm/internal/domain/rules"
	"github.com/MRamiBalles/HemogenFarm/internal/engine"
	"github.com/MRamiBalles/HemogenFarm/internal/events"
	"github.com/MRamiBalles/HemogenFarm/internal/infra/storage"
	"github.com/MRamiBalles/HemogenFarm/internal/platform/logger"
	"github.com/MRamiBalles/HemogenFarm/internal/settings"
)

// FarmRepository is the farm-state persistence the service needs.
type FarmRepository interface {
	Upsert(ctx context.Context, state storage.FarmState) error
	GetByColonyID(ctx context.Context, colonyID string) ([]storage.FarmState, error)
	Delete(ctx context.Context, colonistID string) error
}

// Service owns the write paths that must reach both the engine and storage.
type Service struct {
	colonyID string
	engine   *engine.Engine
	settings *settings.Store
	farms    FarmRepository
	eventLog *events.EventLog
	logger   *logger.Logger

	// farmMu keeps a snapshot from writing back a colonist removed under it.
	farmMu sync.Mutex
}

// NewService creates the colony service. farms may be nil for a purely
// in-memory colony. Every settings change made through st is recorded in el.
func NewService(colonyID string, eng *engine.Engine, st *settings.Store, farms FarmRepository, el *events.EventLog, log *logger.Logger) *Service {
	s := &Service{
		colonyID: colonyID,
		engine:   eng,
		settings: st,
		farms:    farms,
		eventLog: el,
		logger:   log,
	}
	if st != nil {
		st.OnChange(s.recordSettingsChange)
	}
	return s
}

// Engine exposes the engine for direct driving by tools and tests.
func (s *Service) Engine() *engine.Engine { return s.engine }

func (s *Service) Colonists() []engine.ColonistStatus { return s.engine.Colonists() }

func (s *Service) Colonist(id string) (engine.ColonistStatus, error) { return s.engine.Colonist(id) }

func (s *Service) Gizmo(id string) (farm.Gizmo, error) { return s.engine.Gizmo(id) }

func (s *Service) OverrideVitals(id string, v engine.Vitals) error {
	return s.engine.OverrideVitals(id, v)
}

func (s *Service) CompleteBill(id string) error { return s.engine.CompleteBill(id) }

func (s *Service) AddManualBill(id string, kind bill.Kind) (bill.Bill, error) {
	return s.engine.AddManualBill(id, kind)
}

func (s *Service) CurrentSettings() rules.Settings { return s.settings.Current() }

func (s *Service) SettingsSurface() []settings.Checkbox { return s.settings.Surface() }

// Bootstrap restores saved colonists and their toggles. On an empty
// database the starter colony is registered and saved instead, if seed is set.
func (s *Service) Bootstrap(ctx context.Context, seed bool) error {
	var saved []storage.FarmState
	if s.farms != nil {
		var err error
		saved, err = s.farms.GetByColonyID(ctx, s.colonyID)
		if err != nil {
			return fmt.Errorf("load farm state: %w", err)
		}
	}

	if len(saved) == 0 {
		if !seed {
			return nil
		}
		s.logger.Info("Database empty. Seeding starter colony...")
		for _, c := range StarterColony() {
			s.engine.RegisterColonist(c)
			if err := s.save(ctx, c.ID); err != nil {
				return err
			}
		}
		return nil
	}

	s.logger.Info("Reconstructing colonists from SQLite state...", zap.Int("count", len(saved)))
	for _, fs := range saved {
		c := colonist.NewColonist(fs.ColonistID, fs.Name, colonist.Faction(fs.Faction))
		c.Genes = append(c.Genes, fs.Genes...)
		c.Rest = &colonist.RestNeed{Level: 1.0, Trend: rules.TrendFlat}
		c.Farm.SetEnabled(fs.ShouldFarmHemogen)
		s.engine.RegisterColonist(c)
	}
	return nil
}

// StarterColony is the colony registered on a fresh database.
func StarterColony() []*colonist.Colonist {
	mk := func(id, name string, faction colonist.Faction, rest float64) *colonist.Colonist {
		c := colonist.NewColonist(id, name, faction)
		c.Rest = &colonist.RestNeed{Level: rest, Trend: rules.TrendFlat}
		return c
	}
	sanguophage := mk("C003", "Vesna", colonist.FactionColony, 1.0)
	sanguophage.Genes = append(sanguophage.Genes, colonist.GeneHemogenic)

	return []*colonist.Colonist{
		mk("C001", "Ada", colonist.FactionColony, 1.0),
		mk("C002", "Bram", colonist.FactionColony, 0.80),
		sanguophage,
		mk("P001", "Corin", colonist.FactionPrisoner, 0.90),
		mk("G001", "Tove", colonist.FactionGuest, 1.0),
	}
}

// ToggleFarm flips the toggle and writes it through immediately.
func (s *Service) ToggleFarm(ctx context.Context, id string) (bool, error) {
	s.farmMu.Lock()
	defer s.farmMu.Unlock()

	enabled, err := s.engine.ToggleFarm(id)
	if err != nil {
		return false, err
	}
	if err := s.save(ctx, id); err != nil {
		return enabled, err
	}
	return enabled, nil
}

// RemoveColonist drops the colonist from the engine and from storage, so a
// restart does not bring it back.
func (s *Service) RemoveColonist(ctx context.Context, id string) error {
	s.farmMu.Lock()
	defer s.farmMu.Unlock()

	if err := s.engine.RemoveColonist(id); err != nil {
		return err
	}
	if s.farms == nil {
		return nil
	}
	if err := s.farms.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete farm state for %s: %w", id, err)
	}
	return nil
}

// SetIgnoreRestCondition changes the colony-wide flag. The change is recorded
// by the store hook registered in NewService.
func (s *Service) SetIgnoreRestCondition(ctx context.Context, value bool) (rules.Settings, error) {
	return s.settings.SetIgnoreRestCondition(ctx, value)
}

func (s *Service) recordSettingsChange(after rules.Settings) {
	tick := s.engine.CurrentTick()
	s.eventLog.Append(events.GameEvent{
		Type:     events.EventTypeSettingsChanged,
		ActorID:  events.ActorOperator,
		TargetID: s.colonyID,
		Payload:  events.SettingsPayload{IgnoreRestCondition: after.IgnoreRestCondition},
		Tick:     tick,
		GameDay:  engine.ClockAt(tick).GameDay,
	})
}

// SnapshotFarms saves every colonist's toggle.
func (s *Service) SnapshotFarms(ctx context.Context) error {
	s.farmMu.Lock()
	defer s.farmMu.Unlock()

	for _, st := range s.engine.Colonists() {
		if err := s.upsert(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// RunSnapshots saves toggles every interval until ctx is done, then once more.
func (s *Service) RunSnapshots(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return s.SnapshotFarms(context.WithoutCancel(ctx))
		case <-ticker.C:
			if err := s.SnapshotFarms(ctx); err != nil {
				s.logger.Warn("farm snapshot failed", zap.Error(err))
			}
		}
	}
}

func (s *Service) save(ctx context.Context, id string) error {
	st, err := s.engine.Colonist(id)
	if err != nil {
		return err
	}
	return s.upsert(ctx, st)
}

func (s *Service) upsert(ctx context.Context, st engine.ColonistStatus) error {
	if s.farms == nil {
		return nil
	}
	err := s.farms.Upsert(ctx, storage.FarmState{
		ColonistID:        st.ID,
		ColonyID:          s.colonyID,
		Name:              st.Name,
		Faction:           string(st.Faction),
		Genes:             st.Genes,
		ShouldFarmHemogen: st.FarmEnabled,
	})
	if err != nil {
		return fmt.Errorf("save %s for %s: %w", storage.KeyShouldFarmHemogen, st.ID, err)
	}
	return nil
}
