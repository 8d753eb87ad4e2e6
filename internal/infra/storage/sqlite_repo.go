package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event Event) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (id, colony_id, timestamp, event_type, actor_id, target_id, payload, tick, game_day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.ColonyID, event.Timestamp, event.EventType, event.ActorID,
		event.TargetID, string(payloadBytes), event.Tick, event.GameDay,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

const selectEvents = `SELECT id, colony_id, timestamp, event_type, actor_id, target_id, payload, tick, game_day FROM events`

func (r *SQLiteEventRepository) getMany(ctx context.Context, where string, args ...interface{}) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, selectEvents+" WHERE "+where+" ORDER BY tick ASC, timestamp ASC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var payloadStr string
		err := rows.Scan(
			&e.ID, &e.ColonyID, &e.Timestamp, &e.EventType, &e.ActorID,
			&e.TargetID, &payloadStr, &e.Tick, &e.GameDay,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetByColonyID(ctx context.Context, colonyID string) ([]Event, error) {
	return r.getMany(ctx, "colony_id = ?", colonyID)
}

func (r *SQLiteEventRepository) GetByTargetID(ctx context.Context, colonyID, targetID string) ([]Event, error) {
	return r.getMany(ctx, "colony_id = ? AND target_id = ?", colonyID, targetID)
}

func (r *SQLiteEventRepository) GetByGameDay(ctx context.Context, colonyID string, day int) ([]Event, error) {
	return r.getMany(ctx, "colony_id = ? AND game_day = ?", colonyID, day)
}

func (r *SQLiteEventRepository) LastTick(ctx context.Context, colonyID string) (int64, error) {
	var tick sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT MAX(tick) FROM events WHERE colony_id = ?`, colonyID).Scan(&tick)
	if err != nil {
		return 0, err
	}
	return tick.Int64, nil
}

// ---------------------------------------------------------
// SQLiteFarmStateRepository
// ---------------------------------------------------------

type SQLiteFarmStateRepository struct {
	db *sql.DB
}

func NewSQLiteFarmStateRepository(db *sql.DB) *SQLiteFarmStateRepository {
	return &SQLiteFarmStateRepository{db: db}
}

func (r *SQLiteFarmStateRepository) Upsert(ctx context.Context, state FarmState) error {
	query := `
		INSERT INTO colonists (colonist_id, colony_id, name, faction, genes, shouldFarmHemogen, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(colonist_id) DO UPDATE SET
			colony_id=excluded.colony_id,
			name=excluded.name,
			faction=excluded.faction,
			genes=excluded.genes,
			shouldFarmHemogen=excluded.shouldFarmHemogen,
			last_updated=excluded.last_updated
	`
	_, err := r.db.ExecContext(ctx, query,
		state.ColonistID, state.ColonyID, state.Name, state.Faction, strings.Join(state.Genes, ","), state.ShouldFarmHemogen, time.Now(),
	)
	return err
}

func (r *SQLiteFarmStateRepository) Delete(ctx context.Context, colonistID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM colonists WHERE colonist_id = ?`, colonistID)
	return err
}

func (r *SQLiteFarmStateRepository) GetByColonyID(ctx context.Context, colonyID string) ([]FarmState, error) {
	query := `SELECT colonist_id, colony_id, name, faction, genes, shouldFarmHemogen, last_updated FROM colonists WHERE colony_id = ? ORDER BY colonist_id`
	rows, err := r.db.QueryContext(ctx, query, colonyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []FarmState
	for rows.Next() {
		s, err := scanFarmState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	return states, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFarmState(row rowScanner) (FarmState, error) {
	var s FarmState
	var genes string
	err := row.Scan(&s.ColonistID, &s.ColonyID, &s.Name, &s.Faction, &genes, &s.ShouldFarmHemogen, &s.LastUpdated)
	if err != nil {
		return FarmState{}, err
	}
	if genes != "" {
		s.Genes = strings.Split(genes, ",")
	}
	return s, nil
}

// ---------------------------------------------------------
// SQLiteSettingsRepository
// ---------------------------------------------------------

type SQLiteSettingsRepository struct {
	db *sql.DB
}

func NewSQLiteSettingsRepository(db *sql.DB) *SQLiteSettingsRepository {
	return &SQLiteSettingsRepository{db: db}
}

func (r *SQLiteSettingsRepository) GetBool(ctx context.Context, key string, def bool) (bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("setting %q: %w", key, err)
	}
	return v, nil
}

func (r *SQLiteSettingsRepository) SetBool(ctx context.Context, key string, value bool) error {
	query := `
		INSERT INTO settings (key, value, last_updated)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value=excluded.value,
			last_updated=excluded.last_updated
	`
	_, err := r.db.ExecContext(ctx, query, key, strconv.FormatBool(value), time.Now())
	return err
}
