package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// ErrInvalidCronExpression rejects a malformed 5-field cron expression at
// save time; the scheduler's tick loop never sees one through this API.
var ErrInvalidCronExpression = errors.New("invalid cron expression")

// Standard 5-field cron: minute, hour, day-of-month, month, day-of-week.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// ParseCron validates a cron expression and returns its schedule.
func ParseCron(expr string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCronExpression, err)
	}
	return sched, nil
}

// Schedule is a cron-driven upload rule. The expression is validated when
// the schedule is saved, not on every tick.
type Schedule struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CronExpr   string `json:"cronExpr"`
	SourcePath string `json:"sourcePath"`
	ServerID   string `json:"serverId"`
	PathKey    string `json:"pathKey"`
	Extract    bool   `json:"extract"`
	Enabled    bool   `json:"enabled"`
}

// SaveSchedule inserts or updates a schedule. An empty ID creates a new
// record with a generated identifier. A malformed cron expression is
// rejected with ErrInvalidCronExpression.
func (d *DB) SaveSchedule(s Schedule) (Schedule, error) {
	if _, err := ParseCron(s.CronExpr); err != nil {
		return Schedule{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	_, err := d.Exec(`
		INSERT INTO schedules (id, name, cron_expr, source_path, server_id, path_key, extract, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			cron_expr = excluded.cron_expr,
			source_path = excluded.source_path,
			server_id = excluded.server_id,
			path_key = excluded.path_key,
			extract = excluded.extract,
			enabled = excluded.enabled
	`, s.ID, s.Name, s.CronExpr, s.SourcePath, s.ServerID, s.PathKey,
		boolToInt(s.Extract), boolToInt(s.Enabled))
	if err != nil {
		return Schedule{}, err
	}
	return s, nil
}

// Schedules returns all schedules.
func (d *DB) Schedules() ([]Schedule, error) {
	rows, err := d.Query("SELECT id, name, cron_expr, source_path, server_id, path_key, extract, enabled FROM schedules")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []Schedule
	for rows.Next() {
		var s Schedule
		var extract, enabled int
		if err := rows.Scan(&s.ID, &s.Name, &s.CronExpr, &s.SourcePath, &s.ServerID,
			&s.PathKey, &extract, &enabled); err != nil {
			return nil, err
		}
		s.Extract = extract == 1
		s.Enabled = enabled == 1
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// Schedule returns the schedule with the given id, or ErrNotFound.
func (d *DB) Schedule(id string) (*Schedule, error) {
	schedules, err := d.Schedules()
	if err != nil {
		return nil, err
	}
	for i := range schedules {
		if schedules[i].ID == id {
			return &schedules[i], nil
		}
	}
	return nil, ErrNotFound
}

// DeleteSchedule removes a schedule.
func (d *DB) DeleteSchedule(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.Exec("DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
