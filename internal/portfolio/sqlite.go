// Package portfolio is the capacity-bounded store for generated looks.
// Items live in SQLite as JSON payloads with denormalized timestamp,
// mode and size columns; the capacity budget is enforced by evicting
// the oldest items on insert.
package portfolio

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultLimitBytes is the storage budget applied until the user
// configures one.
const DefaultLimitBytes = 200 << 20

const limitSettingKey = "storage_limit_bytes"

// Store wraps a SQLite database with methods for portfolio items,
// settings and background jobs.
type Store struct {
	db *sql.DB

	// addMu serializes capacity-checked inserts so two concurrent
	// adds cannot both pass the budget check and overshoot it.
	addMu sync.Mutex
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database
// (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "studio.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for callers that need raw SQL.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// --- Items ---

// Add stores one item, evicting the oldest items first if the budget
// would be exceeded. Adding an existing ID replaces the stored item.
// An item larger than the whole budget is still stored after everything
// else has been evicted; the budget is a target, not a hard rejection.
func (s *Store) Add(item Item) error {
	if !item.Mode.Valid() {
		return fmt.Errorf("unknown mode %q", item.Mode)
	}
	if item.ID == "" {
		return fmt.Errorf("item has no ID")
	}
	size, err := item.Size()
	if err != nil {
		return err
	}

	s.addMu.Lock()
	defer s.addMu.Unlock()

	limit, err := s.LimitBytes()
	if err != nil {
		return err
	}
	if err := s.evictFor(item.ID, size, limit); err != nil {
		return err
	}
	return s.put(item, size)
}

type evictionCandidate struct {
	id   string
	ts   int64
	size int64
}

// evictFor deletes the oldest items until incoming bytes fit within
// limit. The item being replaced (same ID) does not count against the
// budget and is never an eviction victim.
func (s *Store) evictFor(incomingID string, incoming, limit int64) error {
	rows, err := s.db.Query(`SELECT id, timestamp, size_bytes FROM items ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("snapshotting items: %w", err)
	}
	defer rows.Close()

	var candidates []evictionCandidate
	var total int64
	for rows.Next() {
		var c evictionCandidate
		if err := rows.Scan(&c.id, &c.ts, &c.size); err != nil {
			return err
		}
		if c.id == incomingID {
			continue
		}
		candidates = append(candidates, c)
		total += c.size
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, c := range candidates {
		if total+incoming <= limit {
			break
		}
		if _, err := s.db.Exec(`DELETE FROM items WHERE id = ?`, c.id); err != nil {
			return fmt.Errorf("evicting item %s: %w", c.id, err)
		}
		total -= c.size
	}
	return nil
}

func (s *Store) put(item Item, size int64) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding item %s: %w", item.ID, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO items (id, timestamp, mode, size_bytes, payload_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			timestamp = excluded.timestamp,
			mode = excluded.mode,
			size_bytes = excluded.size_bytes,
			payload_json = excluded.payload_json`,
		item.ID, item.Timestamp.UnixMilli(), string(item.Mode), size, string(payload),
	)
	return err
}

// AddMany stores a batch without capacity checks. Bulk restores may
// leave the store over budget; the next Add rebalances.
func (s *Store) AddMany(items []Item) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning batch insert: %w", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		if !item.Mode.Valid() {
			return fmt.Errorf("unknown mode %q on item %s", item.Mode, item.ID)
		}
		size, err := item.Size()
		if err != nil {
			return err
		}
		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encoding item %s: %w", item.ID, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO items (id, timestamp, mode, size_bytes, payload_json)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				timestamp = excluded.timestamp,
				mode = excluded.mode,
				size_bytes = excluded.size_bytes,
				payload_json = excluded.payload_json`,
			item.ID, item.Timestamp.UnixMilli(), string(item.Mode), size, string(payload),
		); err != nil {
			return fmt.Errorf("inserting item %s: %w", item.ID, err)
		}
	}
	return tx.Commit()
}

// Get returns one item by ID.
func (s *Store) Get(id string) (Item, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload_json FROM items WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, err
	}
	var item Item
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		return Item{}, fmt.Errorf("decoding item %s: %w", id, err)
	}
	return item, nil
}

// GetAll returns every item, newest first. Items sharing a timestamp
// order by descending ID so the result is deterministic.
func (s *Store) GetAll() ([]Item, error) {
	rows, err := s.db.Query(`SELECT payload_json FROM items ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var item Item
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return nil, fmt.Errorf("decoding item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Delete removes one item by ID.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM items WHERE id = ?`, id)
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

// Clear removes every item.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM items`)
	return err
}

// TotalSize returns the summed storage footprint of all items.
func (s *Store) TotalSize() (int64, error) {
	var total sql.NullInt64
	if err := s.db.QueryRow(`SELECT SUM(size_bytes) FROM items`).Scan(&total); err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// Count returns the number of stored items.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n)
	return n, err
}

// --- Settings ---

// SetSetting stores a key/value pair, overwriting any previous value.
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetSetting returns the value for key, or ErrNotFound.
func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// LimitBytes returns the configured storage budget, falling back to
// DefaultLimitBytes when unset.
func (s *Store) LimitBytes() (int64, error) {
	raw, err := s.GetSetting(limitSettingKey)
	if err == ErrNotFound {
		return DefaultLimitBytes, nil
	}
	if err != nil {
		return 0, err
	}
	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing stored limit %q: %w", raw, err)
	}
	return limit, nil
}

// EnsureLimit persists fallback as the storage budget if none has been
// set yet. An explicitly configured limit is left alone.
func (s *Store) EnsureLimit(fallback int64) error {
	_, err := s.GetSetting(limitSettingKey)
	if err == ErrNotFound {
		return s.SetLimitBytes(fallback)
	}
	return err
}

// SetLimitBytes persists a new storage budget. Existing items are not
// evicted immediately; the budget applies from the next Add.
func (s *Store) SetLimitBytes(limit int64) error {
	if limit <= 0 {
		return fmt.Errorf("storage limit must be positive, got %d", limit)
	}
	return s.SetSetting(limitSettingKey, strconv.FormatInt(limit, 10))
}

// --- Jobs ---

func (s *Store) EnqueueJob(job Job) error {
	now := time.Now().UTC().Format(time.RFC3339)
	runAfter := now
	if !job.RunAfter.IsZero() {
		runAfter = job.RunAfter.UTC().Format(time.RFC3339)
	}
	maxAttempts := job.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 3
	}
	_, err := s.db.Exec(`
		INSERT INTO jobs (id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', 0, ?, ?, ?, ?)`,
		job.ID, job.Type, job.PayloadJSON, maxAttempts, runAfter, now, now,
	)
	return err
}

func (s *Store) GetJob(id string) (Job, error) {
	var j Job
	var runAfter, createdAt, updatedAt string
	var lastError sql.NullString
	err := s.db.QueryRow(`
		SELECT id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at, last_error, stage, percent, result_json
		FROM jobs WHERE id = ?`, id,
	).Scan(&j.ID, &j.Type, &j.PayloadJSON, &j.Status, &j.Attempts, &j.MaxAttempts,
		&runAfter, &createdAt, &updatedAt, &lastError, &j.Stage, &j.Percent, &j.ResultJSON)
	if err == sql.ErrNoRows {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, err
	}
	j.LastError = lastError.String
	if j.RunAfter, err = time.Parse(time.RFC3339, runAfter); err != nil {
		return Job{}, fmt.Errorf("parsing run_after for job %s: %w", id, err)
	}
	if j.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Job{}, fmt.Errorf("parsing created_at for job %s: %w", id, err)
	}
	if j.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return Job{}, fmt.Errorf("parsing updated_at for job %s: %w", id, err)
	}
	return j, nil
}

func (s *Store) ClaimNextJob(types []string) (*Job, error) {
	if len(types) == 0 {
		return nil, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	placeholders := strings.Repeat(",?", len(types)-1)
	query := `SELECT id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at, last_error
		FROM jobs
		WHERE status = 'pending' AND run_after <= ? AND type IN (?` + placeholders + `)
		ORDER BY run_after ASC, created_at ASC
		LIMIT 1`

	args := make([]interface{}, 0, len(types)+1)
	args = append(args, now)
	for _, t := range types {
		args = append(args, t)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning claim transaction: %w", err)
	}

	var j Job
	var runAfter, createdAt, updatedAt string
	var lastError sql.NullString
	err = tx.QueryRow(query, args...).Scan(
		&j.ID, &j.Type, &j.PayloadJSON, &j.Status, &j.Attempts, &j.MaxAttempts,
		&runAfter, &createdAt, &updatedAt, &lastError,
	)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return nil, nil
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("selecting next job: %w", err)
	}

	res, err := tx.Exec(`UPDATE jobs SET status = 'running', updated_at = ? WHERE id = ? AND status = 'pending'`, now, j.ID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("updating job status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("checking updated job rows: %w", err)
	}
	if n != 1 {
		tx.Rollback()
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	j.Status = "running"
	j.LastError = lastError.String
	if j.RunAfter, err = time.Parse(time.RFC3339, runAfter); err != nil {
		return nil, fmt.Errorf("parsing run_after for job %s: %w", j.ID, err)
	}
	if j.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for job %s: %w", j.ID, err)
	}
	if j.UpdatedAt, err = time.Parse(time.RFC3339, now); err != nil {
		return nil, fmt.Errorf("parsing updated_at for job %s: %w", j.ID, err)
	}
	return &j, nil
}

// UpdateJobProgress records the current build stage and percentage for
// status polling and websocket pushes.
func (s *Store) UpdateJobProgress(id, stage string, percent int) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`UPDATE jobs SET stage = ?, percent = ?, updated_at = ? WHERE id = ?`,
		stage, percent, now, id)
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

func (s *Store) CompleteJob(id, resultJSON string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`UPDATE jobs SET status = 'completed', percent = 100, result_json = ?, updated_at = ? WHERE id = ?`,
		resultJSON, now, id)
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

func (s *Store) FailJob(id string, errMsg string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning fail transaction: %w", err)
	}
	defer tx.Rollback()

	var attempts, maxAttempts int
	err = tx.QueryRow(`SELECT attempts, max_attempts FROM jobs WHERE id = ?`, id).Scan(&attempts, &maxAttempts)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	attempts++

	if attempts >= maxAttempts {
		_, err = tx.Exec(`UPDATE jobs SET status = 'failed', attempts = ?, last_error = ?, updated_at = ? WHERE id = ?`,
			attempts, errMsg, now.Format(time.RFC3339), id)
	} else {
		backoff := time.Duration(math.Pow(2, float64(attempts))) * time.Second
		runAfter := now.Add(backoff)
		_, err = tx.Exec(`UPDATE jobs SET status = 'pending', attempts = ?, last_error = ?, run_after = ?, updated_at = ? WHERE id = ?`,
			attempts, errMsg, runAfter.Format(time.RFC3339), now.Format(time.RFC3339), id)
	}

	if err != nil {
		return err
	}

	return tx.Commit()
}
