// Package courses persists the most recent course snapshot to SQLite. The
// sync layer replaces the whole snapshot on every ledger push; the web layer
// reads it back and watches the Updates channel to refresh the dashboard.
// The database is a cache of ledger state, never the source of truth.
package courses

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrianncovaci/uni-chain/internal/types"

	_ "modernc.org/sqlite"
)

const (
	defaultDBFile    = "courses.db"
	maxBusyTimeoutMs = 5000
)

// Store manages the course snapshot and persistence to a SQLite database.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	file    string
	updates chan struct{}
}

// NewStore opens (or creates) the snapshot database. An unreadable database
// file is reset: the snapshot is re-derived from the ledger on the next
// sync push, so losing it costs nothing.
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		filePath = defaultDBFile
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	s := &Store{
		file:    absPath,
		updates: make(chan struct{}, 1),
	}

	if err := s.openDB(); err != nil {
		if resetErr := s.resetDatabaseFiles(); resetErr != nil {
			return nil, fmt.Errorf("reset database after %v: %w", err, resetErr)
		}
		if err := s.openDB(); err != nil {
			return nil, fmt.Errorf("create fresh database: %w", err)
		}
	}

	if err := s.ensureSchema(); err != nil {
		_ = s.closeDB()
		return nil, err
	}

	return s, nil
}

// Updates returns a channel that receives a value whenever the snapshot
// changes. Notifications are coalesced.
func (s *Store) Updates() <-chan struct{} {
	return s.updates
}

func (s *Store) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeDB()
}

func (s *Store) openDB() error {
	if err := os.MkdirAll(filepath.Dir(s.file), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.Clean(s.file)))
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", maxBusyTimeoutMs)); err != nil {
		db.Close()
		return fmt.Errorf("set busy timeout: %w", err)
	}

	s.db = db
	return nil
}

func (s *Store) closeDB() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) resetDatabaseFiles() error {
	_ = s.closeDB()

	var firstErr error
	for _, path := range []string{s.file, s.file + "-wal", s.file + "-shm"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove %s: %w", filepath.Base(path), err)
			}
		}
	}
	return firstErr
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS courses (
		dna TEXT PRIMARY KEY,
		owner TEXT,
		price INTEGER,
		course_year TEXT,
		credits INTEGER,
		synced_at TEXT
	)`)
	if err != nil {
		return fmt.Errorf("create courses table: %w", err)
	}

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	return nil
}

// GetAll returns the current snapshot ordered by dna. Order across sync
// cycles is not meaningful; the ledger does not guarantee a stable key order.
func (s *Store) GetAll() []types.CourseRecord {
	s.mu.RLock()
	rows, err := s.db.Query(`SELECT dna, owner, price, course_year, credits
		FROM courses ORDER BY dna`)
	s.mu.RUnlock()
	if err != nil {
		// An empty slice still renders; the log line is what separates a
		// broken database from an empty ledger.
		log.Printf("Error querying course snapshot: %v", err)
		return []types.CourseRecord{}
	}
	defer rows.Close()

	var records []types.CourseRecord
	for rows.Next() {
		var rec types.CourseRecord
		var year string
		var credits int
		if err := rows.Scan(&rec.Dna, &rec.Owner, &rec.Price, &year, &credits); err != nil {
			continue
		}
		rec.Year = types.CourseYear(year)
		rec.Credits = uint8(credits)
		records = append(records, rec)
	}
	return records
}

// Get returns one course by dna.
func (s *Store) Get(dna string) (*types.CourseRecord, error) {
	s.mu.RLock()
	row := s.db.QueryRow(`SELECT dna, owner, price, course_year, credits
		FROM courses WHERE dna = ?`, dna)
	s.mu.RUnlock()

	var rec types.CourseRecord
	var year string
	var credits int
	if err := row.Scan(&rec.Dna, &rec.Owner, &rec.Price, &year, &credits); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("course not found: %s", dna)
		}
		return nil, fmt.Errorf("query course: %w", err)
	}
	rec.Year = types.CourseYear(year)
	rec.Credits = uint8(credits)
	return &rec, nil
}

// Count returns the number of courses in the snapshot.
func (s *Store) Count() int {
	s.mu.RLock()
	row := s.db.QueryRow(`SELECT COUNT(*) FROM courses`)
	s.mu.RUnlock()

	var n int
	if err := row.Scan(&n); err != nil {
		return 0
	}
	return n
}

// CountOwnedBy returns how many courses the given account owns.
func (s *Store) CountOwnedBy(account string) int {
	s.mu.RLock()
	row := s.db.QueryRow(`SELECT COUNT(*) FROM courses WHERE owner = ?`, account)
	s.mu.RUnlock()

	var n int
	if err := row.Scan(&n); err != nil {
		return 0
	}
	return n
}

// ReplaceAll atomically replaces the entire snapshot. Records for
// identifiers no longer on the ledger disappear with the replacement.
func (s *Store) ReplaceAll(records []types.CourseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM courses`); err != nil {
		tx.Rollback()
		return fmt.Errorf("truncate courses: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO courses (dna, owner, price, course_year, credits, synced_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare replace insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, rec := range records {
		if _, err := stmt.Exec(rec.Dna, rec.Owner, rec.Price, string(rec.Year), int(rec.Credits), now); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert course during replace: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}

	s.notify()
	return nil
}
