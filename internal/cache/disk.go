package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// diskStore is the on-disk tier: one JSON file per key, plus a small sqlite
// index mapping file paths to keys so that invalidating a file does not
// require scanning the whole directory.
type diskStore struct {
	dir string
	db  *sql.DB
}

func newDiskStore(dir string) (*diskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		key        TEXT PRIMARY KEY,
		path       TEXT NOT NULL,
		filename   TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache index schema: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS entries_path ON entries(path)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache index schema: %w", err)
	}

	return &diskStore{dir: dir, db: db}, nil
}

// filename hashes the key so arbitrary paths make safe file names.
func (d *diskStore) filename(key string) string {
	return HashContent([]byte(key)) + ".json"
}

// get loads an entry. Missing or corrupt files are a miss; corrupt files are
// removed so they do not keep costing a read.
func (d *diskStore) get(key string) (*Entry, bool) {
	path := filepath.Join(d.dir, d.filename(key))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Summary == nil {
		os.Remove(path)
		d.db.Exec(`DELETE FROM entries WHERE key = ?`, key)
		return nil, false
	}
	return &entry, true
}

func (d *diskStore) put(entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	name := d.filename(entry.Key)
	if err := os.WriteFile(filepath.Join(d.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write entry file: %w", err)
	}

	_, err = d.db.Exec(
		`INSERT OR REPLACE INTO entries (key, path, filename, created_at) VALUES (?, ?, ?, ?)`,
		entry.Key, entry.FilePath, name, entry.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("index entry: %w", err)
	}
	return nil
}

func (d *diskStore) remove(key string) {
	os.Remove(filepath.Join(d.dir, d.filename(key)))
	d.db.Exec(`DELETE FROM entries WHERE key = ?`, key)
}

// removeFile drops every entry recorded for the file path and returns how
// many were removed.
func (d *diskStore) removeFile(path string) (int, error) {
	rows, err := d.db.Query(`SELECT filename FROM entries WHERE path = ?`, path)
	if err != nil {
		return 0, err
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return 0, err
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, name := range names {
		os.Remove(filepath.Join(d.dir, name))
	}
	if _, err := d.db.Exec(`DELETE FROM entries WHERE path = ?`, path); err != nil {
		return len(names), err
	}
	return len(names), nil
}

// removeOlderThan expires entries created before the cutoff.
func (d *diskStore) removeOlderThan(cutoff time.Time) (int, error) {
	rows, err := d.db.Query(`SELECT filename FROM entries WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return 0, err
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, name := range names {
		os.Remove(filepath.Join(d.dir, name))
	}
	if _, err := d.db.Exec(`DELETE FROM entries WHERE created_at < ?`, cutoff.Unix()); err != nil {
		return len(names), err
	}
	return len(names), nil
}

func (d *diskStore) clear() error {
	matches, err := filepath.Glob(filepath.Join(d.dir, "*.json"))
	if err != nil {
		return err
	}
	for _, match := range matches {
		os.Remove(match)
	}
	_, err = d.db.Exec(`DELETE FROM entries`)
	return err
}

func (d *diskStore) count() int {
	var n int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0
	}
	return n
}

func (d *diskStore) close() error {
	return d.db.Close()
}
