// Package cache keeps parsed GPX tracks in a sqlite database so repeated draw
// runs skip XML parsing. Entries are keyed by the sha256 of the file content.
package cache

import (
	"bytes"
	"database/sql"
	"encoding/gob"

	"github.com/kwoodhouse93/strava-heatmap/track"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Bump when track.Track changes shape so old blobs are ignored.
const schemaVersion = 1

type Cache struct {
	db *sql.DB
}

func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "cache: failed to open database")
	}
	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS tracks (
        gpx_hash TEXT PRIMARY KEY,
        version INTEGER NOT NULL,
        tracks BLOB NOT NULL,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP)`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "cache: failed to create table")
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Get(key string) ([]*track.Track, bool, error) {
	row := c.db.QueryRow("SELECT tracks FROM tracks WHERE gpx_hash = ? AND version = ?", key, schemaVersion)
	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "cache: failed to query track")
	}
	var tracks []*track.Track
	dec := gob.NewDecoder(bytes.NewBuffer(blob))
	if err := dec.Decode(&tracks); err != nil {
		return nil, false, errors.Wrap(err, "cache: failed to decode tracks")
	}
	return tracks, true, nil
}

func (c *Cache) Put(key string, tracks []*track.Track) error {
	var buffer bytes.Buffer
	enc := gob.NewEncoder(&buffer)
	if err := enc.Encode(tracks); err != nil {
		return errors.Wrap(err, "cache: failed to encode tracks")
	}
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO tracks (gpx_hash, version, tracks) VALUES (?, ?, ?)",
		key, schemaVersion, buffer.Bytes(),
	)
	if err != nil {
		return errors.Wrap(err, "cache: failed to store tracks")
	}
	return nil
}

// Len returns the number of cached files.
func (c *Cache) Len() (int, error) {
	var count int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM tracks").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}
