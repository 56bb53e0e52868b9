/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session persists dialogue traversal positions so a reader can resume
// where they stopped. The script itself is never stored: a session records the
// document name, a checksum of its bytes and the cursor position.
// Two backends share one SQL implementation: an embedded SQLite file
// (default) and PostgreSQL for shared deployments.
package session

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"yamldialogue/internal/config"
	"yamldialogue/internal/dialogue"
	applog "yamldialogue/internal/log"
)

var (
	// ErrNotFound is returned by Get, Delete and Resume for an unknown session id.
	ErrNotFound = errors.New("session not found")
	// ErrStale means the document changed since the session was saved.
	ErrStale = errors.New("session document changed")
)

// Record is one stored traversal.
type Record struct {
	ID        string
	Document  string
	Position  int
	Checksum  string
	UpdatedAt time.Time
}

// Store persists session records.
type Store interface {
	Save(ctx context.Context, r Record) error
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.SessionConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", config.DriverSQLite:
		return OpenSQLite(ctx, cfg.Path)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown session driver %q", cfg.Driver)
	}
}

// dialect captures the few differences between the SQL backends.
type dialect struct {
	name string
	// numbered placeholders ($1, $2, ...) instead of "?"
	numbered bool
	// encodeTime converts a timestamp into a column value.
	encodeTime func(time.Time) any
}

// sqlStore implements Store on database/sql.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	log     *slog.Logger
}

func (s *sqlStore) q(query string) string {
	if !s.dialect.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) Save(ctx context.Context, r Record) error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("session id is required")
	}
	if r.Position < 0 {
		return fmt.Errorf("invalid session position %d", r.Position)
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO dialogue_sessions (id, document, position, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET document=excluded.document, position=excluded.position,
			checksum=excluded.checksum, updated_at=excluded.updated_at`),
		r.ID, r.Document, r.Position, r.Checksum, s.dialect.encodeTime(r.UpdatedAt.UTC()))
	if err != nil {
		return fmt.Errorf("save session %s: %w", r.ID, err)
	}
	s.log.Debug("session saved", slog.String("driver", s.dialect.name), slog.String("id", r.ID), slog.Int("position", r.Position))
	return nil
}

func (s *sqlStore) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT id, document, position, checksum, updated_at FROM dialogue_sessions WHERE id = ?`), id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return r, nil
}

func (s *sqlStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, document, position, checksum, updated_at FROM dialogue_sessions ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqlStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM dialogue_sessions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *sqlStore) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		r  Record
		ts any
	)
	if err := sc.Scan(&r.ID, &r.Document, &r.Position, &r.Checksum, &ts); err != nil {
		return Record{}, err
	}
	t, err := decodeTime(ts)
	if err != nil {
		return Record{}, err
	}
	r.UpdatedAt = t
	return r, nil
}

func decodeTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(t))
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
	}
}

// Checksum identifies a document revision.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Checkpoint stores the current cursor position of d under id.
func Checkpoint(ctx context.Context, st Store, id, document string, data []byte, d *dialogue.Dialogue) error {
	return st.Save(ctx, Record{
		ID:        id,
		Document:  document,
		Position:  d.Position(),
		Checksum:  Checksum(data),
		UpdatedAt: time.Now(),
	})
}

// Resume moves d to the position stored under id. ErrNotFound leaves d untouched.
// When the document bytes no longer match the stored checksum, or the stored
// position is out of range, d is reset and ErrStale is returned.
func Resume(ctx context.Context, st Store, id string, data []byte, d *dialogue.Dialogue) error {
	r, err := st.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.Checksum != Checksum(data) {
		d.Reset()
		return fmt.Errorf("%w: %s", ErrStale, r.Document)
	}
	if err := d.Seek(r.Position); err != nil {
		d.Reset()
		return fmt.Errorf("%w: %v", ErrStale, err)
	}
	applog.WithComponent("session").Debug("session resumed", slog.String("id", id), slog.Int("position", r.Position))
	return nil
}
