// Package store archives analysis runs in a sqlite database so that the
// exact inputs behind a results table can be recovered later.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/carbocation/ddct"
	"github.com/carbocation/ddct/session"
	"github.com/carbocation/pfx"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	samples INTEGER NOT NULL,
	genes INTEGER NOT NULL,
	reference_condition TEXT NOT NULL,
	session TEXT NOT NULL,
	results TEXT NOT NULL
)`

// createdLayout is fixed width so that created_at sorts as text in time order.
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Store struct {
	DB *sqlx.DB
}

// Run summarizes one archived analysis.
type Run struct {
	ID                 string `db:"id" json:"id"`
	CreatedAt          string `db:"created_at" json:"created_at"`
	Samples            int    `db:"samples" json:"samples"`
	Genes              int    `db:"genes" json:"genes"`
	ReferenceCondition string `db:"reference_condition" json:"reference_condition"`
}

// Created parses CreatedAt.
func (r Run) Created() (time.Time, error) {
	return time.Parse(createdLayout, r.CreatedAt)
}

// StoredRun is an archived analysis with its inputs and outputs.
type StoredRun struct {
	Run
	Session *session.Session `json:"session"`
	Results *ddct.Results    `json:"results"`
}

type storedRow struct {
	Run
	Session string `db:"session"`
	Results string `db:"results"`
}

// Open connects to (and if needed creates) the archive at path.
func Open(path string) (*Store, error) {
	// URI filenames have to begin with 'file:'; see
	// https://www.sqlite.org/c3ref/open.html
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}

	db, err := sqlx.Connect(driverName, path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	// sqlite serializes writers anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pfx.Err(err)
	}

	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// SaveRun archives a session and the results computed from it, returning
// the new run's ID.
func (s *Store) SaveRun(ctx context.Context, sess *session.Session, results *ddct.Results) (string, error) {
	return s.saveRunAt(ctx, sess, results, time.Now())
}

func (s *Store) saveRunAt(ctx context.Context, sess *session.Session, results *ddct.Results, created time.Time) (string, error) {
	var sessionJSON bytes.Buffer
	if err := sess.Export(&sessionJSON); err != nil {
		return "", err
	}

	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return "", pfx.Err(err)
	}

	run := storedRow{
		Run: Run{
			ID:                 uuid.New().String(),
			CreatedAt:          created.UTC().Format(createdLayout),
			Samples:            ddct.SampleCount(sess.Rows),
			Genes:              len(sess.Config.Genes),
			ReferenceCondition: sess.Config.ReferenceCondition,
		},
		Session: sessionJSON.String(),
		Results: string(resultsJSON),
	}

	_, err = s.DB.NamedExecContext(ctx, `INSERT INTO runs (id, created_at, samples, genes, reference_condition, session, results)
VALUES (:id, :created_at, :samples, :genes, :reference_condition, :session, :results)`, run)
	if err != nil {
		return "", pfx.Err(err)
	}

	return run.ID, nil
}

// ListRuns returns every archived run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	out := make([]Run, 0)

	err := s.DB.SelectContext(ctx, &out, `SELECT id, created_at, samples, genes, reference_condition FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return out, nil
}

// ErrNotFound is returned by LoadRun for an unknown ID.
var ErrNotFound = fmt.Errorf("run not found")

// LoadRun restores an archived run.
func (s *Store) LoadRun(ctx context.Context, id string) (*StoredRun, error) {
	row := storedRow{}

	err := s.DB.GetContext(ctx, &row, `SELECT * FROM runs WHERE id=?`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	} else if err != nil {
		return nil, pfx.Err(err)
	}

	sess, err := session.Import(strings.NewReader(row.Session))
	if err != nil {
		return nil, err
	}

	results := &ddct.Results{}
	if err := json.Unmarshal([]byte(row.Results), results); err != nil {
		return nil, pfx.Err(err)
	}

	return &StoredRun{Run: row.Run, Session: sess, Results: results}, nil
}
