// Package store is the SQLite-backed template library: named templates
// with integer versioning, validated on save.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/prompteng/ape/errors"
	"github.com/prompteng/ape/internal/id"
	"github.com/prompteng/ape/logger"
	"github.com/prompteng/ape/prompt"
	"github.com/prompteng/ape/version"
)

// Store persists templates in the prompt_templates table
type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// New creates a store on an open, migrated database
func New(db *sql.DB, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = logger.ComponentLogger("store")
	}
	return &Store{db: db, log: log}
}

// Record is one saved template version
type Record struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Version     int       `json:"version"`
	Model       string    `json:"model"`
	Description string    `json:"description,omitempty"`
	Engine      string    `json:"engine,omitempty"`
	Body        string    `json:"body,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Save validates the template text and stores it under name, bumping
// the version past the latest saved one. Malformed templates fail with
// the parser's format error; a template whose engine constraint
// excludes this toolkit build is rejected.
func (s *Store) Save(ctx context.Context, name, body string) (*Record, error) {
	if name == "" {
		return nil, errors.New("template name is required")
	}

	tpl, err := prompt.Parse(body)
	if err != nil {
		return nil, err
	}
	if err := checkEngine(tpl.Engine); err != nil {
		return nil, err
	}

	var latest int
	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM prompt_templates WHERE name = ?`,
		name).Scan(&latest)
	if err != nil {
		return nil, errors.Wrap(err, "looking up latest version")
	}

	rec := &Record{
		ID:          id.NewTemplate(),
		Name:        name,
		Version:     latest + 1,
		Model:       tpl.Model,
		Description: tpl.Description,
		Engine:      tpl.Engine,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO prompt_templates (id, name, version, model, description, engine, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Version, rec.Model, rec.Description, rec.Engine, rec.Body, rec.CreatedAt)
	if err != nil {
		return nil, errors.Wrapf(err, "saving template %q", name)
	}

	s.log.Debugw("template saved", "name", rec.Name, "version", rec.Version, "id", rec.ID)
	return rec, nil
}

// Get returns the latest version of a named template
func (s *Store) Get(ctx context.Context, name string) (*Record, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, name, version, model, description, engine, body, created_at
		FROM prompt_templates WHERE name = ?
		ORDER BY version DESC LIMIT 1`, name), name)
}

// GetVersion returns one specific version of a named template
func (s *Store) GetVersion(ctx context.Context, name string, ver int) (*Record, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT id, name, version, model, description, engine, body, created_at
		FROM prompt_templates WHERE name = ? AND version = ?`, name, ver), name)
}

func (s *Store) scanOne(row *sql.Row, name string) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Name, &rec.Version, &rec.Model,
		&rec.Description, &rec.Engine, &rec.Body, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("template %q", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading template %q", name)
	}
	return &rec, nil
}

// List returns the latest version of every saved template, without
// bodies, ordered by name
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.version, t.model, t.description, t.engine, t.created_at
		FROM prompt_templates t
		JOIN (SELECT name, MAX(version) AS version FROM prompt_templates GROUP BY name) latest
		  ON t.name = latest.name AND t.version = latest.version
		ORDER BY t.name`)
	if err != nil {
		return nil, errors.Wrap(err, "listing templates")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Version, &rec.Model,
			&rec.Description, &rec.Engine, &rec.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning template row")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes every version of a named template, returning how many
// rows went away
func (s *Store) Delete(ctx context.Context, name string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prompt_templates WHERE name = ?`, name)
	if err != nil {
		return 0, errors.Wrapf(err, "deleting template %q", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting deleted rows")
	}
	if n == 0 {
		return 0, errors.NewNotFoundError("template %q", name)
	}
	s.log.Debugw("template deleted", "name", name, "versions", n)
	return int(n), nil
}

// checkEngine verifies a template's engine constraint against the
// running toolkit version. Dev builds skip the check so local work is
// never blocked by an unparseable build version.
func checkEngine(constraint string) error {
	if constraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Wrapf(err, "invalid engine constraint %q", constraint)
	}

	current := version.Get().Version
	if current == "dev" {
		return nil
	}
	v, err := semver.NewVersion(current)
	if err != nil {
		return nil
	}
	if !c.Check(v) {
		return errors.Newf("template requires engine %q, this build is %s", constraint, current)
	}
	return nil
}
