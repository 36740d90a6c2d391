package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/furkanksl/aircut/internal/trajectory"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrTooFewPoints is returned when saving a trajectory with fewer than two
// points.
var ErrTooFewPoints = errors.New("template needs at least 2 points")

// Template is a saved gesture: a named trajectory with an optional command.
type Template struct {
	ID        string
	Name      string
	Command   string
	Points    trajectory.Trajectory
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TemplateRepository provides CRUD operations for templates.
type TemplateRepository struct {
	db *sql.DB
}

// Templates returns the template repository for this store.
func (s *Store) Templates() *TemplateRepository {
	return &TemplateRepository{db: s.db}
}

// Create inserts a new template with its trajectory points.
func (r *TemplateRepository) Create(t *Template) error {
	if len(t.Points) < 2 {
		return ErrTooFewPoints
	}

	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO templates (id, name, command, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Command, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if err := insertPoints(tx, t.ID, t.Points); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves a template and its points by id.
func (r *TemplateRepository) GetByID(id string) (*Template, error) {
	t := &Template{}

	err := r.db.QueryRow(
		`SELECT id, name, command, created_at, updated_at
		 FROM templates WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.Name, &t.Command, &t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	points, err := r.getPoints(t.ID)
	if err != nil {
		return nil, err
	}
	t.Points = points

	return t, nil
}

// List retrieves all templates with their points, oldest first. Insertion
// order matters to the matching engine's tie-break, so the ordering here is
// part of the contract.
func (r *TemplateRepository) List() ([]*Template, error) {
	rows, err := r.db.Query(
		`SELECT id, name, command, created_at, updated_at
		 FROM templates ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		t := &Template{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Command, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range templates {
		points, err := r.getPoints(t.ID)
		if err != nil {
			return nil, err
		}
		t.Points = points
	}

	return templates, nil
}

// Update modifies a template's name, command and (when non-nil) points.
func (r *TemplateRepository) Update(t *Template) error {
	t.UpdatedAt = time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE templates SET name = ?, command = ?, updated_at = ?
		 WHERE id = ?`,
		t.Name, t.Command, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	if t.Points != nil {
		if len(t.Points) < 2 {
			return ErrTooFewPoints
		}
		if _, err := tx.Exec(`DELETE FROM template_points WHERE template_id = ?`, t.ID); err != nil {
			return err
		}
		if err := insertPoints(tx, t.ID, t.Points); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Delete removes a template by id; its points cascade.
func (r *TemplateRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *TemplateRepository) getPoints(templateID string) (trajectory.Trajectory, error) {
	rows, err := r.db.Query(
		`SELECT x, y FROM template_points WHERE template_id = ? ORDER BY sequence ASC`,
		templateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points trajectory.Trajectory
	for rows.Next() {
		var p trajectory.Point
		if err := rows.Scan(&p.X, &p.Y); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func insertPoints(tx *sql.Tx, templateID string, points trajectory.Trajectory) error {
	stmt, err := tx.Prepare(
		`INSERT INTO template_points (template_id, sequence, x, y) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range points {
		if _, err := stmt.Exec(templateID, i, p.X, p.Y); err != nil {
			return err
		}
	}
	return nil
}
