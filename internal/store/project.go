// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"planora/internal/models"
)

// ProjectStore handles all project-related database operations.
type ProjectStore struct {
	db *sql.DB
}

// NewProjectStore creates a new ProjectStore with the given database connection.
func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// projectColumns lists the columns selected in project queries. Nullable
// text columns are coalesced so the model carries plain strings.
const projectColumns = `id, name, source_image,
	COALESCE(rendered_image, ''), COALESCE(rendered_path, ''),
	owner_id, visibility, timestamp`

// scanProject scans a project row from the result set.
func scanProject(scanner interface{ Scan(...any) error }) (*models.Project, error) {
	var p models.Project
	err := scanner.Scan(
		&p.ID, &p.Name, &p.SourceImage,
		&p.RenderedImage, &p.RenderedPath,
		&p.OwnerID, &p.Visibility, &p.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert inserts a project or, when the id already exists, overwrites the
// prior record. The id is never regenerated across updates; update is
// create-with-same-id.
func (s *ProjectStore) Upsert(p *models.Project) (*models.Project, error) {
	p.Normalize()

	row := s.db.QueryRow(`
		INSERT INTO projects (id, name, source_image, rendered_image, rendered_path,
			owner_id, visibility, timestamp)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			source_image = EXCLUDED.source_image,
			rendered_image = EXCLUDED.rendered_image,
			rendered_path = EXCLUDED.rendered_path,
			owner_id = EXCLUDED.owner_id,
			visibility = EXCLUDED.visibility,
			timestamp = EXCLUDED.timestamp
		RETURNING `+projectColumns,
		p.ID, p.Name, p.SourceImage, p.RenderedImage, p.RenderedPath,
		p.OwnerID, p.Visibility, p.Timestamp,
	)

	saved, err := scanProject(row)
	if err != nil {
		return nil, fmt.Errorf("upsert project: %w", err)
	}
	return saved, nil
}

// FindByID retrieves a single project by its id. Returns nil if not found.
func (s *ProjectStore) FindByID(id string) (*models.Project, error) {
	row := s.db.QueryRow(`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find project by id: %w", err)
	}
	return p, nil
}

// ListByOwner returns one user's projects ordered by last-write time,
// most recent first.
func (s *ProjectStore) ListByOwner(ownerID uuid.UUID) ([]models.Project, error) {
	rows, err := s.db.Query(`
		SELECT `+projectColumns+`
		FROM projects
		WHERE owner_id = $1
		ORDER BY timestamp DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects by owner: %w", err)
	}
	defer rows.Close()

	return collectProjects(rows)
}

func collectProjects(rows *sql.Rows) ([]models.Project, error) {
	var items []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

// Delete removes a project. Returns whether a record existed and was
// removed; a missing id is not an error.
func (s *ProjectStore) Delete(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete project rows: %w", err)
	}
	return n > 0, nil
}
