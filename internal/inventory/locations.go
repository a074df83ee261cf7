package inventory

import (
	"context"
	"database/sql"
	"errors"

	"asset-inventory-api/internal/audit"
	"asset-inventory-api/internal/models"
	"asset-inventory-api/internal/store"
)

// LocationStore owns the locations table. Location names are unique;
// imports resolve locations by name and create them on the fly.
type LocationStore struct {
	db    *sql.DB
	audit *audit.Recorder
}

func NewLocationStore(db *sql.DB, rec *audit.Recorder) *LocationStore {
	return &LocationStore{db: db, audit: rec}
}

func (s *LocationStore) List(ctx context.Context) ([]models.Location, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM locations
		ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := []models.Location{}
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.IsActive, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// GetByID returns nil when no such location exists.
func (s *LocationStore) GetByID(ctx context.Context, id int64) (*models.Location, error) {
	var l models.Location
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM locations WHERE id = $1`, id).
		Scan(&l.ID, &l.Name, &l.Description, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *LocationStore) Create(ctx context.Context, name string, description *string, actor models.Actor) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO locations (name, description)
		VALUES ($1, $2)
		RETURNING id`, name, description).Scan(&id)
	if err != nil {
		if store.IsUniqueViolation(err, "locations_name_key") {
			return 0, &DuplicateKeyError{Field: "name"}
		}
		return 0, err
	}

	s.audit.RecordBestEffort(ctx, s.db, audit.Entry("locations", id, "insert", nil,
		models.JSONB{"name": name, "description": description}, actor))
	return id, nil
}

func (s *LocationStore) Update(ctx context.Context, id int64, name string, description *string, active bool, actor models.Actor) error {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE locations SET name = $1, description = $2, is_active = $3
		WHERE id = $4`, name, description, active, id)
	if err != nil {
		if store.IsUniqueViolation(err, "locations_name_key") {
			return &DuplicateKeyError{Field: "name"}
		}
		return err
	}

	s.audit.RecordBestEffort(ctx, s.db, audit.Entry("locations", id, "update",
		models.Snapshot(existing),
		models.JSONB{"name": name, "description": description, "is_active": active}, actor))
	return nil
}

// ResolveByName finds a location by exact name, creating it when absent.
// Used by the bulk import path.
func (s *LocationStore) ResolveByName(ctx context.Context, name string, actor models.Actor) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM locations WHERE name = $1`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	desc := "Imported from CSV"
	id, err = s.Create(ctx, name, &desc, actor)
	if err != nil {
		// A concurrent import may have created it first.
		var dup *DuplicateKeyError
		if errors.As(err, &dup) {
			var existingID int64
			if lookupErr := s.db.QueryRowContext(ctx,
				`SELECT id FROM locations WHERE name = $1`, name).Scan(&existingID); lookupErr == nil {
				return existingID, nil
			}
		}
		return 0, err
	}
	return id, nil
}
