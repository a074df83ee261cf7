// Package inventory owns the inventory record lifecycle: validation,
// CRUD with uniqueness arbitration, and filterable paginated search.
package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"asset-inventory-api/internal/audit"
	"asset-inventory-api/internal/models"
	"asset-inventory-api/internal/store"
)

const auditTable = "inventory_items"

// Repository owns inventory record identity: it assigns ids and
// arbitrates serial/property number uniqueness. Callers hold only copies
// of field values.
type Repository struct {
	db         *sql.DB
	audit      *audit.Recorder
	maxPerPage int
}

func NewRepository(db *sql.DB, rec *audit.Recorder, maxPerPage int) *Repository {
	if maxPerPage <= 0 {
		maxPerPage = 100
	}
	return &Repository{db: db, audit: rec, maxPerPage: maxPerPage}
}

// SearchResult is one page of search output.
type SearchResult struct {
	Items      []models.InventoryItem `json:"items"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	PerPage    int                    `json:"per_page"`
	TotalPages int                    `json:"total_pages"`
}

const itemColumns = `
	i.id, i.make, i.model, i.serial_number, i.property_number, i.use_case,
	i.location_id, l.name, i.on_site, i.description, i.assigned_to,
	i.purchase_date, i.warranty_end_date, i.excess_date, i.purchase_cost,
	i.vendor, i.status, i.created_by, u.username, i.created_at, i.updated_at`

const itemJoins = `
	FROM inventory_items i
	LEFT JOIN locations l ON i.location_id = l.id
	LEFT JOIN users u ON i.created_by = u.id`

// Add validates the payload, re-checks uniqueness inside the insert
// transaction (the race between validation and insert), writes the row
// and emits an audit entry. The storage constraints remain the backstop
// for duplicates that slip past both checks.
func (r *Repository) Add(ctx context.Context, p models.ItemPayload, actor models.Actor) (int64, error) {
	if errs := Validate(p); len(errs) > 0 {
		return 0, &ValidationError{Fields: errs}
	}
	// A collision is a conflict, not a malformed payload, so it surfaces
	// as DuplicateKeyError rather than joining the field error map.
	if err := r.checkUnique(ctx, r.db, p, 0); err != nil {
		return 0, err
	}

	var id int64
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		// Re-check inside the transaction to close the race between the
		// pre-check and the insert.
		if err := r.checkUnique(ctx, tx, p, 0); err != nil {
			return err
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO inventory_items (
				make, model, serial_number, property_number, use_case, location_id,
				on_site, description, assigned_to, purchase_date, warranty_end_date,
				excess_date, purchase_cost, vendor, status, created_by
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
			RETURNING id`,
			p.Make, p.Model, p.SerialNumber, p.PropertyNumber, p.UseCase, p.LocationID,
			p.OnSiteOrDefault(), p.Description, p.AssignedTo, dateArg(p.PurchaseDate),
			dateArg(p.WarrantyEndDate), dateArg(p.ExcessDate), costArg(p.PurchaseCost),
			p.Vendor, p.StatusOrDefault(), actor.UserID,
		).Scan(&id)
		if err != nil {
			return classifyUnique(err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.audit.RecordBestEffort(ctx, r.db, audit.Entry(auditTable, id, "insert", nil, models.Snapshot(p), actor))
	return id, nil
}

// Update replaces the stored field set of an existing record.
func (r *Repository) Update(ctx context.Context, id int64, p models.ItemPayload, actor models.Actor) error {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}

	if errs := Validate(p); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	if err := r.checkUnique(ctx, r.db, p, id); err != nil {
		return err
	}

	err = store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.checkUnique(ctx, tx, p, id); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE inventory_items
			SET make = $1, model = $2, serial_number = $3, property_number = $4,
			    use_case = $5, location_id = $6, on_site = $7, description = $8,
			    assigned_to = $9, purchase_date = $10, warranty_end_date = $11,
			    excess_date = $12, purchase_cost = $13, vendor = $14, status = $15
			WHERE id = $16 AND status <> $17`,
			p.Make, p.Model, p.SerialNumber, p.PropertyNumber, p.UseCase, p.LocationID,
			p.OnSiteOrDefault(), p.Description, p.AssignedTo, dateArg(p.PurchaseDate),
			dateArg(p.WarrantyEndDate), dateArg(p.ExcessDate), costArg(p.PurchaseCost),
			p.Vendor, p.StatusOrDefault(), id, models.StatusDeleted,
		)
		if err != nil {
			return classifyUnique(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.audit.RecordBestEffort(ctx, r.db,
		audit.Entry(auditTable, id, "update", models.Snapshot(existing), models.Snapshot(p), actor))
	return nil
}

// Delete removes a record. With soft=true the row stays in storage under
// a terminal deleted status and disappears from every read path.
func (r *Repository) Delete(ctx context.Context, id int64, soft bool, actor models.Actor) error {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrNotFound
	}

	err = store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var res sql.Result
		var execErr error
		if soft {
			res, execErr = tx.ExecContext(ctx, `
				UPDATE inventory_items SET status = $1, deleted_at = now()
				WHERE id = $2 AND status <> $1`, models.StatusDeleted, id)
		} else {
			res, execErr = tx.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
		}
		if execErr != nil {
			return execErr
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.audit.RecordBestEffort(ctx, r.db,
		audit.Entry(auditTable, id, "delete", models.Snapshot(existing), nil, actor))
	return nil
}

// GetByID returns the record with display-friendly joined fields, or nil
// when no such record exists.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.InventoryItem, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT"+itemColumns+itemJoins+" WHERE i.id = $1 AND i.status <> $2",
		id, models.StatusDeleted)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Search returns one page of records matching the filters, ordered by
// creation time descending with id as the tie-break.
func (r *Repository) Search(ctx context.Context, f Filters, page, perPage int) (SearchResult, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > r.maxPerPage {
		perPage = r.maxPerPage
	}
	if page < 1 {
		page = 1
	}

	args := []any{}
	where := " WHERE " + strings.Join(f.whereClauses(&args), " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM inventory_items i"+where, args...).Scan(&total); err != nil {
		return SearchResult{}, fmt.Errorf("count inventory items: %w", err)
	}

	totalPages := 1
	if total > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	if page > totalPages {
		page = totalPages
	}

	sqlStr := "SELECT" + itemColumns + itemJoins + where +
		" ORDER BY i.created_at DESC, i.id DESC" +
		fmt.Sprintf(" LIMIT %d OFFSET %d", perPage, (page-1)*perPage)

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search inventory items: %w", err)
	}
	defer rows.Close()

	items := []models.InventoryItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return SearchResult{}, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return SearchResult{}, err
	}

	return SearchResult{
		Items:      items,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

// Export returns every record matching the filters up to limit, in search
// order, without pagination.
func (r *Repository) Export(ctx context.Context, f Filters, limit int) ([]models.InventoryItem, error) {
	args := []any{}
	where := " WHERE " + strings.Join(f.whereClauses(&args), " AND ")

	sqlStr := "SELECT" + itemColumns + itemJoins + where +
		" ORDER BY i.created_at DESC, i.id DESC"
	if limit > 0 {
		sqlStr += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("export inventory items: %w", err)
	}
	defer rows.Close()

	items := []models.InventoryItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// checkUnique returns DuplicateKeyError when the payload's serial or
// property number collides with another non-deleted record.
func (r *Repository) checkUnique(ctx context.Context, q store.Querier, p models.ItemPayload, excludeID int64) error {
	if exists, err := r.serialExists(ctx, q, p.SerialNumber, excludeID); err != nil {
		return err
	} else if exists {
		return &DuplicateKeyError{Field: "serial_number"}
	}
	if exists, err := r.propertyExists(ctx, q, p.PropertyNumber, excludeID); err != nil {
		return err
	} else if exists {
		return &DuplicateKeyError{Field: "property_number"}
	}
	return nil
}

func (r *Repository) serialExists(ctx context.Context, q store.Querier, serial string, excludeID int64) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM inventory_items
			WHERE serial_number = $1 AND id <> $2 AND status <> $3
		)`, serial, excludeID, models.StatusDeleted).Scan(&exists)
	return exists, err
}

func (r *Repository) propertyExists(ctx context.Context, q store.Querier, property string, excludeID int64) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM inventory_items
			WHERE property_number = $1 AND id <> $2 AND status <> $3
		)`, property, excludeID, models.StatusDeleted).Scan(&exists)
	return exists, err
}

type scannable interface {
	Scan(dest ...any) error
}

func scanItem(row scannable) (models.InventoryItem, error) {
	var it models.InventoryItem
	var purchaseDate, warrantyEnd, excessDate sql.NullTime
	var cost decimal.NullDecimal
	var createdBy sql.NullInt64

	err := row.Scan(
		&it.ID, &it.Make, &it.Model, &it.SerialNumber, &it.PropertyNumber, &it.UseCase,
		&it.LocationID, &it.LocationName, &it.OnSite, &it.Description, &it.AssignedTo,
		&purchaseDate, &warrantyEnd, &excessDate, &cost,
		&it.Vendor, &it.Status, &createdBy, &it.CreatedByUsername, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return it, err
	}

	if purchaseDate.Valid {
		it.PurchaseDate = &models.Date{Time: purchaseDate.Time}
	}
	if warrantyEnd.Valid {
		it.WarrantyEndDate = &models.Date{Time: warrantyEnd.Time}
	}
	if excessDate.Valid {
		it.ExcessDate = &models.Date{Time: excessDate.Time}
	}
	if cost.Valid {
		it.PurchaseCost = &cost.Decimal
	}
	if createdBy.Valid {
		it.CreatedBy = &createdBy.Int64
	}
	return it, nil
}

func classifyUnique(err error) error {
	switch {
	case store.IsUniqueViolation(err, "inventory_items_serial_number_key"):
		return &DuplicateKeyError{Field: "serial_number"}
	case store.IsUniqueViolation(err, "inventory_items_property_number_key"):
		return &DuplicateKeyError{Field: "property_number"}
	default:
		return err
	}
}

func dateArg(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	d, err := models.ParseDate(*s)
	if err != nil {
		return nil // unreachable after validation
	}
	return d.Time
}

func costArg(c *decimal.Decimal) any {
	if c == nil {
		return nil
	}
	return c.String()
}
