package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
)

type labRepository struct {
	BaseRepository
}

func NewLabRepository(base BaseRepository) repository.LabRepository {
	return &labRepository{base}
}

func (r *labRepository) Get(ctx context.Context, id int64) (lab *model.Lab, err error) {
	defer func(start time.Time) { r.observe("labs", "get", start, err) }(time.Now())

	query := `
		SELECT id, name, address, phone, email, created_at, updated_at
		FROM labs
		WHERE id = $1
	`

	lab = &model.Lab{}
	if err = r.db.GetContext(ctx, lab, query, id); err != nil {
		err = mapError(err)
		return nil, err
	}
	return lab, nil
}

func (r *labRepository) Update(ctx context.Context, lab *model.Lab) (err error) {
	defer func(start time.Time) { r.observe("labs", "update", start, err) }(time.Now())

	lab.UpdatedAt = time.Now()

	query := `
		UPDATE labs SET
			name = :name,
			address = :address,
			phone = :phone,
			email = :email,
			updated_at = :updated_at
		WHERE id = :id
	`

	res, err := sqlx.NamedExecContext(ctx, r.db, query, lab)
	if err != nil {
		return fmt.Errorf("failed to update lab: %w", err)
	}
	return expectOne(res)
}

// CreateWithOwner inserts the lab and promotes userID to its admin. The user
// must not belong to a lab yet.
func (r *labRepository) CreateWithOwner(ctx context.Context, lab *model.Lab, userID int64, perms model.Permissions) (err error) {
	defer func(start time.Time) { r.observe("labs", "create", start, err) }(time.Now())

	now := time.Now()
	lab.CreatedAt = now
	lab.UpdatedAt = now

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		rows, err := sqlx.NamedQueryContext(ctx, tx, `
			INSERT INTO labs (name, address, phone, email, created_at, updated_at)
			VALUES (:name, :address, :phone, :email, :created_at, :updated_at)
			RETURNING id
		`, lab)
		if err != nil {
			return fmt.Errorf("failed to create lab: %w", mapError(err))
		}
		if !rows.Next() {
			rows.Close()
			return fmt.Errorf("failed to create lab: no id returned")
		}
		if err := rows.Scan(&lab.ID); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan lab id: %w", err)
		}
		rows.Close()

		res, err := tx.ExecContext(ctx, `
			UPDATE users SET
				lab_id = $1,
				role = $2,
				is_admin = TRUE,
				permissions = $3,
				has_completed_setup = TRUE,
				updated_at = $4
			WHERE id = $5 AND lab_id IS NULL AND deleted_at IS NULL
		`, lab.ID, model.RoleAdmin, perms, now, userID)
		if err != nil {
			return fmt.Errorf("failed to assign lab owner: %w", err)
		}
		return expectOne(res)
	})
}
