package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/lab-api/internal/model"
	"github.com/jwalitptl/lab-api/internal/repository"
)

type userRepository struct {
	*TenantTable[model.User, *model.User]
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{NewTenantTable[model.User](base, UserTable)}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (user *model.User, err error) {
	defer func(start time.Time) { r.observe("users", "get_by_id", start, err) }(time.Now())

	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1 AND deleted_at IS NULL", UserTable.selectColumns())

	user = &model.User{}
	if err = r.db.GetContext(ctx, user, query, id); err != nil {
		err = mapError(err)
		return nil, err
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (user *model.User, err error) {
	defer func(start time.Time) { r.observe("users", "get_by_email", start, err) }(time.Now())

	query := fmt.Sprintf("SELECT %s FROM users WHERE lower(email) = lower($1) AND deleted_at IS NULL", UserTable.selectColumns())

	user = &model.User{}
	if err = r.db.GetContext(ctx, user, query, strings.TrimSpace(email)); err != nil {
		err = mapError(err)
		return nil, err
	}
	return user, nil
}

// Register inserts a user that has not joined a lab yet; lab_id stays NULL.
func (r *userRepository) Register(ctx context.Context, user *model.User) (err error) {
	defer func(start time.Time) { r.observe("users", "register", start, err) }(time.Now())

	user.LabID = nil
	user.Touch(r.now())

	query := `
		INSERT INTO users (
			lab_id, name, email, password_hash, role, is_admin,
			permissions, has_completed_setup, created_at, updated_at
		) VALUES (
			NULL, :name, :email, :password_hash, :role, :is_admin,
			:permissions, :has_completed_setup, :created_at, :updated_at
		) RETURNING id
	`

	rows, err := sqlx.NamedQueryContext(ctx, r.db, query, user)
	if err != nil {
		err = mapError(err)
		return fmt.Errorf("failed to register user: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return fmt.Errorf("failed to register user: no id returned")
	}
	return rows.Scan(&user.ID)
}
