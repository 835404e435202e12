package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/gtd_inbox/internal/models"
)

// ErrAdminExists is returned when a second administrator would be created.
var ErrAdminExists = errors.New("admin already exists")

const adminColumns = `id, email, password_hash, totp_secret, totp_enabled, created_at, updated_at`

// AdminUserRepository is the credential store for the single administrator.
type AdminUserRepository struct {
	db *sqlx.DB
}

func NewAdminUserRepository(db *sqlx.DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

// Count returns how many administrators exist (0 or 1).
func (r *AdminUserRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM admin_users`)
	return n, err
}

// GetByEmail returns sql.ErrNoRows when no administrator has this email.
func (r *AdminUserRepository) GetByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var user models.AdminUser
	err := r.db.GetContext(ctx, &user, `SELECT `+adminColumns+` FROM admin_users WHERE email = $1`, email)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID returns sql.ErrNoRows when the administrator does not exist.
func (r *AdminUserRepository) GetByID(ctx context.Context, id int) (*models.AdminUser, error) {
	var user models.AdminUser
	err := r.db.GetContext(ctx, &user, `SELECT `+adminColumns+` FROM admin_users WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts the administrator. The singleton constraint makes the
// insert fail with ErrAdminExists once any administrator is present, even
// when two bootstrap requests race.
func (r *AdminUserRepository) Create(ctx context.Context, user *models.AdminUser) error {
	const q = `
		INSERT INTO admin_users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, totp_enabled, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, q, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.TOTPEnabled, &user.CreatedAt, &user.UpdatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrAdminExists
	}
	return err
}

// SetTOTPSecret stores a new, unconfirmed secret.
func (r *AdminUserRepository) SetTOTPSecret(ctx context.Context, id int, secret string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE admin_users SET totp_secret = $2, updated_at = NOW()
		WHERE id = $1
	`, id, secret)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// EnableTOTP marks the enrolled secret as confirmed.
func (r *AdminUserRepository) EnableTOTP(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE admin_users SET totp_enabled = TRUE, updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
