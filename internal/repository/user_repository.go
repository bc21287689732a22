package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/account-service/internal/domain"
)

// UserRepository defines persistence access for accounts. The redeem
// operations are single conditional updates: of two racing redemptions of
// the same token, exactly one observes a matching unexpired row.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]*domain.User, int, error)

	SetVerificationToken(ctx context.Context, id, token string, expires time.Time) error
	SetResetToken(ctx context.Context, id, token string, expires time.Time) error
	RedeemVerificationToken(ctx context.Context, token string) (*domain.User, error)
	RedeemResetToken(ctx context.Context, token, newPasswordHash string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id, newHash string) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `
        id, name, email, password_hash, role, is_email_verified,
        email_verification_token, email_verification_expires,
        password_reset_token, password_reset_expires,
        created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsEmailVerified,
		&user.EmailVerificationToken,
		&user.EmailVerificationExpires,
		&user.PasswordResetToken,
		&user.PasswordResetExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, role, is_email_verified)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsEmailVerified,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, email=$2, password_hash=$3, role=$4,
            is_email_verified=$5, updated_at=NOW()
        WHERE id=$6`

	cmd, err := r.pool.Exec(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsEmailVerified,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id=$1`

	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(r.pool.QueryRow(ctx, query, domain.NormalizeEmail(email)))
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, int, error) {
	const countQuery = `SELECT COUNT(*) FROM users`

	var total int
	if err := r.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `SELECT` + userColumns + `
        FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) SetVerificationToken(ctx context.Context, id, token string, expires time.Time) error {
	const query = `
        UPDATE users SET email_verification_token=$1, email_verification_expires=$2, updated_at=NOW()
        WHERE id=$3`

	cmd, err := r.pool.Exec(ctx, query, token, expires, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	const query = `
        UPDATE users SET password_reset_token=$1, password_reset_expires=$2, updated_at=NOW()
        WHERE id=$3`

	cmd, err := r.pool.Exec(ctx, query, token, expires, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// RedeemVerificationToken marks the account verified and clears the token in
// one statement, conditional on the stored value matching and not having
// expired. pgx.ErrNoRows covers wrong, expired and already-redeemed tokens
// alike.
func (r *userRepository) RedeemVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	const query = `
        UPDATE users SET is_email_verified=TRUE,
            email_verification_token=NULL, email_verification_expires=NULL,
            updated_at=NOW()
        WHERE email_verification_token=$1 AND email_verification_expires > NOW()
        RETURNING` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query, token))
}

// RedeemResetToken swaps in the new password hash and clears the token in
// one statement, with the same match-and-expiry condition as verification.
func (r *userRepository) RedeemResetToken(ctx context.Context, token, newPasswordHash string) (*domain.User, error) {
	const query = `
        UPDATE users SET password_hash=$2,
            password_reset_token=NULL, password_reset_expires=NULL,
            updated_at=NOW()
        WHERE password_reset_token=$1 AND password_reset_expires > NOW()
        RETURNING` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query, token, newPasswordHash))
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, id, newHash string) error {
	const query = `
        UPDATE users SET password_hash=$1, updated_at=NOW()
        WHERE id=$2`

	cmd, err := r.pool.Exec(ctx, query, newHash, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
