package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/nammaooru/offers-api/internal/model"
	"github.com/nammaooru/offers-api/internal/utils"
)

// UserRepo provides persistence for users: registration, OTP
// verification, password resets, role management and the loyalty
// point balance mutated by the redemption flow.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var (
	ErrEmailExists  = errors.New("email already exists")
	ErrUserNotFound = errors.New("user not found")
)

// NewUserParams carries everything needed to insert an unverified
// account. The caller hashes nothing; Create hashes the password and
// stores the OTP alongside its expiry.
type NewUserParams struct {
	Username       string
	Email          string
	Password       string
	Phone          *string
	Role           string
	ReferralCode   *string
	ReferredBy     *uint64
	MyReferralCode string
	OTPCode        string
	OTPExpiresAt   time.Time
	BcryptCost     int
}

const userColumns = `id, username, email, password_hash, phone, role, points,
	is_verified, is_active, referral_code, referred_by, my_referral_code,
	otp_code, otp_expires_at, otp_sent_at, store_id, last_login, created_at, updated_at`

// Create inserts an unverified user and returns its ID. The unique
// index on users.email turns concurrent registrations for the same
// address into ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, p NewUserParams) (uint64, error) {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	hash, err := utils.HashPassword(p.Password, p.BcryptCost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users
		 (username, email, password_hash, phone, role, referral_code, referred_by,
		  my_referral_code, otp_code, otp_expires_at, otp_sent_at, is_verified)
		 VALUES (?,?,?,?,?,?,?,?,?,?,UTC_TIMESTAMP(),0)`,
		p.Username, p.Email, hash, p.Phone, p.Role, p.ReferralCode, p.ReferredBy,
		p.MyReferralCode, p.OTPCode, p.OTPExpiresAt)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email. sql.ErrNoRows is
// returned untouched so callers can distinguish "unknown email".
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=? LIMIT 1`, email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id)
}

// GetByReferralCode resolves the owner of a my_referral_code value.
func (r *UserRepo) GetByReferralCode(ctx context.Context, code string) (model.User, error) {
	return r.scanOne(ctx, `SELECT `+userColumns+` FROM users WHERE my_referral_code=? LIMIT 1`, code)
}

func (r *UserRepo) scanOne(ctx context.Context, q string, arg interface{}) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Phone, &u.Role, &u.Points,
		&u.IsVerified, &u.IsActive, &u.ReferralCode, &u.ReferredBy, &u.MyReferralCode,
		&u.OTPCode, &u.OTPExpiresAt, &u.OTPSentAt, &u.StoreID, &u.LastLogin,
		&u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// ListByRole returns users of one role, newest first. Password hashes
// are intentionally not selected.
func (r *UserRepo) ListByRole(ctx context.Context, role string) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, username, email, role, points, is_verified, is_active, store_id, last_login, created_at
		 FROM users WHERE role=? ORDER BY created_at DESC`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.Points,
			&u.IsVerified, &u.IsActive, &u.StoreID, &u.LastLogin, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// MarkVerified completes the OTP challenge: clears the pending code and
// flips is_verified in one statement so a verified row never retains a
// stale OTP.
func (r *UserRepo) MarkVerified(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET is_verified=1, otp_code=NULL, otp_expires_at=NULL WHERE id=?`, id)
	return err
}

// StoreOTP records a freshly generated OTP together with its expiry and
// send time.
func (r *UserRepo) StoreOTP(ctx context.Context, id uint64, otp string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET otp_code=?, otp_expires_at=?, otp_sent_at=UTC_TIMESTAMP() WHERE id=?`,
		otp, expiresAt, id)
	return err
}

// TouchLogin records a successful login.
func (r *UserRepo) TouchLogin(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET last_login=UTC_TIMESTAMP() WHERE id=?`, id)
	return err
}

// UpdateRole changes a user's role. Affected-row count distinguishes a
// missing user from a no-op.
func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET role=? WHERE id=?`, role, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either unknown id or same role; look up to tell them apart.
		var exists uint64
		if err := r.DB.QueryRowContext(ctx, `SELECT id FROM users WHERE id=?`, id).Scan(&exists); err != nil {
			if err == sql.ErrNoRows {
				return ErrUserNotFound
			}
			return err
		}
	}
	return nil
}

// SetStore links a store-role user to the store they created.
func (r *UserRepo) SetStore(ctx context.Context, userID, storeID uint64) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET store_id=? WHERE id=?`, storeID, userID)
	return err
}

// AddPoints adjusts a user's loyalty balance by delta.
func (r *UserRepo) AddPoints(ctx context.Context, id uint64, delta int64) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET points=points+? WHERE id=?`, delta, id)
	return err
}

// AddPointsTx is AddPoints within an existing transaction; the
// redemption status transition uses it so the credit commits or rolls
// back together with the ledger update.
func (r *UserRepo) AddPointsTx(ctx context.Context, tx *sql.Tx, id uint64, delta int64) error {
	_, err := tx.ExecContext(ctx, `UPDATE users SET points=points+? WHERE id=?`, delta, id)
	return err
}

// SetResetToken stores the SHA-256 hash of a password reset token and
// its expiry on the user row.
func (r *UserRepo) SetResetToken(ctx context.Context, id uint64, tokenHash string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET reset_token_hash=?, reset_token_expires_at=? WHERE id=?`,
		tokenHash, expiresAt, id)
	return err
}

// ResetPassword sets a new bcrypt hash for the user matching an
// unexpired reset-token hash, consuming the token. Returns
// sql.ErrNoRows when the token is unknown or expired.
func (r *UserRepo) ResetPassword(ctx context.Context, tokenHash, newPassword string, cost int) error {
	hash, err := utils.HashPassword(newPassword, cost)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash=?, reset_token_hash=NULL, reset_token_expires_at=NULL
		 WHERE reset_token_hash=? AND reset_token_expires_at > UTC_TIMESTAMP()`,
		hash, tokenHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
