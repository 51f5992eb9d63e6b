package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'a@b.com' for key 'users.email'"))

	_, err = repo.Create(context.Background(), NewUserParams{
		Username:       "tester",
		Email:          "A@B.com",
		Password:       "secret1",
		Role:           "user",
		MyReferralCode: "NOO0001",
		OTPCode:        "123456",
		OTPExpiresAt:   time.Now().Add(10 * time.Minute),
		BcryptCost:     4,
	})
	assert.Equal(t, ErrEmailExists, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPasswordConsumesToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)

	t.Run("valid token", func(t *testing.T) {
		mock.ExpectExec(`UPDATE users SET password_hash=`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.ResetPassword(context.Background(), "hash", "newpass1", 4))
	})

	// The conditional update matches nothing for an unknown or expired
	// token, and for a token that was already used once.
	t.Run("unknown or expired token", func(t *testing.T) {
		mock.ExpectExec(`UPDATE users SET password_hash=`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		err := repo.ResetPassword(context.Background(), "stale", "newpass1", 4)
		assert.Equal(t, sql.ErrNoRows, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRoleUnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)

	mock.ExpectExec(`UPDATE users SET role=`).
		WithArgs("store", uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id FROM users WHERE id=`).
		WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)

	err = repo.UpdateRole(context.Background(), 99, "store")
	assert.Equal(t, ErrUserNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCounterNext(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewCounterRepo(db)

	mock.ExpectExec(`INSERT INTO counters`).
		WithArgs("referral_code").
		WillReturnResult(sqlmock.NewResult(12, 1))

	n, err := repo.Next(context.Background(), "referral_code")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
