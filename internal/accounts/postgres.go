package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	dErrors "enrollgate/pkg/domain-errors"
)

// Schema is the table backing the Postgres store.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id             UUID PRIMARY KEY,
	address        TEXT        NOT NULL UNIQUE,
	secret_hash    TEXT        NOT NULL,
	role           TEXT        NOT NULL,
	first_name     TEXT        NOT NULL DEFAULT '',
	last_name      TEXT        NOT NULL DEFAULT '',
	phone          TEXT        NOT NULL DEFAULT '',
	specialization TEXT        NOT NULL DEFAULT '',
	license_number TEXT        NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL
);
`

const uniqueViolation = "23505"

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Exists(ctx context.Context, address string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM accounts WHERE address = $1)
	`, address).Scan(&exists)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "check account existence")
	}
	return exists, nil
}

func (s *PostgresStore) Create(ctx context.Context, account Account) (Account, error) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.CreatedAt = time.Now()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, address, secret_hash, role, first_name, last_name, phone, specialization, license_number, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, account.ID, account.Address, account.SecretHash, account.Role,
		account.Profile.FirstName, account.Profile.LastName, account.Profile.Phone,
		account.Profile.Specialization, account.Profile.LicenseNumber, account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Account{}, ErrDuplicate
		}
		return Account{}, dErrors.Wrap(err, dErrors.CodeInternal, "create account")
	}
	return account, nil
}

func (s *PostgresStore) FindByAddress(ctx context.Context, address string) (Account, error) {
	var account Account
	err := s.pool.QueryRow(ctx, `
		SELECT id, address, secret_hash, role, first_name, last_name, phone, specialization, license_number, created_at
		FROM accounts
		WHERE address = $1
	`, address).Scan(
		&account.ID, &account.Address, &account.SecretHash, &account.Role,
		&account.Profile.FirstName, &account.Profile.LastName, &account.Profile.Phone,
		&account.Profile.Specialization, &account.Profile.LicenseNumber, &account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, dErrors.Wrap(err, dErrors.CodeInternal, "find account")
	}
	return account, nil
}
