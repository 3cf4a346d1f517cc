package code

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"enrollgate/internal/registration/models"
	dErrors "enrollgate/pkg/domain-errors"
)

// Schema is the table backing the Postgres store. Applied by deployment
// tooling and by the integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS verification_codes (
	id         BIGSERIAL PRIMARY KEY,
	address    TEXT        NOT NULL,
	code       TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	consumed   BOOLEAN     NOT NULL DEFAULT FALSE,
	account_id UUID
);
CREATE INDEX IF NOT EXISTS idx_verification_codes_address ON verification_codes (address) WHERE NOT consumed;
CREATE INDEX IF NOT EXISTS idx_verification_codes_expiry ON verification_codes (expires_at);
`

// PostgresStore is pure I/O; validity rules live in the OTP service.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, rec models.VerificationCode) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO verification_codes (address, code, created_at, expires_at, consumed, account_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.Address, rec.Code, rec.CreatedAt, rec.ExpiresAt, rec.Consumed, rec.AccountID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "insert verification code")
	}
	return nil
}

func (s *PostgresStore) DeleteUnconsumed(ctx context.Context, address string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM verification_codes
		WHERE address = $1 AND NOT consumed
	`, address)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete unconsumed codes")
	}
	return nil
}

// Consume is a single conditional UPDATE ... RETURNING, so two concurrent
// calls for the same code can never both see a row.
func (s *PostgresStore) Consume(ctx context.Context, address, code string, now time.Time) (models.VerificationCode, error) {
	var rec models.VerificationCode
	// The consumed guard lives in the UPDATE's own WHERE clause: a blocked
	// concurrent update re-evaluates it after the winner commits and
	// matches nothing. Issue guarantees at most one live row per address.
	err := s.pool.QueryRow(ctx, `
		UPDATE verification_codes
		SET consumed = TRUE
		WHERE address = $1 AND code = $2 AND NOT consumed AND expires_at > $3
		RETURNING address, code, created_at, expires_at, consumed, account_id
	`, address, code, now).Scan(
		&rec.Address, &rec.Code, &rec.CreatedAt, &rec.ExpiresAt, &rec.Consumed, &rec.AccountID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VerificationCode{}, ErrNotFound
		}
		return models.VerificationCode{}, dErrors.Wrap(err, dErrors.CodeInternal, "consume verification code")
	}
	return rec, nil
}

func (s *PostgresStore) FindUnconsumed(ctx context.Context, address, code string) (models.VerificationCode, error) {
	var rec models.VerificationCode
	err := s.pool.QueryRow(ctx, `
		SELECT address, code, created_at, expires_at, consumed, account_id
		FROM verification_codes
		WHERE address = $1 AND code = $2 AND NOT consumed
		ORDER BY created_at DESC
		LIMIT 1
	`, address, code).Scan(
		&rec.Address, &rec.Code, &rec.CreatedAt, &rec.ExpiresAt, &rec.Consumed, &rec.AccountID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VerificationCode{}, ErrNotFound
		}
		return models.VerificationCode{}, dErrors.Wrap(err, dErrors.CodeInternal, "find verification code")
	}
	return rec, nil
}

func (s *PostgresStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM verification_codes WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "sweep expired codes")
	}
	return int(tag.RowsAffected()), nil
}
