//go:build integration

package code_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"enrollgate/internal/registration/models"
	"enrollgate/internal/registration/store/code"
	"enrollgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *code.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), code.Schema)
	s.store = code.NewPostgresStore(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "verification_codes"))
}

func (s *PostgresStoreSuite) row(address, codeValue string, ttl time.Duration) models.VerificationCode {
	now := time.Now().UTC()
	return models.VerificationCode{
		Address:   address,
		Code:      codeValue,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (s *PostgresStoreSuite) TestConsumeRoundTrip() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, s.row("a@x.com", "123456", time.Minute)))

	rec, err := s.store.Consume(ctx, "a@x.com", "123456", time.Now())
	s.Require().NoError(err)
	s.True(rec.Consumed)

	_, err = s.store.Consume(ctx, "a@x.com", "123456", time.Now())
	s.ErrorIs(err, code.ErrNotFound)
}

func (s *PostgresStoreSuite) TestConsumeExpired() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, s.row("a@x.com", "123456", -time.Second)))

	_, err := s.store.Consume(ctx, "a@x.com", "123456", time.Now())
	s.ErrorIs(err, code.ErrNotFound)

	rec, err := s.store.FindUnconsumed(ctx, "a@x.com", "123456")
	s.Require().NoError(err)
	s.True(rec.ExpiredAt(time.Now()))
}

func (s *PostgresStoreSuite) TestDeleteUnconsumed() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, s.row("a@x.com", "111111", time.Minute)))
	s.Require().NoError(s.store.Insert(ctx, s.row("a@x.com", "222222", time.Minute)))

	s.Require().NoError(s.store.DeleteUnconsumed(ctx, "a@x.com"))

	_, err := s.store.Consume(ctx, "a@x.com", "111111", time.Now())
	s.ErrorIs(err, code.ErrNotFound)
	_, err = s.store.Consume(ctx, "a@x.com", "222222", time.Now())
	s.ErrorIs(err, code.ErrNotFound)
}

func (s *PostgresStoreSuite) TestSweepExpired() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, s.row("a@x.com", "111111", -time.Minute)))
	s.Require().NoError(s.store.Insert(ctx, s.row("b@x.com", "222222", time.Hour)))

	removed, err := s.store.SweepExpired(ctx, time.Now())
	s.Require().NoError(err)
	s.Equal(1, removed)
}

// TestConcurrentConsumeSingleWinner verifies the conditional UPDATE's
// exactly-one-winner guarantee against a real database.
func (s *PostgresStoreSuite) TestConcurrentConsumeSingleWinner() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, s.row("a@x.com", "123456", time.Minute)))

	const goroutines = 20
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := s.store.Consume(ctx, "a@x.com", "123456", time.Now()); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(int32(1), wins.Load())
}
