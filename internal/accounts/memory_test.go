package accounts

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrollgate/internal/registration/models"
)

func testAccount(address string) Account {
	return Account{
		Address:    address,
		SecretHash: "$2a$10$hash",
		Role:       models.RolePatient,
		Profile:    models.Profile{FirstName: "Jane", LastName: "Doe"},
	}
}

func TestCreateAndFind(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, testAccount("a@x.com"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	found, err := store.FindByAddress(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	exists, err := store.Exists(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateDuplicate(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.Create(ctx, testAccount("a@x.com"))
	require.NoError(t, err)

	_, err = store.Create(ctx, testAccount("a@x.com"))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestFindMissing(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.FindByAddress(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := store.Exists(context.Background(), "nobody@x.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

// TestConcurrentCreateSameAddress checks the uniqueness backstop: many
// concurrent creates for one address yield exactly one account.
func TestConcurrentCreateSameAddress(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	const goroutines = 16
	var created atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := store.Create(ctx, testAccount("a@x.com")); err == nil {
				created.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
}

func TestSummary(t *testing.T) {
	account, err := NewInMemoryStore().Create(context.Background(), testAccount("a@x.com"))
	require.NoError(t, err)

	summary := account.Summary()
	assert.Equal(t, account.ID, summary.ID)
	assert.Equal(t, "a@x.com", summary.Address)
	assert.Equal(t, models.RolePatient, summary.Role)
	assert.Equal(t, "Jane", summary.FirstName)
}
