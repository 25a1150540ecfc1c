package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var errBackendDown = errors.New("connection refused")

// faultyRepo wraps a repository and fails the selected operations.
type faultyRepo struct {
	AccountRepository
	failFind   bool
	failUpdate bool
	failInsert bool
	failList   bool
	updates    int
}

func (f *faultyRepo) FindByUsername(ctx context.Context, username string) (*Account, error) {
	if f.failFind {
		return nil, errBackendDown
	}
	return f.AccountRepository.FindByUsername(ctx, username)
}

func (f *faultyRepo) FindByID(ctx context.Context, id int64) (*Account, error) {
	if f.failFind {
		return nil, errBackendDown
	}
	return f.AccountRepository.FindByID(ctx, id)
}

func (f *faultyRepo) Insert(ctx context.Context, username, passwordHash string, role Role) (*Account, error) {
	if f.failInsert {
		return nil, errBackendDown
	}
	return f.AccountRepository.Insert(ctx, username, passwordHash, role)
}

func (f *faultyRepo) Update(ctx context.Context, id int64, upd AccountUpdate) error {
	if f.failUpdate {
		return errBackendDown
	}
	f.updates++
	return f.AccountRepository.Update(ctx, id, upd)
}

func (f *faultyRepo) ListOrderedByUsername(ctx context.Context) ([]Account, error) {
	if f.failList {
		return nil, errBackendDown
	}
	return f.AccountRepository.ListOrderedByUsername(ctx)
}

// seedAccount inserts username with password (empty = unset) and applies upd.
func seedAccount(t *testing.T, repo AccountRepository, username, password string, role Role, upd AccountUpdate) *Account {
	t.Helper()
	ctx := context.Background()
	hash, err := testHasher().Hash(password)
	require.NoError(t, err)
	a, err := repo.Insert(ctx, username, hash, role)
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, a.ID, upd))
	a, err = repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	return a
}

func newTestAuthService(repo AccountRepository) *RepositoryAuthService {
	return NewRepositoryAuthService(repo, testHasher(), NewLockoutTracker(repo, DefaultMaxFailedAttempts))
}
