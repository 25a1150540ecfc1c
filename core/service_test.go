package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginUserNotFound(t *testing.T) {
	svc := newTestAuthService(NewMemoryAccountRepository())
	_, err := svc.Login(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLoginLockedBeforeVerification(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	a := seedAccount(t, repo, "bob", "secret", RoleUser, AccountUpdate{Locked: boolPtr(true)})
	svc := newTestAuthService(repo)

	_, err := svc.Login(ctx, "bob", "wrong")
	assert.ErrorIs(t, err, ErrAccountLocked)
	_, err = svc.Login(ctx, "bob", "secret")
	assert.ErrorIs(t, err, ErrAccountLocked)

	stored, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FailedAttempts, "locked accounts never reach the lockout tracker")
}

func TestLoginThreeStrikes(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	seedAccount(t, repo, "bob", "secret", RoleUser, AccountUpdate{})
	svc := newTestAuthService(repo)

	_, err := svc.Login(ctx, "bob", "x")
	assert.ErrorIs(t, err, ErrBadPassword)
	_, err = svc.Login(ctx, "bob", "y")
	assert.ErrorIs(t, err, ErrBadPassword)
	_, err = svc.Login(ctx, "bob", "z")
	assert.ErrorIs(t, err, ErrTerminated)

	// termination is permanent, even with the right password
	_, err = svc.Login(ctx, "bob", "secret")
	assert.ErrorIs(t, err, ErrTerminated)

	stored, err := repo.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.FailedAttempts)
	assert.False(t, stored.Locked)
}

func TestLoginSuccessResetsCounter(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	seedAccount(t, repo, "bob", "secret", RoleUser, AccountUpdate{})
	svc := newTestAuthService(repo)

	for i := 0; i < 2; i++ {
		_, err := svc.Login(ctx, "bob", "bad")
		require.ErrorIs(t, err, ErrBadPassword)
	}
	res, err := svc.Login(ctx, "bob", "secret")
	require.NoError(t, err)
	assert.Equal(t, DestUserHome, res.Next)

	stored, err := repo.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.FailedAttempts)

	// the counter starts over: two more failures are still only rejections
	for i := 0; i < 2; i++ {
		_, err := svc.Login(ctx, "bob", "bad")
		assert.ErrorIs(t, err, ErrBadPassword)
	}
}

func TestLoginForcedPasswordChange(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	seedAccount(t, repo, "alice", "", RoleUser, AccountUpdate{PolicyEnforced: boolPtr(true)})
	seedAccount(t, repo, RootUsername, "", RoleAdmin, AccountUpdate{})
	svc := newTestAuthService(repo)

	res, err := svc.Login(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, DestUserChangePassword, res.Next)
	assert.True(t, res.User.MustChangePassword)
	assert.True(t, res.User.PolicyEnforced)
	assert.Equal(t, "alice", res.User.Username)
	assert.Equal(t, RoleUser, res.User.Role)

	res, err = svc.Login(ctx, RootUsername, "")
	require.NoError(t, err)
	assert.Equal(t, DestAdminChangePassword, res.Next)

	_, err = svc.Login(ctx, "alice", "not-empty")
	assert.ErrorIs(t, err, ErrBadPassword)
}

func TestLoginAdminHome(t *testing.T) {
	repo := NewMemoryAccountRepository()
	seedAccount(t, repo, RootUsername, "rootpw", RoleAdmin, AccountUpdate{})
	res, err := newTestAuthService(repo).Login(context.Background(), RootUsername, "rootpw")
	require.NoError(t, err)
	assert.Equal(t, DestAdminHome, res.Next)
	assert.False(t, res.User.MustChangePassword)
}

func TestLoginStorageUnavailable(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryAccountRepository()
	seedAccount(t, mem, "bob", "secret", RoleUser, AccountUpdate{FailedAttempts: intPtr(1)})

	_, err := newTestAuthService(&faultyRepo{AccountRepository: mem, failFind: true}).Login(ctx, "bob", "secret")
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	// counter reset fails: no session, counter untouched
	res, err := newTestAuthService(&faultyRepo{AccountRepository: mem, failUpdate: true}).Login(ctx, "bob", "secret")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Zero(t, res.User.ID)

	_, err = newTestAuthService(&faultyRepo{AccountRepository: mem, failUpdate: true}).Login(ctx, "bob", "bad")
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	stored, err := mem.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.FailedAttempts)
}

func TestChangePasswordPolicyScenario(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	alice := seedAccount(t, repo, "alice", "", RoleUser, AccountUpdate{PolicyEnforced: boolPtr(true)})
	svc := newTestAuthService(repo)

	_, err := svc.ChangePassword(ctx, alice.ID, "", "abc", "abc")
	assert.ErrorIs(t, err, ErrPolicyViolation)

	res, err := svc.ChangePassword(ctx, alice.ID, "", "abc1абв", "abc1абв")
	require.NoError(t, err)
	assert.False(t, res.User.MustChangePassword)
	assert.Equal(t, DestUserHome, res.Next)

	stored, err := repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasCredential())
	assert.True(t, testHasher().Verify("abc1абв", stored.PasswordHash))

	login, err := svc.Login(ctx, "alice", "abc1абв")
	require.NoError(t, err)
	assert.Equal(t, DestUserHome, login.Next)
}

func TestChangePasswordOldPasswordChecks(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	unset := seedAccount(t, repo, "fresh", "", RoleUser, AccountUpdate{})
	set := seedAccount(t, repo, "bob", "secret", RoleUser, AccountUpdate{FailedAttempts: intPtr(2)})
	svc := newTestAuthService(repo)

	_, err := svc.ChangePassword(ctx, unset.ID, "something", "n", "n")
	assert.ErrorIs(t, err, ErrOldPasswordMustBeEmpty)

	_, err = svc.ChangePassword(ctx, set.ID, "wrong", "n", "n")
	assert.ErrorIs(t, err, ErrWrongOldPassword)
	_, err = svc.ChangePassword(ctx, set.ID, "", "n", "n")
	assert.ErrorIs(t, err, ErrWrongOldPassword)

	stored, err := repo.FindByID(ctx, set.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.FailedAttempts, "wrong old password must not touch the lockout counter")
	assert.True(t, testHasher().Verify("secret", stored.PasswordHash))
}

func TestChangePasswordMismatchBeforePolicy(t *testing.T) {
	repo := NewMemoryAccountRepository()
	a := seedAccount(t, repo, "bob", "secret", RoleUser, AccountUpdate{PolicyEnforced: boolPtr(true)})
	_, err := newTestAuthService(repo).ChangePassword(context.Background(), a.ID, "secret", "abc", "abd")
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestChangePasswordToEmptyRearmsForcedChange(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	a := seedAccount(t, repo, "bob", "secret", RoleUser, AccountUpdate{})
	svc := newTestAuthService(repo)

	res, err := svc.ChangePassword(ctx, a.ID, "secret", "", "")
	require.NoError(t, err)
	assert.True(t, res.User.MustChangePassword)
	assert.Equal(t, DestUserChangePassword, res.Next)

	// unset -> unset is a valid no-op
	_, err = svc.ChangePassword(ctx, a.ID, "", "", "")
	require.NoError(t, err)

	login, err := svc.Login(ctx, "bob", "")
	require.NoError(t, err)
	assert.Equal(t, DestUserChangePassword, login.Next)
}

func TestChangePasswordRootFollowsOwnPolicyFlag(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	root := seedAccount(t, repo, RootUsername, "", RoleAdmin, AccountUpdate{})
	svc := newTestAuthService(repo)

	_, err := svc.ChangePassword(ctx, root.ID, "", "simple", "simple")
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, root.ID, AccountUpdate{PolicyEnforced: boolPtr(true)}))
	_, err = svc.ChangePassword(ctx, root.ID, "simple", "simple2", "simple2")
	assert.ErrorIs(t, err, ErrPolicyViolation)
	_, err = svc.ChangePassword(ctx, root.ID, "simple", "Root1корень", "Root1корень")
	assert.NoError(t, err)
}

func TestChangePasswordStorageUnavailable(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryAccountRepository()
	a := seedAccount(t, mem, "bob", "secret", RoleUser, AccountUpdate{})

	_, err := newTestAuthService(&faultyRepo{AccountRepository: mem, failUpdate: true}).ChangePassword(ctx, a.ID, "secret", "next", "next")
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	stored, err := mem.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, testHasher().Verify("secret", stored.PasswordHash))
}

func TestLoginRejectsSuffixBeyondHashedLength(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAccountRepository()
	pw := strings.Repeat("п", MaxPasswordBytes/2)
	a := seedAccount(t, repo, "bob", pw, RoleUser, AccountUpdate{})
	svc := newTestAuthService(repo)

	_, err := svc.Login(ctx, "bob", pw+"WRONG-SUFFIX")
	assert.ErrorIs(t, err, ErrBadPassword)

	stored, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.FailedAttempts)

	res, err := svc.Login(ctx, "bob", pw)
	require.NoError(t, err)
	assert.Equal(t, DestUserHome, res.Next)
}
