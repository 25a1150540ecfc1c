package core

import (
	"context"
	"errors"
	"log/slog"
)

// BootstrapAdmin makes sure the root account exists and is usable.
// When absent it is created with an unset credential; when present its lock,
// policy flag and failed-attempt counter are reset. Safe to run on every start.
func BootstrapAdmin(ctx context.Context, repo AccountRepository, cfg Config) error {
	if !cfg.BootstrapAdminEnabled {
		return nil
	}

	root, err := repo.FindByUsername(ctx, RootUsername)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return storageErr("find root account", err)
	}

	if root == nil {
		created, err := repo.Insert(ctx, RootUsername, "", RoleAdmin)
		if err != nil {
			return storageErr("create root account", err)
		}
		slog.InfoContext(ctx, "root account created with empty password", "account_id", created.ID, "username", created.Username)
		return nil
	}

	upd := AccountUpdate{
		Locked:         boolPtr(false),
		PolicyEnforced: boolPtr(false),
		FailedAttempts: intPtr(0),
	}
	if err := repo.Update(ctx, root.ID, upd); err != nil {
		return storageErr("reconcile root account", err)
	}
	if root.Locked || root.PolicyEnforced || root.FailedAttempts != 0 {
		slog.WarnContext(ctx, "root account reconciled", "account_id", root.ID, "was_locked", root.Locked, "was_policy_enforced", root.PolicyEnforced, "failed_attempts", root.FailedAttempts)
	}
	return nil
}
