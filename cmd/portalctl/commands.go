package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"infosec-portal/core"
)

type repoOpener func(ctx context.Context, cfg core.Config) (core.AccountRepository, func(), error)

func execute(open repoOpener, args []string) int {
	root, closeRepo := newRootCmd(open)
	defer closeRepo()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// newRootCmd builds the command tree. The returned func releases the repository
// opened by the command; cobra skips post-run hooks on failure, so callers defer it.
func newRootCmd(open repoOpener) (*cobra.Command, func()) {
	var (
		cfg     core.Config
		repo    core.AccountRepository
		cleanup = func() {}
	)

	rootCmd := &cobra.Command{
		Use:           "portalctl",
		Short:         "Portal account administration",
		Long:          "Operator tool for the portal account store: migrations, root bootstrap and account flags.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = core.Load()
			if err != nil {
				return err
			}
			if cmd.Name() == "migrate" {
				cfg.MigrateOnStart = true
			}
			r, closeRepo, err := open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			repo, cleanup = r, closeRepo
			return nil
		},
	}

	admin := func() *core.AdminService { return core.NewAdminService(repo) }

	// resolve maps a username argument to an account id.
	resolve := func(ctx context.Context, username string) (int64, error) {
		a, err := repo.FindByUsername(ctx, username)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", username, err)
		}
		return a.ID, nil
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "bootstrap",
		Short: "Create or reconcile the root account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.BootstrapAdminEnabled = true
			if err := core.BootstrapAdmin(cmd.Context(), repo, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s reconciled\n", core.RootUsername)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List accounts ordered by username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := admin().ListAccounts(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSERNAME\tROLE\tLOCKED\tPOLICY\tFAILED\tPASSWORD")
			for _, a := range items {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%t\t%d\t%t\n", a.ID, a.Username, a.Role, a.Locked, a.PolicyEnforced, a.FailedAttempts, a.HasCredential())
			}
			return tw.Flush()
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "create-user <username>",
		Short: "Create a user account with an empty password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := admin().CreateAccount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (id %d)\n", a.Username, a.ID)
			return nil
		},
	})

	for _, spec := range []struct {
		use    string
		short  string
		locked bool
	}{
		{"lock <username>", "Lock an account", true},
		{"unlock <username>", "Unlock an account and clear its failed attempts", false},
	} {
		locked := spec.locked
		rootCmd.AddCommand(&cobra.Command{
			Use:   spec.use,
			Short: spec.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := resolve(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := admin().SetLocked(cmd.Context(), id, locked); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s locked=%t\n", args[0], locked)
				return nil
			},
		})
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:       "policy <username> on|off",
		Short:     "Enable or disable password policy for an account",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var enforced bool
			switch args[1] {
			case "on":
				enforced = true
			case "off":
			default:
				return fmt.Errorf("expected on or off, got %q", args[1])
			}
			id, err := resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := admin().SetPolicyEnforced(cmd.Context(), id, enforced); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s policy=%t\n", args[0], enforced)
			return nil
		},
	})

	return rootCmd, func() { cleanup() }
}
