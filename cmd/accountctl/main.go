package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/app"
	"github.com/ovaphlow/pitchfork/service-account-go/pkg/utilities"
)

func main() {
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(lg.Sugar()).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(logger *zap.SugaredLogger) *cobra.Command {
	root := &cobra.Command{
		Use:          "accountctl",
		Short:        "Operator tooling for the account service",
		SilenceUsage: true,
	}
	root.AddCommand(migrateCmd(logger), lockCmd(logger, true), lockCmd(logger, false), deleteCmd(logger), cleanupCmd(logger))
	return root
}

// withApp builds the wired services for one command run.
func withApp(cmd *cobra.Command, logger *zap.SugaredLogger, fn func(a *app.App) error) error {
	a, err := app.New(cmd.Context(), logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func migrateCmd(logger *zap.SugaredLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the account tables if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, logger, func(a *app.App) error {
				if err := a.Migrate(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "tables ready")
				return nil
			})
		},
	}
}

func lockCmd(logger *zap.SugaredLogger, lock bool) *cobra.Command {
	use, short := "unlock <account-id>", "Return a locked account to ACTIVE"
	if lock {
		use, short = "lock <account-id>", "Lock an account and revoke its refresh token"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, logger, func(a *app.App) error {
				op := a.Auth.UnlockAccount
				if lock {
					op = a.Auth.LockAccount
				}
				acct, err := op(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", acct.ID, acct.Status)
				return nil
			})
		},
	}
}

func deleteCmd(logger *zap.SugaredLogger) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <account-id>",
		Short: "Delete an account and its refresh token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, logger, func(a *app.App) error {
				if err := a.Auth.DeleteAccount(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d deleted\n", id)
				return nil
			})
		},
	}
}

func parseAccountID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid account id %q", arg)
	}
	return id, nil
}

func cleanupCmd(logger *zap.SugaredLogger) *cobra.Command {
	var pending, disabled, expired bool
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Run the stale-account sweeps once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all := !pending && !disabled && !expired
			return withApp(cmd, logger, func(a *app.App) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()
				if all || pending {
					res, err := a.Cleanup.CleanupPending(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "pending: %d accounts, %d tokens\n", res.Accounts, res.Tokens)
				}
				if all || disabled {
					res, err := a.Cleanup.CleanupDisabled(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "disabled: %d accounts, %d tokens\n", res.Accounts, res.Tokens)
				}
				if all || expired {
					n, err := a.Cleanup.CleanupExpiredTokens(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "expired tokens: %d\n", n)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "only sweep stale pending accounts")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "only sweep stale disabled accounts")
	cmd.Flags().BoolVar(&expired, "expired-tokens", false, "only sweep expired refresh tokens")
	return cmd
}
