// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package main

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ifa-app/ifa/internal/account"
	"github.com/ifa-app/ifa/internal/logging"
)

// NewAccountCmd creates the account subcommand.
func NewAccountCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts directly against the configured store",
		Long: `Operator commands for registering, inspecting, deleting accounts and
resetting passwords without going through the HTTP API.`,
	}

	cmd.AddCommand(newAccountRegisterCmd(deps))
	cmd.AddCommand(newAccountShowCmd(deps))
	cmd.AddCommand(newAccountDeleteCmd(deps))
	cmd.AddCommand(newAccountPasswdCmd(deps))

	return cmd
}

// withAccounts loads the configuration, opens the store and runs fn with an
// account service on top of it.
func withAccounts(cmd *cobra.Command, deps *Deps, fn func(ctx context.Context, svc *account.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}

	logger := logging.Setup(serviceName, version, "text", cfg.LogLevelValue(), cmd.ErrOrStderr())

	backend, err := deps.BackendFactory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.close()

	svc, err := newAccountService(cfg, backend, logger)
	if err != nil {
		return err
	}
	return fn(ctx, svc)
}

func newAccountRegisterCmd(deps *Deps) *cobra.Command {
	var firstName, lastName string
	var age int

	cmd := &cobra.Command{
		Use:   "register USERNAME",
		Short: "Register a new account",
		Long:  `Register USERNAME. The password is prompted for twice.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			var err error
			if firstName == "" {
				if firstName, err = p.line("First name: "); err != nil {
					return err
				}
			}
			if lastName == "" {
				if lastName, err = p.line("Last name: "); err != nil {
					return err
				}
			}
			if age == 0 {
				raw, err := p.line("Age: ")
				if err != nil {
					return err
				}
				if age, err = strconv.Atoi(strings.TrimSpace(raw)); err != nil {
					return oops.Code("ACCOUNT_INVALID_FIELD").With("field", account.FieldAge).Errorf("age must be a number")
				}
			}
			password, err := p.newPassword("Password: ")
			if err != nil {
				return err
			}

			return withAccounts(cmd, deps, func(ctx context.Context, svc *account.Service) error {
				acct, err := svc.Register(ctx, account.Registration{
					Username:  args[0],
					Password:  password,
					FirstName: firstName,
					LastName:  lastName,
					Age:       age,
				})
				if err != nil {
					return err
				}
				cmd.Printf("Registered %s (%s)\n", acct.Username, acct.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&firstName, "first-name", "", "first name (prompted when empty)")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name (prompted when empty)")
	cmd.Flags().IntVar(&age, "age", 0, "age in years (prompted when zero)")
	return cmd
}

func newAccountShowCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "show USERNAME",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAccounts(cmd, deps, func(ctx context.Context, svc *account.Service) error {
				acct := svc.GetByUsername(ctx, args[0])
				if acct == nil {
					return account.NotFoundError(args[0])
				}
				return printAccount(cmd.OutOrStdout(), acct)
			})
		},
	}
}

// accountView is the printable form of an account. It never includes the
// password hash.
type accountView struct {
	ID        string    `yaml:"id"`
	Username  string    `yaml:"username"`
	FirstName string    `yaml:"first_name"`
	LastName  string    `yaml:"last_name"`
	Age       int       `yaml:"age"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

func printAccount(w io.Writer, a *account.Account) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(accountView{
		ID:        a.ID.String(),
		Username:  a.Username,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Age:       a.Age,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}); err != nil {
		return oops.Code("OUTPUT_FAILED").Wrap(err)
	}
	return enc.Close()
}

func newAccountDeleteCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "delete USERNAME",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAccounts(cmd, deps, func(ctx context.Context, svc *account.Service) error {
				deleted, err := svc.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				if !deleted {
					return account.NotFoundError(args[0])
				}
				cmd.Printf("Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newAccountPasswdCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd USERNAME",
		Short: "Change an account password",
		Long:  `Change the password of USERNAME. The current password is required.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			current, err := p.password("Current password: ")
			if err != nil {
				return err
			}
			next, err := p.newPassword("New password: ")
			if err != nil {
				return err
			}

			return withAccounts(cmd, deps, func(ctx context.Context, svc *account.Service) error {
				acct := svc.GetByUsername(ctx, args[0])
				if acct == nil {
					return account.NotFoundError(args[0])
				}
				if _, err := svc.ChangePassword(ctx, acct, next, current); err != nil {
					return err
				}
				cmd.Printf("Password changed for %s\n", acct.Username)
				return nil
			})
		},
	}
}
