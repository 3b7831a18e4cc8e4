package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/supplytrack/accounts/internal/core/domain"
	"github.com/supplytrack/accounts/internal/core/ports"
)

// openStore yields the account service and a cleanup func. Commands call it
// lazily so that --help works without a database.
type openStore func(ctx context.Context) (ports.AccountService, func(), error)

func newRootCmd(open openStore) *cobra.Command {
	root := &cobra.Command{
		Use:           "accountctl",
		Short:         "Account administration CLI",
		Long:          `Operator commands for the account store: bootstrap superusers and manage credentials.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCreateSuperuserCmd(open), newChangePasswordCmd(open), newCountCmd(open))
	return root
}

type passwordFlags struct {
	password      string
	passwordStdin bool
	noPassword    bool
}

func (f *passwordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.password, "password", "", "plaintext password")
	cmd.Flags().BoolVar(&f.passwordStdin, "password-stdin", false, "read the password from the first line of stdin")
	cmd.Flags().BoolVar(&f.noPassword, "no-password", false, "leave the account without a usable password")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin", "no-password")
}

// resolve returns nil when the account should have no usable password.
func (f *passwordFlags) resolve(in io.Reader) (*string, error) {
	switch {
	case f.noPassword:
		return nil, nil
	case f.passwordStdin:
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read password: %w", err)
		}
		pw := strings.TrimRight(line, "\r\n")
		if pw == "" {
			return nil, errors.New("empty password on stdin")
		}
		return &pw, nil
	case f.password != "":
		return &f.password, nil
	default:
		return nil, errors.New("one of --password, --password-stdin or --no-password is required")
	}
}

func newCreateSuperuserCmd(open openStore) *cobra.Command {
	var (
		address     string
		displayName string
		role        string
		pw          passwordFlags
	)

	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create an account with admin and staff privileges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			password, err := pw.resolve(cmd.InOrStdin())
			if err != nil {
				return err
			}

			svc, cleanup, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			account, err := svc.CreateSuperuser(cmd.Context(), ports.CreateSuperuserInput{
				Address:     address,
				Role:        r,
				DisplayName: displayName,
				Password:    password,
			})
			var pe *domain.PromotionError
			if errors.As(err, &pe) {
				return fmt.Errorf("account %s was stored without admin rights, promote it manually: %w", pe.Account.Address, pe.Err)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Superuser %s (%s) created.\n", account.Address, account.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "account address (login identifier)")
	cmd.Flags().StringVar(&displayName, "display-name", "", "unique display name")
	cmd.Flags().StringVar(&role, "role", domain.RoleAdmin.String(), "role name or code (coordinator|manufacturer|courier|admin|receiver or 1-5)")
	pw.register(cmd)
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("display-name")
	return cmd
}

func newChangePasswordCmd(open openStore) *cobra.Command {
	var (
		address string
		pw      passwordFlags
	)

	cmd := &cobra.Command{
		Use:   "changepassword",
		Short: "Set or clear the password of an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := pw.resolve(cmd.InOrStdin())
			if err != nil {
				return err
			}

			svc, cleanup, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.SetPassword(cmd.Context(), address, password); err != nil {
				return err
			}
			if password == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Password for %s cleared.\n", address)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Password for %s changed.\n", address)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "account address")
	pw.register(cmd)
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func newCountCmd(open openStore) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := svc.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d accounts\n", n)
			return nil
		},
	}
}
