package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

type LoginOptions struct {
	*RootOptions
	Email    string
	Password string
}

func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		Long: `Log in with email and password and save the session for later commands.

The password is read from --password, then ARCHIVE_PASSWORD, then the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "account email")
	cmd.Flags().StringVar(&opts.Password, "password", envOr("ARCHIVE_PASSWORD", ""), "account password")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runLogin(cmd *cobra.Command, opts *LoginOptions) error {
	password := opts.Password
	if password == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	s, err := opts.client().Login(cmd.Context(), opts.Email, password)
	if err != nil {
		return err
	}
	if err := SaveSession(opts.SessionPath, s); err != nil {
		return err
	}

	return newFormatter(opts.RootOptions, cmd.OutOrStdout()).Value(s.User, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Logged in as %s (%s)\n", s.User.Name, s.User.Role)
		return err
	})
}

func NewLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := LoadSession(opts.SessionPath)
			if err != nil {
				return err
			}
			if s != nil {
				if err := opts.client().Logout(cmd.Context(), s); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: server logout failed: %v\n", err)
				}
			}
			if err := ClearSession(opts.SessionPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func NewWhoamiCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account behind the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session()
			if err != nil {
				return err
			}
			me, err := opts.client().Me(cmd.Context(), s)
			if err != nil {
				return err
			}
			return newFormatter(opts, cmd.OutOrStdout()).Value(me, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", me.ID, me.Name, me.Email, me.Role)
				return err
			})
		},
	}
}
