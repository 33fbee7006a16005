package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/campusdocs/proof-archive/pkg/client"
)

// RootOptions holds global flags for all commands
type RootOptions struct {
	Server      string
	SessionPath string
	Format      string // "json" | "text"
}

// ValidFormats defines the allowed output formats
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of archivectl
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "archivectl",
		Short: "Command line client for the proof archive",
		Long:  "Upload, review and search proof-of-participation documents from the terminal.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", envOr("ARCHIVE_SERVER", "http://localhost:5000"), "API base URL")
	cmd.PersistentFlags().StringVar(&opts.SessionPath, "session", defaultSessionPath(), "file holding the login session")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewUploadCommand(opts))
	cmd.AddCommand(NewProofsCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewReviewCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewPreviewCommand(opts))
	cmd.AddCommand(NewAdminCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))

	return cmd
}

func (o *RootOptions) client() *client.Client {
	return client.New(o.Server)
}

// session loads the saved session, failing when there is none
func (o *RootOptions) session() (*client.Session, error) {
	s, err := LoadSession(o.SessionPath)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("not logged in: run archivectl login")
	}
	return s, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultSessionPath() string {
	if p := os.Getenv("ARCHIVE_SESSION"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".archivectl-session.json"
	}
	return filepath.Join(dir, "archivectl", "session.json")
}
