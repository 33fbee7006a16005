package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusdocs/proof-archive/internal/config"
	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/repositories/postgres"
	"github.com/campusdocs/proof-archive/internal/services"
	"github.com/campusdocs/proof-archive/internal/validator"
	"github.com/campusdocs/proof-archive/pkg"
)

func NewAdminCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands (admin role)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show archive counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session()
			if err != nil {
				return err
			}
			stats, err := opts.client().Stats(cmd.Context(), s)
			if err != nil {
				return err
			}
			return newFormatter(opts, cmd.OutOrStdout()).Value(stats, func(w io.Writer) error {
				return Table(w, []string{"USERS", "PROOFS", "EVENTS", "PENDING", "APPROVED", "REJECTED"}, [][]string{{
					strconv.FormatInt(stats.TotalUsers, 10),
					strconv.FormatInt(stats.TotalProofs, 10),
					strconv.FormatInt(stats.TotalEvents, 10),
					strconv.FormatInt(stats.PendingProofs, 10),
					strconv.FormatInt(stats.ApprovedProofs, 10),
					strconv.FormatInt(stats.RejectedProofs, 10),
				}})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "users",
		Short: "List accounts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session()
			if err != nil {
				return err
			}
			users, err := opts.client().Users(cmd.Context(), s)
			if err != nil {
				return err
			}
			return newFormatter(opts, cmd.OutOrStdout()).Value(users, func(w io.Writer) error {
				rows := make([][]string, 0, len(users))
				for _, u := range users {
					rows = append(rows, []string{
						strconv.FormatUint(uint64(u.ID), 10),
						u.Name,
						u.Email,
						string(u.Role),
						u.CreatedAt.Local().Format(time.DateOnly),
					})
				}
				return Table(w, []string{"ID", "NAME", "EMAIL", "ROLE", "CREATED"}, rows)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-role <user-id> <admin|staff|student>",
		Short: "Change the role of an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := opts.session()
			if err != nil {
				return err
			}
			resp, err := opts.client().UpdateRole(cmd.Context(), s, id, models.UserRole(args[1]))
			if err != nil {
				return err
			}
			return newFormatter(opts, cmd.OutOrStdout()).Value(resp, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: user %d is now %s\n", resp.Message, resp.UserID, resp.NewRole)
				return err
			})
		},
	})

	return cmd
}

type CreateUserOptions struct {
	*RootOptions
	Request services.CreateUserRequest
	role    string
}

// NewUserCommand provisions accounts directly in the database. There is no
// registration endpoint, so this is how the first admin is created.
func NewUserCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Account provisioning (direct database access)",
	}

	opts := &CreateUserOptions{RootOptions: rootOpts}
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account using the server's database settings",
		Long: `Create an account by writing to the database named by DB_DRIVER and DATABASE_URL.
The password is hashed with bcrypt before it is stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Request.Role = models.UserRole(opts.role)
			return runCreateUser(cmd, opts)
		},
	}
	create.Flags().StringVar(&opts.Request.Name, "name", "", "display name")
	create.Flags().StringVar(&opts.Request.Email, "email", "", "login email (students: USN-based address)")
	create.Flags().StringVar(&opts.Request.Password, "password", envOr("ARCHIVE_NEW_PASSWORD", ""), "initial password (min 8 characters)")
	create.Flags().StringVar(&opts.role, "role", string(models.RoleStudent), "admin, staff or student")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("email")

	cmd.AddCommand(create)
	return cmd
}

func runCreateUser(cmd *cobra.Command, opts *CreateUserOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return err
	}
	repo := postgres.NewSQLRepository(postgres.RepositoryConfig{DB: db})
	defer repo.Close()

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	authService := services.NewAuthService(repo, db, logger, validator.New(), nil)

	user, err := authService.CreateUser(cmd.Context(), &opts.Request)
	if err != nil {
		return err
	}
	return newFormatter(opts.RootOptions, cmd.OutOrStdout()).Value(user.Public(), func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Created %s account %d for %s\n", user.Role, user.ID, user.Email)
		return err
	})
}
