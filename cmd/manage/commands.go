package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/auth"
	"github.com/sakif/recipe-api/internal/config"
	sqliteRepo "github.com/sakif/recipe-api/internal/repository/sqlite"
	"github.com/sakif/recipe-api/internal/service"
	"github.com/sakif/recipe-api/internal/validation"
)

// readPassword is swapped out in tests.
var readPassword = term.ReadPassword

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "manage",
		Short:         "Recipe API administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("db", "", "database file (overrides DB_PATH)")

	root.AddCommand(newMigrateCmd(), newCreateSuperuserCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Opening the database applies anything pending.
			db, _, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			version, err := db.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d\n", version)
			return nil
		},
	}
}

func newCreateSuperuserCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "createsuperuser",
		Short: "Create an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			if email == "" {
				var err error
				if email, err = promptLine(in, out, "Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				var err error
				if password, err = promptPassword(out); err != nil {
					return err
				}
			}

			db, cfg, err := openDB(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
			if err != nil {
				return err
			}
			users := service.NewUserService(db.Users(), tokens, auth.NewPasswordService(), validation.New(), logger)

			user, err := users.CreateSuperuser(cmd.Context(), email, password)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(out, "Superuser created: %s\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

// openDB loads configuration and opens the database it names.
func openDB(cmd *cobra.Command) (*sqliteRepo.DB, *config.Config, error) {
	cfg, err := config.Load(config.Options{})
	if err != nil {
		return nil, nil, err
	}
	if path, _ := cmd.Flags().GetString("db"); path != "" {
		cfg.DBPath = path
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cmd.Context(), cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}

func promptLine(in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())

	fmt.Fprint(out, "Password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Fprint(out, "Password (again): ")
	second, err := readPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("passwords didn't match")
	}
	return string(first), nil
}

// describe appends per-field validation messages to err.
func describe(err error) error {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || len(appErr.Fields) == 0 {
		return err
	}

	names := make([]string, 0, len(appErr.Fields))
	for name := range appErr.Fields {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "\n  %s: %s", name, appErr.Fields[name])
	}
	return fmt.Errorf("%w%s", err, b.String())
}
