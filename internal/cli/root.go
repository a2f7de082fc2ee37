package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/noah-isme/campus-records/internal/models"
	appErrors "github.com/noah-isme/campus-records/pkg/errors"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format       string // "json" | "text"
	Username     string
	Role         string
	ChallengeDir string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

type runner struct {
	opts    *RootOptions
	factory AppFactory
}

type sessionFunc func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error

// NewRootCommand creates the campus-records command tree. factory opens the
// store for commands that need it.
func NewRootCommand(factory AppFactory) *cobra.Command {
	opts := &RootOptions{}
	r := &runner{opts: opts, factory: factory}

	cmd := &cobra.Command{
		Use:           "campus-records",
		Short:         "Student, teacher, course and grade records",
		Long:          "Manage a school's student, teacher, course and grade records in a local store. Every command logs in first.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return WrapExitError(ExitFailure, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Username, "user", "u", "", "username to log in as")
	cmd.PersistentFlags().StringVarP(&opts.Role, "role", "r", string(models.RoleAdmin), "role to log in as (admin|teacher|student)")
	cmd.PersistentFlags().StringVar(&opts.ChallengeDir, "challenge-dir", "", "directory for the verification image (default: system temp dir)")

	cmd.AddCommand(newInitCommand(r))
	cmd.AddCommand(newLoginCommand(r))
	cmd.AddCommand(newStudentCommand(r))
	cmd.AddCommand(newTeacherCommand(r))
	cmd.AddCommand(newCourseCommand(r))
	cmd.AddCommand(newGradeCommand(r))
	cmd.AddCommand(newAccountCommand(r))
	cmd.AddCommand(newImportCommand(r))
	cmd.AddCommand(newExportCommand(r))
	cmd.AddCommand(newLogsCommand(r))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (r *runner) output(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: r.opts.Format, Writer: cmd.OutOrStdout()}
}

func (r *runner) open(ctx context.Context) (*App, error) {
	app, err := r.factory(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open campus records", err)
	}
	return app, nil
}

// withSession opens the store, logs in and runs fn. Prompts go to stderr so
// stdout carries only the command's result.
func (r *runner) withSession(cmd *cobra.Command, fn sessionFunc) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer app.Close() //nolint:errcheck

	session, err := r.login(ctx, app, newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	return fn(ctx, app, session, r.output(cmd))
}

func newInitCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or upgrade the store and ensure an administrator exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			app, err := r.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close() //nolint:errcheck
			result := map[string]string{"database": app.Config.Database.Path, "status": "ready"}
			return r.output(cmd).Success(result, func(w io.Writer) {
				fmt.Fprintf(w, "store ready at %s\n", app.Config.Database.Path)
			})
		},
	}
}

func newLoginCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check credentials and show the resulting session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				return out.Success(session, func(w io.Writer) {
					fmt.Fprintf(w, "logged in as %s (%s)\n", session.Username, session.Role)
				})
			})
		},
	}
}

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be a positive integer, got %q", what, raw))
	}
	return id, nil
}

func optionalID(raw, what string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(raw, what)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
