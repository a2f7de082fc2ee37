package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/noah-isme/campus-records/internal/models"
)

func newImportCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk-create records from a spreadsheet (.xlsx or .csv)",
	}
	cmd.AddCommand(
		newImportKindCommand(r, "students", "Import students; columns: department, class, name, gender, enrollment year, id card, contact",
			func(ctx context.Context, app *App, session *models.Session, path string) (*models.ImportResult, error) {
				return app.Imports.ImportStudentsFile(ctx, session, path)
			}),
		newImportKindCommand(r, "teachers", "Import teachers; columns: department, name, gender, title, id card, contact",
			func(ctx context.Context, app *App, session *models.Session, path string) (*models.ImportResult, error) {
				return app.Imports.ImportTeachersFile(ctx, session, path)
			}),
	)
	return cmd
}

type importFunc func(ctx context.Context, app *App, session *models.Session, path string) (*models.ImportResult, error)

func newImportKindCommand(r *runner, use, short string, run importFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " FILE",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				result, err := run(ctx, app, session, args[0])
				if err != nil {
					return err
				}
				return out.Success(result, func(w io.Writer) {
					fmt.Fprintln(w, result.Summary(app.Config.Imports.MaxReportedErrors))
				})
			})
		},
	}
}
