package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/campus-records/internal/models"
	"github.com/noah-isme/campus-records/internal/service"
)

var exportKinds = []service.ExportKind{
	service.ExportStudents,
	service.ExportTeachers,
	service.ExportCourses,
	service.ExportGrades,
	service.ExportRoster,
	service.ExportLogs,
}

func newExportCommand(r *runner) *cobra.Command {
	var className, courseFilter, studentFilter string
	kinds := make([]string, len(exportKinds))
	for i, k := range exportKinds {
		kinds[i] = string(k)
	}

	cmd := &cobra.Command{
		Use:       "export KIND FILE",
		Short:     "Write a listing to an .xlsx, .csv or .pdf file",
		Long:      "KIND is one of: " + strings.Join(kinds, ", ") + ". The FILE extension selects the format.\n" +
			"PDF text uses the Go fonts, which have no Han glyphs; set EXPORT_PDF_FONT to a CJK TrueType font for Chinese names.",
		Args:      cobra.ExactArgs(2),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			courseID, err := optionalID(courseFilter, "course id")
			if err != nil {
				return err
			}
			studentID, err := optionalID(studentFilter, "student id")
			if err != nil {
				return err
			}
			req := service.ExportRequest{
				Kind:      service.ExportKind(args[0]),
				Path:      args[1],
				ClassName: className,
				CourseID:  courseID,
				StudentID: studentID,
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				n, err := app.Exports.Export(ctx, session, req)
				if err != nil {
					return err
				}
				result := map[string]interface{}{"kind": req.Kind, "path": req.Path, "rows": n}
				return out.Success(result, func(w io.Writer) {
					fmt.Fprintf(w, "wrote %d rows to %s\n", n, req.Path)
				})
			})
		},
	}
	cmd.Flags().StringVar(&className, "class", "", "class filter (students, grades)")
	cmd.Flags().StringVar(&courseFilter, "course", "", "course id (grades, roster)")
	cmd.Flags().StringVar(&studentFilter, "student", "", "student id (grades)")
	return cmd
}
