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

func newGradeCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{Use: "grade", Short: "Record and report grades"}

	set := &cobra.Command{
		Use:   "set STUDENT_ID COURSE_ID [SCORE]",
		Short: "Set a score; without SCORE the grade is removed",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			studentID, err := parseID(args[0], "student id")
			if err != nil {
				return err
			}
			courseID, err := parseID(args[1], "course id")
			if err != nil {
				return err
			}
			raw := ""
			if len(args) == 3 {
				raw = args[2]
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				score, err := app.Grades.ParseScore(raw)
				if err != nil {
					return err
				}
				action, err := app.Grades.Assign(ctx, session, studentID, courseID, score)
				if err != nil {
					return err
				}
				result := map[string]interface{}{"student_id": studentID, "course_id": courseID, "action": action, "score": score}
				return out.Success(result, func(w io.Writer) {
					switch action {
					case "":
						fmt.Fprintln(w, "no grade to remove")
					case models.ActionDeleteGrade:
						fmt.Fprintln(w, "grade removed")
					default:
						fmt.Fprintf(w, "grade recorded: %g\n", *score)
					}
				})
			})
		},
	}

	var studentFilter, courseFilter, classFilter string
	list := &cobra.Command{
		Use:   "list",
		Short: "List grades by student, course or class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			studentID, err := optionalID(studentFilter, "student id")
			if err != nil {
				return err
			}
			courseID, err := optionalID(courseFilter, "course id")
			if err != nil {
				return err
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				rows, err := app.Grades.Query(ctx, session, models.GradeQuery{StudentID: studentID, CourseID: courseID, ClassName: classFilter})
				if err != nil {
					return err
				}
				return out.Success(rows, func(w io.Writer) {
					cells := make([][]string, 0, len(rows))
					for _, g := range rows {
						cells = append(cells, []string{strconv.FormatInt(g.StudentID, 10), g.StudentName, g.ClassName, g.CourseName, formatScore(g.Score)})
					}
					table(w, []string{"STUDENT", "NAME", "CLASS", "COURSE", "SCORE"}, cells)
				})
			})
		},
	}
	list.Flags().StringVar(&studentFilter, "student", "", "student id")
	list.Flags().StringVar(&courseFilter, "course", "", "course id")
	list.Flags().StringVar(&classFilter, "class", "", "class name")

	transcript := &cobra.Command{
		Use:   "transcript [STUDENT_ID]",
		Short: "Show a student's grades; students see their own",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				var studentID int64
				switch {
				case len(args) == 1:
					id, err := parseID(args[0], "student id")
					if err != nil {
						return err
					}
					studentID = id
				case session.StudentID != nil:
					studentID = *session.StudentID
				default:
					return appErrors.Clone(appErrors.ErrValidation, "a student id is required")
				}
				records, err := app.Grades.ForStudent(ctx, session, studentID)
				if err != nil {
					return err
				}
				return out.Success(records, func(w io.Writer) {
					rows := make([][]string, 0, len(records))
					for _, g := range records {
						rows = append(rows, []string{g.Semester, g.CourseName, formatScore(g.Credits), formatScore(g.Score)})
					}
					table(w, []string{"SEMESTER", "COURSE", "CREDITS", "SCORE"}, rows)
				})
			})
		},
	}

	roster := &cobra.Command{
		Use:   "roster COURSE_ID",
		Short: "List every student with their score in a course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			courseID, err := parseID(args[0], "course id")
			if err != nil {
				return err
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				entries, err := app.Grades.Roster(ctx, session, courseID)
				if err != nil {
					return err
				}
				return out.Success(entries, func(w io.Writer) {
					rows := make([][]string, 0, len(entries))
					for _, e := range entries {
						score := "-"
						if e.Score != nil {
							score = formatScore(*e.Score)
						}
						rows = append(rows, []string{strconv.FormatInt(e.StudentID, 10), e.StudentName, e.ClassName, score})
					}
					table(w, []string{"STUDENT", "NAME", "CLASS", "SCORE"}, rows)
				})
			})
		},
	}

	stats := &cobra.Command{
		Use:   "stats CLASS COURSE_ID",
		Short: "Summarise a class's scores in a course",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			courseID, err := parseID(args[1], "course id")
			if err != nil {
				return err
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				s, err := app.Grades.ClassCourseStats(ctx, session, args[0], courseID)
				if err != nil {
					return err
				}
				return out.Success(s, func(w io.Writer) {
					table(w, []string{"COUNT", "AVERAGE", "STDDEV", "MIN", "MAX", "PASS %"}, [][]string{{
						strconv.Itoa(s.Count), formatScore(s.Average), formatScore(s.StdDev), formatScore(s.Min), formatScore(s.Max), formatScore(s.PassRate),
					}})
				})
			})
		},
	}

	cmd.AddCommand(set, list, transcript, roster, stats)
	return cmd
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
