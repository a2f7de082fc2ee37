package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/noah-isme/campus-records/internal/models"
	"github.com/noah-isme/campus-records/internal/service"
)

type courseFlags struct {
	name        string
	credits     float64
	teacherID   string
	semester    string
	description string
}

func (f *courseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "course name")
	cmd.Flags().Float64Var(&f.credits, "credits", 0, "credit value")
	cmd.Flags().StringVar(&f.teacherID, "teacher", "", "teacher id (empty leaves the course unassigned)")
	cmd.Flags().StringVar(&f.semester, "semester", "", "semester label")
	cmd.Flags().StringVar(&f.description, "description", "", "description")
}

func (f *courseFlags) request() (service.CourseRequest, error) {
	teacherID, err := optionalID(f.teacherID, "teacher id")
	if err != nil {
		return service.CourseRequest{}, err
	}
	return service.CourseRequest{
		Name:        f.name,
		Credits:     f.credits,
		TeacherID:   teacherID,
		Semester:    f.semester,
		Description: f.description,
	}, nil
}

func newCourseCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{Use: "course", Short: "Manage courses"}

	var teacherFilter string
	list := &cobra.Command{
		Use:   "list",
		Short: "List courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			teacherID, err := optionalID(teacherFilter, "teacher id")
			if err != nil {
				return err
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				var courses []models.CourseDetail
				if teacherID != nil {
					courses, err = app.Courses.ListByTeacher(ctx, session, *teacherID)
				} else {
					courses, err = app.Courses.List(ctx, session)
				}
				if err != nil {
					return err
				}
				return out.Success(courses, func(w io.Writer) {
					rows := make([][]string, 0, len(courses))
					for _, c := range courses {
						rows = append(rows, []string{
							strconv.FormatInt(c.ID, 10), c.Name, strconv.FormatFloat(c.Credits, 'f', -1, 64), deref(c.TeacherName), c.Semester,
						})
					}
					table(w, []string{"ID", "NAME", "CREDITS", "TEACHER", "SEMESTER"}, rows)
				})
			})
		},
	}
	list.Flags().StringVar(&teacherFilter, "teacher", "", "only courses of this teacher id")

	var addFlags courseFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a course",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := addFlags.request()
			if err != nil {
				return err
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				course, err := app.Courses.Add(ctx, session, req)
				if err != nil {
					return err
				}
				return out.Success(course, func(w io.Writer) { fmt.Fprintf(w, "added course %d\n", course.ID) })
			})
		},
	}
	addFlags.register(add)

	var updateFlags courseFlags
	update := &cobra.Command{
		Use:   "update COURSE_ID",
		Short: "Replace a course's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "course id")
			if err != nil {
				return err
			}
			req, err := updateFlags.request()
			if err != nil {
				return err
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				course, err := app.Courses.Update(ctx, session, id, req)
				if err != nil {
					return err
				}
				return out.Success(course, func(w io.Writer) { fmt.Fprintf(w, "updated course %d\n", course.ID) })
			})
		},
	}
	updateFlags.register(update)

	del := &cobra.Command{
		Use:   "delete COURSE_ID",
		Short: "Delete a course and its grades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "course id")
			if err != nil {
				return err
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				if err := app.Courses.Delete(ctx, session, id); err != nil {
					return err
				}
				return out.Success(map[string]int64{"deleted": id}, func(w io.Writer) { fmt.Fprintf(w, "deleted course %d\n", id) })
			})
		},
	}

	cmd.AddCommand(list, add, update, del)
	return cmd
}
