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

type studentFlags struct {
	name        string
	gender      string
	year        int
	department  string
	major       string
	className   string
	contact     string
	idCard      string
	password    string
	archiveFile string
}

func (f *studentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "full name")
	cmd.Flags().StringVar(&f.gender, "gender", "", "gender")
	cmd.Flags().IntVar(&f.year, "year", 0, "enrollment year")
	cmd.Flags().StringVar(&f.department, "department", "", "department")
	cmd.Flags().StringVar(&f.major, "major", "", "major")
	cmd.Flags().StringVar(&f.className, "class", "", "class name")
	cmd.Flags().StringVar(&f.contact, "contact", "", "contact information")
	cmd.Flags().StringVar(&f.idCard, "id-card", "", "national id number")
	cmd.Flags().StringVar(&f.password, "password", "", "account password")
	cmd.Flags().StringVar(&f.archiveFile, "archive", "", "archive file to store with the profile")
}

func (f *studentFlags) enrollmentYear() *int {
	if f.year == 0 {
		return nil
	}
	year := f.year
	return &year
}

func newStudentCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{Use: "student", Short: "Manage students"}

	var filter models.StudentFilter
	var year int
	list := &cobra.Command{
		Use:   "list",
		Short: "List students",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if year != 0 {
				filter.EnrollmentYear = &year
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				students, err := app.Students.List(ctx, session, filter)
				if err != nil {
					return err
				}
				return out.Success(students, func(w io.Writer) { studentTable(w, students) })
			})
		},
	}
	list.Flags().StringVar(&filter.ClassName, "class", "", "only this class")
	list.Flags().StringVar(&filter.Department, "department", "", "only this department")
	list.Flags().IntVar(&year, "year", 0, "only this enrollment year")
	list.Flags().StringVar(&filter.Search, "search", "", "name substring or initials prefix")

	show := &cobra.Command{
		Use:   "show STUDENT_ID",
		Short: "Show one student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "student id")
			if err != nil {
				return err
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				student, err := app.Students.Get(ctx, session, id)
				if err != nil {
					return err
				}
				return out.Success(student, func(w io.Writer) { studentTable(w, []models.StudentDetail{*student}) })
			})
		},
	}

	me := &cobra.Command{
		Use:   "me",
		Short: "Show the logged-in student's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				student, err := app.Students.GetByUserID(ctx, session, session.UserID)
				if err != nil {
					return err
				}
				return out.Success(student, func(w io.Writer) { studentTable(w, []models.StudentDetail{*student}) })
			})
		},
	}

	search := &cobra.Command{
		Use:   "search PREFIX",
		Short: "Find students by name initials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				students, err := app.Students.SearchByInitials(ctx, session, args[0])
				if err != nil {
					return err
				}
				return out.Success(students, func(w io.Writer) {
					rows := make([][]string, 0, len(students))
					for _, s := range students {
						rows = append(rows, []string{strconv.FormatInt(s.ID, 10), s.Name, s.NamePinyin, s.ClassName})
					}
					table(w, []string{"ID", "NAME", "INITIALS", "CLASS"}, rows)
				})
			})
		},
	}

	classes := &cobra.Command{
		Use:   "classes",
		Short: "List class names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				names, err := app.Students.ClassNames(ctx, session)
				if err != nil {
					return err
				}
				return out.Success(names, func(w io.Writer) {
					for _, n := range names {
						fmt.Fprintln(w, n)
					}
				})
			})
		},
	}

	var addFlags studentFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a student and their account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				student, err := app.Students.Add(ctx, session, service.CreateStudentRequest{
					Name:           addFlags.name,
					Gender:         addFlags.gender,
					EnrollmentYear: addFlags.enrollmentYear(),
					Department:     addFlags.department,
					Major:          addFlags.major,
					ClassName:      addFlags.className,
					ContactInfo:    addFlags.contact,
					IDCard:         addFlags.idCard,
					Password:       addFlags.password,
					ArchiveFile:    addFlags.archiveFile,
				})
				if err != nil {
					return err
				}
				return out.Success(student, func(w io.Writer) {
					fmt.Fprintf(w, "added student %d, account %s\n", student.ID, deref(student.Username))
				})
			})
		},
	}
	addFlags.register(add)

	var updateFlags studentFlags
	update := &cobra.Command{
		Use:   "update STUDENT_ID",
		Short: "Replace a student's details; --password resets the account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "student id")
			if err != nil {
				return err
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				student, err := app.Students.Update(ctx, session, id, service.UpdateStudentRequest{
					Name:           updateFlags.name,
					Gender:         updateFlags.gender,
					EnrollmentYear: updateFlags.enrollmentYear(),
					Department:     updateFlags.department,
					Major:          updateFlags.major,
					ClassName:      updateFlags.className,
					ContactInfo:    updateFlags.contact,
					IDCard:         updateFlags.idCard,
					Password:       updateFlags.password,
					ArchiveFile:    updateFlags.archiveFile,
				})
				if err != nil {
					return err
				}
				return out.Success(student, func(w io.Writer) { fmt.Fprintf(w, "updated student %d\n", student.ID) })
			})
		},
	}
	updateFlags.register(update)

	del := &cobra.Command{
		Use:   "delete STUDENT_ID",
		Short: "Delete a student with their account and grades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "student id")
			if err != nil {
				return err
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				if err := app.Students.Delete(ctx, session, id); err != nil {
					return err
				}
				return out.Success(map[string]int64{"deleted": id}, func(w io.Writer) { fmt.Fprintf(w, "deleted student %d\n", id) })
			})
		},
	}

	cmd.AddCommand(list, show, me, search, classes, add, update, del)
	return cmd
}

func studentTable(w io.Writer, students []models.StudentDetail) {
	rows := make([][]string, 0, len(students))
	for _, s := range students {
		year := ""
		if s.EnrollmentYear != nil {
			year = strconv.Itoa(*s.EnrollmentYear)
		}
		rows = append(rows, []string{strconv.FormatInt(s.ID, 10), s.Name, s.Gender, year, s.Department, s.ClassName, deref(s.Username)})
	}
	table(w, []string{"ID", "NAME", "GENDER", "YEAR", "DEPARTMENT", "CLASS", "USERNAME"}, rows)
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
