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

type teacherFlags struct {
	username   string
	password   string
	name       string
	gender     string
	title      string
	department string
	contact    string
	idCard     string
}

func (f *teacherFlags) register(cmd *cobra.Command, withUsername bool) {
	if withUsername {
		cmd.Flags().StringVar(&f.username, "username", "", "account name (default: name initials)")
	}
	cmd.Flags().StringVar(&f.password, "password", "", "account password")
	cmd.Flags().StringVar(&f.name, "name", "", "full name")
	cmd.Flags().StringVar(&f.gender, "gender", "", "gender")
	cmd.Flags().StringVar(&f.title, "title", "", "professional title")
	cmd.Flags().StringVar(&f.department, "department", "", "department")
	cmd.Flags().StringVar(&f.contact, "contact", "", "contact information")
	cmd.Flags().StringVar(&f.idCard, "id-card", "", "national id number")
}

func newTeacherCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{Use: "teacher", Short: "Manage teachers"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List teachers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				teachers, err := app.Teachers.List(ctx, session)
				if err != nil {
					return err
				}
				return out.Success(teachers, func(w io.Writer) { teacherTable(w, teachers) })
			})
		},
	}

	show := &cobra.Command{
		Use:   "show TEACHER_ID",
		Short: "Show one teacher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "teacher id")
			if err != nil {
				return err
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				teacher, err := app.Teachers.Get(ctx, session, id)
				if err != nil {
					return err
				}
				return out.Success(teacher, func(w io.Writer) { teacherTable(w, []models.TeacherDetail{*teacher}) })
			})
		},
	}

	me := &cobra.Command{
		Use:   "me",
		Short: "Show the logged-in teacher's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				teacher, err := app.Teachers.GetByUserID(ctx, session, session.UserID)
				if err != nil {
					return err
				}
				return out.Success(teacher, func(w io.Writer) { teacherTable(w, []models.TeacherDetail{*teacher}) })
			})
		},
	}

	var addFlags teacherFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a teacher and their account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				teacher, err := app.Teachers.Add(ctx, session, service.CreateTeacherRequest{
					Username:    addFlags.username,
					Password:    addFlags.password,
					Name:        addFlags.name,
					Gender:      addFlags.gender,
					Title:       addFlags.title,
					Department:  addFlags.department,
					ContactInfo: addFlags.contact,
					IDCard:      addFlags.idCard,
				})
				if err != nil {
					return err
				}
				return out.Success(teacher, func(w io.Writer) {
					fmt.Fprintf(w, "added teacher %d, account %s\n", teacher.ID, teacher.Username)
				})
			})
		},
	}
	addFlags.register(add, true)

	var updateFlags teacherFlags
	update := &cobra.Command{
		Use:   "update TEACHER_ID",
		Short: "Replace a teacher's details; --password resets the account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "teacher id")
			if err != nil {
				return err
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				teacher, err := app.Teachers.Update(ctx, session, id, service.UpdateTeacherRequest{
					Name:        updateFlags.name,
					Gender:      updateFlags.gender,
					Title:       updateFlags.title,
					Department:  updateFlags.department,
					ContactInfo: updateFlags.contact,
					IDCard:      updateFlags.idCard,
					Password:    updateFlags.password,
				})
				if err != nil {
					return err
				}
				return out.Success(teacher, func(w io.Writer) { fmt.Fprintf(w, "updated teacher %d\n", teacher.ID) })
			})
		},
	}
	updateFlags.register(update, false)

	del := &cobra.Command{
		Use:   "delete TEACHER_ID",
		Short: "Delete a teacher and their account; their courses become unassigned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "teacher id")
			if err != nil {
				return err
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				if err := app.Teachers.Delete(ctx, session, id); err != nil {
					return err
				}
				return out.Success(map[string]int64{"deleted": id}, func(w io.Writer) { fmt.Fprintf(w, "deleted teacher %d\n", id) })
			})
		},
	}

	cmd.AddCommand(list, show, me, add, update, del)
	return cmd
}

func teacherTable(w io.Writer, teachers []models.TeacherDetail) {
	rows := make([][]string, 0, len(teachers))
	for _, t := range teachers {
		rows = append(rows, []string{strconv.FormatInt(t.ID, 10), t.Name, t.Username, t.Title, t.Department, strconv.FormatBool(t.IsFrozen)})
	}
	table(w, []string{"ID", "NAME", "USERNAME", "TITLE", "DEPARTMENT", "FROZEN"}, rows)
}
