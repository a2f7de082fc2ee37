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

func newAccountCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{Use: "account", Short: "Manage login accounts"}

	var role string
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				var filter *models.UserRole
				if role != "" {
					rl := models.UserRole(role)
					filter = &rl
				}
				users, err := app.Accounts.List(ctx, session, filter)
				if err != nil {
					return err
				}
				return out.Success(users, func(w io.Writer) {
					rows := make([][]string, 0, len(users))
					for _, u := range users {
						last := ""
						if u.LastLoginAt != nil {
							last = u.LastLoginAt.Local().Format("2006-01-02 15:04")
						}
						rows = append(rows, []string{strconv.FormatInt(u.ID, 10), u.Username, string(u.Role), u.DisplayName, strconv.FormatBool(u.IsFrozen), last})
					}
					table(w, []string{"ID", "USERNAME", "ROLE", "NAME", "FROZEN", "LAST LOGIN"}, rows)
				})
			})
		},
	}
	list.Flags().StringVar(&role, "filter-role", "", "only accounts with this role")

	cmd.AddCommand(list,
		newFreezeCommand(r, "freeze", true),
		newFreezeCommand(r, "unfreeze", false),
		newResetPasswordCommand(r),
		newPasswdCommand(r),
	)
	return cmd
}

func newFreezeCommand(r *runner, use string, frozen bool) *cobra.Command {
	state := "unfrozen"
	if frozen {
		state = "frozen"
	}
	return &cobra.Command{
		Use:   use + " USER_ID",
		Short: "Mark an account " + state,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				if err := app.Accounts.SetFrozen(ctx, session, id, frozen); err != nil {
					return err
				}
				return out.Success(map[string]interface{}{"user_id": id, "frozen": frozen}, func(w io.Writer) {
					fmt.Fprintf(w, "account %d %s\n", id, state)
				})
			})
		},
	}
}

func newResetPasswordCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password USER_ID",
		Short: "Set a new password on an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
				password, err := confirmedSecret(p, "New password: ")
				if err != nil {
					return err
				}
				if err := app.Accounts.ResetPassword(ctx, session, id, password); err != nil {
					return err
				}
				return out.Success(map[string]int64{"user_id": id}, func(w io.Writer) { fmt.Fprintf(w, "password of account %d reset\n", id) })
			})
		},
	}
}

func newPasswdCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change your own password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
				current, err := p.secret("Current password: ")
				if err != nil {
					return err
				}
				next, err := confirmedSecret(p, "New password: ")
				if err != nil {
					return err
				}
				if err := app.Accounts.ChangePassword(ctx, session, current, next); err != nil {
					return err
				}
				return out.Success(map[string]string{"username": session.Username}, func(w io.Writer) { fmt.Fprintln(w, "password changed") })
			})
		},
	}
}

func confirmedSecret(p *prompter, label string) (string, error) {
	first, err := p.secret(label)
	if err != nil {
		return "", err
	}
	second, err := p.secret("Repeat " + label)
	if err != nil {
		return "", err
	}
	if first != second {
		return "", appErrors.Clone(appErrors.ErrValidation, "passwords do not match")
	}
	return first, nil
}
