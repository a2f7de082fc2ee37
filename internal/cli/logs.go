package cli

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/campus-records/internal/models"
	appErrors "github.com/noah-isme/campus-records/pkg/errors"
)

func newLogsCommand(r *runner) *cobra.Command {
	var (
		action string
		user   string
		limit  int
		since  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the action log, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := optionalID(user, "user id")
			if err != nil {
				return err
			}
			if since < 0 {
				return appErrors.Clone(appErrors.ErrValidation, "--since must not be negative")
			}
			filter := models.ActionLogFilter{UserID: userID, ActionType: models.ActionType(action), Limit: limit}
			if since > 0 {
				from := time.Now().Add(-since)
				filter.Since = &from
			}
			return r.withSession(cmd, func(ctx context.Context, app *App, session *models.Session, out *OutputFormatter) error {
				entries, err := app.ActionLogs.List(ctx, session, filter)
				if err != nil {
					return err
				}
				return out.Success(entries, func(w io.Writer) {
					rows := make([][]string, 0, len(entries))
					for _, e := range entries {
						rows = append(rows, []string{
							e.Timestamp.Local().Format(time.DateTime), deref(e.Username), strconv.FormatInt(e.UserID, 10), string(e.ActionType), e.Description,
						})
					}
					table(w, []string{"TIME", "USER", "USER ID", "ACTION", "DESCRIPTION"}, rows)
				})
			})
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "only this action type, e.g. ADD_GRADE")
	cmd.Flags().StringVar(&user, "user-id", "", "only entries recorded by this user id")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries (0 for all)")
	cmd.Flags().DurationVar(&since, "since", 0, "only entries newer than this duration, e.g. 24h")
	return cmd
}
