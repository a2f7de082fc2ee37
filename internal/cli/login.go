package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/noah-isme/campus-records/internal/models"
	appErrors "github.com/noah-isme/campus-records/pkg/errors"
)

const maxLoginAttempts = 3

// prompter reads answers from the command's input. Passwords are read
// without echo when the input is a terminal.
type prompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, out: out, reader: bufio.NewReader(in)}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	text, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && text != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.TrimSpace(label), ":"), err)
	}
	return strings.TrimRight(text, "\r\n"), nil
}

func (p *prompter) secret(label string) (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, label)
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	return p.line(label)
}

// login runs the challenge and credential exchange until it succeeds or the
// attempts run out. Each challenge image is written to challengeDir.
func (r *runner) login(ctx context.Context, app *App, p *prompter) (*models.Session, error) {
	if r.opts.Username == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "--user is required")
	}
	role := models.UserRole(r.opts.Role)
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "--role must be admin, teacher or student")
	}

	challenge, err := app.Auth.IssueChallenge()
	if err != nil {
		return nil, err
	}
	var lastErr error
	for attempt := 1; attempt <= maxLoginAttempts; attempt++ {
		if challenge == nil {
			return nil, lastErr
		}
		path, err := r.writeChallenge(challenge)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(p.out, "Verification image: %s\n", path)
		answer, err := p.line("Verification code: ")
		_ = os.Remove(path)
		if err != nil {
			return nil, err
		}
		password, err := p.secret(fmt.Sprintf("Password for %s: ", r.opts.Username))
		if err != nil {
			return nil, err
		}

		session, err := app.Auth.Login(ctx, models.LoginRequest{
			Username:          r.opts.Username,
			Password:          password,
			Role:              role,
			ChallengeResponse: answer,
		})
		if err == nil {
			return session, nil
		}
		lastErr = err
		code := appErrors.CodeOf(err)
		if code == appErrors.ErrAccountFrozen.Code || code == appErrors.ErrTooManyAttempts.Code || code == appErrors.ErrInternal.Code {
			return nil, err
		}
		fmt.Fprintf(p.out, "%s\n", appErrors.FromError(err).Message)
		challenge = app.Auth.Challenge()
	}
	return nil, lastErr
}

func (r *runner) writeChallenge(challenge *models.Challenge) (string, error) {
	dir := r.opts.ChallengeDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "campus-challenge-"+challenge.ID+".png")
	if err := os.WriteFile(path, challenge.Image, 0o600); err != nil {
		return "", WrapExitError(ExitCommandError, "write challenge image", err)
	}
	return path, nil
}
