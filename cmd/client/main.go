// Package main is the interactive Mesto shell: it restores the session,
// then reads commands and forwards them to the app as user intents.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/agnivade/levenshtein"
	"github.com/atinyakov/mesto/internal/client/api"
	"github.com/atinyakov/mesto/internal/client/app"
	"github.com/atinyakov/mesto/internal/client/prompt"
	"github.com/atinyakov/mesto/internal/client/session"
	"github.com/atinyakov/mesto/internal/client/storage"
	"github.com/atinyakov/mesto/internal/config"
	"github.com/atinyakov/mesto/internal/db"
	"github.com/atinyakov/mesto/internal/logger"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const help = `Available commands:
  login               sign in
  register            create an account
  logout              sign out
  cards               list places
  add                 add a place
  like <id>           like or unlike a place
  delete <id>         delete one of your places
  view <id>           show the full image link
  profile             show your profile
  edit-profile        change name and bio
  avatar              change the avatar
  close               close the open dialog
  help, exit`

var commands = []string{
	"login", "register", "logout", "cards", "add", "like", "delete",
	"view", "profile", "edit-profile", "avatar", "close", "help", "exit",
}

// suggest returns the known command closest to cmd, or "" when nothing is
// within two edits.
func suggest(cmd string) string {
	best, bestDist := "", 3
	for _, c := range commands {
		if d := levenshtein.ComputeDistance(cmd, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// shell runs the interactive loop until exit or EOF.
type shell struct {
	app *app.App
	in  *prompt.Prompter
	out io.Writer
}

func (s *shell) run(ctx context.Context) {
	for {
		line, ok := s.in.Line("mesto> ")
		if !ok {
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			fmt.Fprintln(s.out, "Bye")
			return
		}
		if err := s.dispatch(ctx, args); err != nil && errors.Is(err, prompt.ErrClosed) {
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// dispatch runs one command. Intent failures are already reported by the
// terminal observer, so only input errors are returned.
func (s *shell) dispatch(ctx context.Context, args []string) error {
	needID := func(usage string) (string, bool) {
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage:", usage)
			return "", false
		}
		return args[1], true
	}

	switch args[0] {
	case "help":
		fmt.Fprintln(s.out, help)
	case "login":
		creds, err := s.in.Credentials()
		if err != nil {
			return err
		}
		_ = s.app.SubmitLogin(ctx, creds)
	case "register":
		s.app.GoToRegister()
		creds, err := s.in.Credentials()
		if err != nil {
			return err
		}
		_ = s.app.SubmitRegister(ctx, creds)
	case "logout":
		_ = s.app.Logout(ctx)
	case "cards":
		st := s.app.Snapshot()
		userID := ""
		if st.Identity != nil {
			userID = st.Identity.ID
		}
		prompt.PrintCards(s.out, st.Cards, userID)
	case "add":
		s.app.OpenAddPlace()
		card, err := s.in.NewCard()
		if err != nil {
			return err
		}
		_ = s.app.SubmitPlace(ctx, card)
	case "like":
		if id, ok := needID("like <id>"); ok {
			_ = s.app.ClickLike(ctx, id)
		}
	case "delete":
		id, ok := needID("delete <id>")
		if !ok || s.app.ClickDelete(id) != nil {
			return nil
		}
		yes, err := s.in.Confirm("Are you sure?")
		if err != nil {
			return err
		}
		if !yes {
			s.app.CloseDialog()
			return nil
		}
		_ = s.app.ConfirmDelete(ctx)
	case "view":
		if id, ok := needID("view <id>"); ok {
			_ = s.app.ClickCard(id)
		}
	case "profile":
		prompt.PrintProfile(s.out, s.app.Snapshot().Identity)
	case "edit-profile":
		st := s.app.Snapshot()
		if st.Session != session.Authenticated || st.Identity == nil {
			fmt.Fprintln(s.out, "Please log in first")
			return nil
		}
		s.app.OpenEditProfile()
		upd, err := s.in.Profile(*st.Identity)
		if err != nil {
			return err
		}
		_ = s.app.SubmitProfile(ctx, upd)
	case "avatar":
		s.app.OpenEditAvatar()
		link, err := s.in.Avatar()
		if err != nil {
			return err
		}
		_ = s.app.SubmitAvatar(ctx, link)
	case "close":
		s.app.CloseDialog()
	default:
		if guess := suggest(args[0]); guess != "" {
			fmt.Fprintf(s.out, "Unknown command. Did you mean %q?\n", guess)
			return nil
		}
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
	}
	return nil
}

// openStore picks the SQL store when a DSN is configured and the token file
// otherwise.
func openStore(ctx context.Context, opts *config.Options) (session.CredentialStore, func(), error) {
	if opts.TokenDSN != "" {
		conn, err := db.InitPostgres(ctx, opts.TokenDSN)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewSQLTokenStore(conn), func() { _ = conn.Close() }, nil
	}

	var fileOpts []storage.Option
	if opts.TokenSecret != "" {
		aead, err := storage.NewAEADFromSecret([]byte(opts.TokenSecret))
		if err != nil {
			return nil, nil, err
		}
		fileOpts = append(fileOpts, storage.WithAEAD(aead))
	}
	return storage.NewFileTokenStore(opts.TokenFile, fileOpts...), func() {}, nil
}

func main() {
	opts, err := config.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Printf("Mesto client\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(opts.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient, err := api.NewHTTPClient(api.TLSOptions{
		CAFile:   opts.CAFile,
		CertFile: opts.CertFile,
		KeyFile:  opts.KeyFile,
		Timeout:  opts.Timeout(),
	})
	if err != nil {
		zapLogger.Fatal("failed to build http client", zap.Error(err))
	}

	store, closeStore, err := openStore(ctx, opts)
	if err != nil {
		zapLogger.Fatal("cannot open credential store", zap.Error(err))
	}
	defer closeStore()

	client := api.New(httpClient, opts.APIURL, opts.AuthURL, api.WithLogger(zapLogger.Named("api")))
	a := app.New(client, store,
		app.WithLogger(zapLogger),
		app.WithObserver(prompt.NewTerminal(os.Stdout)),
		app.WithTimeout(opts.Timeout()),
	)

	if err := a.Start(ctx); err != nil {
		zapLogger.Warn("initial load failed", zap.Error(err))
	}

	sh := &shell{
		app: a,
		in:  prompt.New(os.Stdin, os.Stdout),
		out: os.Stdout,
	}
	sh.run(ctx)
}
