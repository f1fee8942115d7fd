package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kirinyoku/tixhub/internal/client"
	"github.com/kirinyoku/tixhub/internal/session"
)

const usage = `tixctl talks to a tixhub API.

Usage:
  tixctl [flags] <command> [args]

Commands:
  login                       sign in (--username or --email, --password)
  logout                      sign out and revoke the refresh token
  register                    create an account (--username, --email, --password)
  whoami                      show the signed in user
  events                      list events (--page, --per-page)
  event <id>                  show one event and its availability
  reserve <event-id>          hold tickets (--date, --time, --quantity)
  tickets                     list your tickets
  confirm <ref>...            pay held tickets
  cancel <ref>...             cancel your tickets
  get <path>                  GET any API path and print the JSON

Flags:
`

const exitLoginRequired = 2

type options struct {
	api      string
	origin   string
	session  string
	timeout  time.Duration
	verbose  bool
	username string
	email    string
	password string
	page     int
	perPage  int
	date     string
	hour     string
	quantity int
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options

	fs := pflag.NewFlagSet("tixctl", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.api, "api", envOr("TIXHUB_API", "http://localhost:8080"), "API base URL")
	fs.StringVar(&opts.origin, "origin", os.Getenv("TIXHUB_ORIGIN"), "Origin header sent with every request")
	fs.StringVar(&opts.session, "session", envOr("TIXHUB_SESSION", defaultSessionPath()), "session file")
	fs.DurationVar(&opts.timeout, "timeout", 30*time.Second, "per request timeout")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	fs.StringVarP(&opts.username, "username", "u", "", "username")
	fs.StringVar(&opts.email, "email", "", "email")
	fs.StringVarP(&opts.password, "password", "p", os.Getenv("TIXHUB_PASSWORD"), "password (or TIXHUB_PASSWORD)")
	fs.IntVar(&opts.page, "page", 1, "page number")
	fs.IntVar(&opts.perPage, "per-page", 30, "items per page")
	fs.StringVar(&opts.date, "date", "", "slot date, YYYY-MM-DD")
	fs.StringVar(&opts.hour, "time", "", "slot time, HH:MM")
	fs.IntVarP(&opts.quantity, "quantity", "n", 1, "number of tickets")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return 1
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	sess := session.New(session.NewFileStore(opts.session))
	if err := sess.Load(ctx); err != nil {
		logger.Error("failed to load session", "error", err)
		return 1
	}

	notices := client.NewNotices()
	c, err := client.New(client.Config{
		BaseURL:  opts.api,
		Origin:   opts.origin,
		Timeout:  opts.timeout,
		Notifier: client.Notifiers{client.LogNotifier{Logger: logger}, notices},
		Logger:   logger,
	}, sess)
	if err != nil {
		logger.Error("failed to create client", "error", err)
		return 1
	}

	cmd := &command{c: c, opts: opts, out: stdout}
	err = cmd.dispatch(ctx, fs.Arg(0), fs.Args()[1:])

	if errors.Is(err, client.ErrSessionExpired) || errors.Is(err, client.ErrNotSignedIn) || notices.LoginRequired() {
		fmt.Fprintln(stderr, "Please log in: tixctl login --username <name>")
		return exitLoginRequired
	}

	if err != nil {
		printError(stderr, err)
		return 1
	}

	return 0
}

type command struct {
	c    *client.Client
	opts options
	out  io.Writer
}

func (cmd *command) dispatch(ctx context.Context, name string, args []string) error {
	switch name {
	case "login":
		return cmd.login(ctx)
	case "logout":
		return cmd.c.Logout(ctx)
	case "register":
		return cmd.register(ctx)
	case "whoami":
		p, err := cmd.c.Profile(ctx)
		if err != nil {
			return err
		}
		return cmd.print(p)
	case "events":
		return cmd.get(ctx, "events", client.Params{"page": cmd.opts.page, "itemsPerPage": cmd.opts.perPage})
	case "event":
		return cmd.event(ctx, args)
	case "reserve":
		return cmd.reserve(ctx, args)
	case "tickets":
		return cmd.get(ctx, "tickets", client.Params{"page": cmd.opts.page, "itemsPerPage": cmd.opts.perPage})
	case "confirm", "cancel":
		if len(args) == 0 {
			return fmt.Errorf("%s needs at least one ticket reference", name)
		}
		return cmd.send(ctx, http.MethodPost, "tickets/"+name, map[string]any{"references": args})
	case "get":
		if len(args) != 1 {
			return errors.New("get needs exactly one path")
		}
		return cmd.get(ctx, args[0], nil)
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func (cmd *command) login(ctx context.Context) error {
	if cmd.opts.username == "" && cmd.opts.email == "" {
		return errors.New("login needs --username or --email")
	}
	if cmd.opts.password == "" {
		return errors.New("login needs --password or TIXHUB_PASSWORD")
	}

	snap, err := cmd.c.Login(ctx, client.Credentials{
		Username: cmd.opts.username,
		Email:    cmd.opts.email,
		Password: cmd.opts.password,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.out, "Signed in as %s (%s)\n", snap.Username, strings.Join(snap.Roles, ", "))
	return nil
}

func (cmd *command) register(ctx context.Context) error {
	p, err := cmd.c.Register(ctx, client.RegisterInput{
		Username: cmd.opts.username,
		Email:    cmd.opts.email,
		Password: cmd.opts.password,
	})
	if err != nil {
		return err
	}
	return cmd.print(p)
}

func (cmd *command) event(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("event needs an event id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid event id %q", args[0])
	}

	var ev, availability json.RawMessage
	if err := cmd.c.GetJSON(ctx, fmt.Sprintf("events/%d", id), nil, &ev); err != nil {
		return err
	}
	if err := cmd.c.GetJSON(ctx, fmt.Sprintf("events/%d/availability", id), nil, &availability); err != nil {
		return err
	}

	return cmd.print(map[string]json.RawMessage{"event": ev, "availability": availability})
}

func (cmd *command) reserve(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("reserve needs an event id")
	}
	if cmd.opts.date == "" || cmd.opts.hour == "" {
		return errors.New("reserve needs --date and --time")
	}

	return cmd.send(ctx, http.MethodPost, "events/"+args[0]+"/reservations", map[string]any{
		"date":     cmd.opts.date,
		"time":     cmd.opts.hour,
		"quantity": cmd.opts.quantity,
	})
}

func (cmd *command) get(ctx context.Context, path string, params client.Params) error {
	var out json.RawMessage
	if err := cmd.c.GetJSON(ctx, path, params, &out); err != nil {
		return err
	}
	return cmd.print(out)
}

func (cmd *command) send(ctx context.Context, method, path string, in any) error {
	var out json.RawMessage
	if err := cmd.c.SendJSON(ctx, method, path, in, &out); err != nil {
		return err
	}
	return cmd.print(out)
}

func (cmd *command) print(v any) error {
	enc := json.NewEncoder(cmd.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printError(w io.Writer, err error) {
	var subErr *client.SubmissionError
	if errors.As(err, &subErr) {
		fmt.Fprintln(w, "Error:", subErr.Errors[client.FormErrorKey])
		for field, msg := range subErr.Errors {
			if field != client.FormErrorKey {
				fmt.Fprintf(w, "  %s: %s\n", field, msg)
			}
		}
		return
	}

	var netErr *client.NetworkError
	if errors.As(err, &netErr) {
		fmt.Fprintln(w, "Network error:", netErr.Err)
		return
	}

	fmt.Fprintln(w, "Error:", err)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".tixhub-session.json"
	}
	return filepath.Join(dir, "tixhub", "session.json")
}
