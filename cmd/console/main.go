// Command console is the command line front end of the admin console.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/songzhibin97/adminconsole/internal/app"
	"github.com/songzhibin97/adminconsole/internal/config"
	"github.com/songzhibin97/adminconsole/internal/session"
	"github.com/songzhibin97/adminconsole/pkg/console"
)

var (
	// BuildTime and GitCommit are set at link time.
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// env is what a command runs against.
type env struct {
	app    *app.App
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	usage string
	// protected commands require a verified administrator session.
	protected bool
	run       func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"login":   {usage: "login -email <email> [-password <password>]", run: runLogin},
	"logout":  {usage: "logout", run: runLogout},
	"whoami":  {usage: "whoami", protected: true, run: runWhoami},
	"list":    {usage: "list <resource> [-page N] [-limit N]", protected: true, run: runList},
	"get":     {usage: "get <resource> <id>", protected: true, run: runGet},
	"create":  {usage: "create <resource> -f <file|->", protected: true, run: runCreate},
	"update":  {usage: "update <resource> <id> -f <file|->", protected: true, run: runUpdate},
	"delete":  {usage: "delete <resource> <id>", protected: true, run: runDelete},
	"mentors": {usage: "mentors [-page N] [-limit N]", protected: true, run: runMentors},
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", config.DefaultFile(), "Configuration file path")
	version := fs.Bool("version", false, "Show version information")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *version {
		fmt.Fprintf(stdout, "Admin Console %s\n", app.Version)
		fmt.Fprintf(stdout, "Build Time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "Git Commit: %s\n", GitCommit)
		return 0
	}

	rest := fs.Args()
	if len(rest) == 0 {
		usage(stderr, fs)
		return 2
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", rest[0])
		usage(stderr, fs)
		return 2
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	navigator := session.NavigatorFunc(func(path string) {
		fmt.Fprintf(stderr, "redirecting to %s\n", path)
	})
	a, err := app.New(cfg, app.WithNavigator(navigator), app.WithLogOutput(stderr))
	if err != nil {
		fmt.Fprintf(stderr, "Failed to start console: %v\n", err)
		return 1
	}
	defer func() {
		closeCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := a.Close(closeCtx); err != nil {
			fmt.Fprintf(stderr, "Error closing console: %v\n", err)
		}
	}()

	// A forced expiry abandons whatever the command was doing.
	unsubscribe := a.Session.Subscribe(func(st session.State) {
		if st.Status == session.StatusExpired {
			fmt.Fprintln(stderr, "session expired, please sign in again")
			cancel(console.ErrSessionExpired)
		}
	})
	defer unsubscribe()

	e := &env{app: a, stdin: stdin, stdout: stdout, stderr: stderr}
	if cmd.protected {
		if err := requireSession(ctx, a); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
	}

	if err := cmd.run(ctx, e, rest[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		if cause := context.Cause(ctx); errors.Is(cause, console.ErrSessionExpired) {
			err = cause
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// requireSession restores the stored session and refuses to continue
// unless it belongs to an administrator.
func requireSession(ctx context.Context, a *app.App) error {
	if err := a.Session.VerifyOnStartup(ctx); err != nil {
		return err
	}
	if !a.Session.State().Authenticated() {
		return fmt.Errorf("%w: run 'console login' first", console.ErrNotAuthenticated)
	}
	return nil
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: console [flags] <command> [args]")
	fmt.Fprintln(w, "\nCommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
	fmt.Fprintf(w, "\nResources: %s\n", strings.Join(resourceNames, ", "))
	fmt.Fprintln(w, "\nFlags:")
	fs.PrintDefaults()
}
