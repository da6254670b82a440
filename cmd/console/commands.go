package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/songzhibin97/adminconsole/internal/resource"
	"github.com/songzhibin97/adminconsole/pkg/console"
)

var resourceNames = []string{"users", "missions", "protocols", "mentors", "career-fields"}

func newFlagSet(e *env, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

func runLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "login")
	email := fs.String("email", "", "Account email")
	password := fs.String("password", os.Getenv("CONSOLE_PASSWORD"), "Account password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return console.NewValidationError("MISSING_EMAIL", "email is required")
	}

	secret := *password
	if secret == "" {
		var err error
		if secret, err = readPassword(e); err != nil {
			return err
		}
	}

	a := e.app
	if err := a.Session.VerifyOnStartup(ctx); err != nil {
		fmt.Fprintf(e.stderr, "stored session discarded: %v\n", err)
	}
	if a.Session.State().Authenticated() {
		if err := a.Session.Logout(ctx); err != nil {
			return err
		}
	}
	if err := a.Session.Login(ctx, *email, secret); err != nil {
		return err
	}

	st := a.Session.State()
	fmt.Fprintf(e.stdout, "Signed in as %s (%s)\n", st.Profile.DisplayName(), st.Profile.Role)
	return nil
}

func readPassword(e *env) (string, error) {
	if f, ok := e.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(e.stderr, "Password: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(e.stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(e.stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogout(ctx context.Context, e *env, _ []string) error {
	a := e.app
	if err := a.Session.VerifyOnStartup(ctx); err != nil {
		fmt.Fprintf(e.stderr, "stored session discarded: %v\n", err)
	}
	if !a.Session.State().Authenticated() {
		fmt.Fprintln(e.stdout, "Not signed in")
		return nil
	}
	if err := a.Session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, "Signed out")
	return nil
}

func runWhoami(_ context.Context, e *env, _ []string) error {
	return writeJSON(e.stdout, e.app.Session.State().Profile)
}

func runList(ctx context.Context, e *env, args []string) error {
	name, args, err := resourceArg(args)
	if err != nil {
		return err
	}
	fs := newFlagSet(e, "list")
	page := fs.Int("page", 1, "Page number")
	limit := fs.Int("limit", e.app.Config.Console.PageSize, "Page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	h, err := openResource(e, name)
	if err != nil {
		return err
	}
	defer h.close()
	return h.list(ctx, *page, *limit)
}

func runGet(ctx context.Context, e *env, args []string) error {
	name, args, err := resourceArg(args)
	if err != nil {
		return err
	}
	id, err := idArg(args)
	if err != nil {
		return err
	}

	h, err := openResource(e, name)
	if err != nil {
		return err
	}
	defer h.close()
	return h.get(ctx, id)
}

func runCreate(ctx context.Context, e *env, args []string) error {
	name, args, err := resourceArg(args)
	if err != nil {
		return err
	}
	payload, err := payloadArg(e, "create", args)
	if err != nil {
		return err
	}

	h, err := openResource(e, name)
	if err != nil {
		return err
	}
	defer h.close()
	return h.create(ctx, payload)
}

func runUpdate(ctx context.Context, e *env, args []string) error {
	name, args, err := resourceArg(args)
	if err != nil {
		return err
	}
	id, err := idArg(args)
	if err != nil {
		return err
	}
	payload, err := payloadArg(e, "update", args[1:])
	if err != nil {
		return err
	}

	h, err := openResource(e, name)
	if err != nil {
		return err
	}
	defer h.close()
	return h.update(ctx, id, payload)
}

func runDelete(ctx context.Context, e *env, args []string) error {
	name, args, err := resourceArg(args)
	if err != nil {
		return err
	}
	id, err := idArg(args)
	if err != nil {
		return err
	}

	h, err := openResource(e, name)
	if err != nil {
		return err
	}
	defer h.close()
	return h.remove(ctx, id)
}

func runMentors(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "mentors")
	page := fs.Int("page", 1, "Page number")
	limit := fs.Int("limit", e.app.Config.Console.PageSize, "Page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dir := e.app.OpenMentorDirectory()
	defer dir.Close()
	if err := dir.Load(ctx, *page, *limit); err != nil {
		return err
	}

	result := dir.Mentors.Current()
	tw := tabwriter.NewWriter(e.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTITLE\tCAREER FIELDS\tACTIVE")
	for _, m := range result.Items {
		fields := make([]string, 0, len(m.CareerFields))
		for _, rel := range m.CareerFields {
			fields = append(fields, dir.FieldName(rel))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", m.ID, m.Name, m.Title, strings.Join(fields, ", "), m.IsActive)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	writeFooter(e.stdout, result.Pagination)
	return nil
}

func resourceArg(args []string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("a resource is required (%s)", strings.Join(resourceNames, ", "))
	}
	return args[0], args[1:], nil
}

func idArg(args []string) (string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", console.NewValidationError("MISSING_ID", "an identifier is required")
	}
	return args[0], nil
}

// payloadArg reads the JSON document named by -f, "-" meaning stdin.
func payloadArg(e *env, name string, args []string) ([]byte, error) {
	fs := newFlagSet(e, name)
	file := fs.String("f", "", "JSON document to submit, - for stdin")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch *file {
	case "":
		return nil, console.NewValidationError("MISSING_PAYLOAD", "-f is required")
	case "-":
		return io.ReadAll(e.stdin)
	default:
		return os.ReadFile(*file)
	}
}

// resourceHandler runs the generic commands against one resource kind.
type resourceHandler interface {
	list(ctx context.Context, page, limit int) error
	get(ctx context.Context, id string) error
	create(ctx context.Context, payload []byte) error
	update(ctx context.Context, id string, payload []byte) error
	remove(ctx context.Context, id string) error
	close()
}

func openResource(e *env, name string) (resourceHandler, error) {
	a := e.app
	switch name {
	case "users":
		return newHandler(e, a.Users(), []string{"ID", "NAME", "EMAIL", "ROLE", "ACTIVE"}, func(u console.User) []string {
			return []string{u.ID, strings.TrimSpace(u.FirstName + " " + u.LastName), u.Email, string(u.Role), strconv.FormatBool(u.IsActive)}
		}), nil
	case "missions":
		return newHandler(e, a.Missions(), []string{"ID", "TITLE", "TYPE", "DIFFICULTY", "ACTIVE"}, func(m console.Mission) []string {
			return []string{m.ID, m.Title, m.Type, m.Difficulty, strconv.FormatBool(m.IsActive)}
		}), nil
	case "protocols":
		return newHandler(e, a.Protocols(), []string{"ID", "TITLE", "LEVEL", "PHASES", "ACTIVE"}, func(p console.Protocol) []string {
			return []string{p.ID, p.Title, p.TargetLevel, strconv.Itoa(len(p.Phases)), strconv.FormatBool(p.IsActive)}
		}), nil
	case "mentors":
		return newHandler(e, a.Mentors(), []string{"ID", "NAME", "GEMINI ID", "CAREER FIELD", "ACTIVE"}, func(m console.Mentor) []string {
			return []string{m.ID, m.Name, m.GeminiMentorID, console.PrimaryID(m.CareerFields), strconv.FormatBool(m.IsActive)}
		}), nil
	case "career-fields":
		return newHandler(e, a.CareerFields(), []string{"ID", "NAME", "DESCRIPTION"}, func(c console.CareerField) []string {
			return []string{c.ID, c.Name, c.Description}
		}), nil
	}
	return nil, fmt.Errorf("unknown resource %q (%s)", name, strings.Join(resourceNames, ", "))
}

type handler[T console.Entity] struct {
	ctrl    *resource.Controller[T]
	out     io.Writer
	columns []string
	row     func(T) []string
}

func newHandler[T console.Entity](e *env, ctrl *resource.Controller[T], columns []string, row func(T) []string) *handler[T] {
	return &handler[T]{ctrl: ctrl, out: e.stdout, columns: columns, row: row}
}

func (h *handler[T]) list(ctx context.Context, page, limit int) error {
	result, err := h.ctrl.List(ctx, page, limit)
	if err != nil {
		return err
	}
	return h.print(result)
}

func (h *handler[T]) get(ctx context.Context, id string) error {
	v, err := h.ctrl.Get(ctx, id)
	if err != nil {
		return err
	}
	return writeJSON(h.out, v)
}

func (h *handler[T]) create(ctx context.Context, payload []byte) error {
	v, err := decodePayload[T](payload)
	if err != nil {
		return err
	}
	result, err := h.ctrl.Create(ctx, v)
	if err != nil {
		return err
	}
	return h.print(result)
}

func (h *handler[T]) update(ctx context.Context, id string, payload []byte) error {
	v, err := decodePayload[T](payload)
	if err != nil {
		return err
	}
	result, err := h.ctrl.Update(ctx, id, v)
	if err != nil {
		return err
	}
	return h.print(result)
}

func (h *handler[T]) remove(ctx context.Context, id string) error {
	result, err := h.ctrl.Delete(ctx, id)
	if err != nil {
		return err
	}
	return h.print(result)
}

func (h *handler[T]) close() {
	h.ctrl.Close()
}

func (h *handler[T]) print(result console.ListResult[T]) error {
	tw := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(h.columns, "\t"))
	for _, item := range result.Items {
		fmt.Fprintln(tw, strings.Join(h.row(item), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	writeFooter(h.out, result.Pagination)
	return nil
}

func decodePayload[T any](payload []byte) (T, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, console.NewValidationError("INVALID_PAYLOAD", fmt.Sprintf("payload is not valid JSON: %v", err))
	}
	return v, nil
}

func writeFooter(w io.Writer, p console.Pagination) {
	fmt.Fprintf(w, "page %d/%d, %d total, %d per page\n", p.Page, p.TotalPages, p.Total, p.Limit)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
