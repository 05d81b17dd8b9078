package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/bugtracker/tracker-system/internal/client/apiclient"
	"github.com/bugtracker/tracker-system/internal/client/session"
	"github.com/bugtracker/tracker-system/internal/client/store"
)

// cliEnv is everything the commands share.
type cliEnv struct {
	client *apiclient.Client
	auth   *store.AuthStore
	bugs   *store.BugStore
	out    io.Writer
	in     io.Reader
}

func newCLIEnv(client *apiclient.Client, storage session.Storage, out io.Writer, log zerolog.Logger) (*cliEnv, error) {
	auth, err := store.NewAuthStore(store.AuthConfig{Client: client, Storage: storage, Logger: log})
	if err != nil {
		return nil, err
	}
	bugs, err := store.NewBugStore(client, log)
	if err != nil {
		return nil, err
	}
	return &cliEnv{client: client, auth: auth, bugs: bugs, out: out, in: os.Stdin}, nil
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *cliEnv) *cli.App {
	app := &cli.App{
		Name:    "bugctl",
		Usage:   "Bug tracker command line client",
		Version: Version,
		Writer:  env.out,
		Commands: []*cli.Command{
			loginCmd(env),
			registerCmd(env),
			logoutCmd(env),
			whoamiCmd(env),
			googleLoginCmd(env),
			googleCallbackCmd(env),
			listCmd(env),
			showCmd(env),
			createCmd(env),
			updateCmd(env),
			deleteCmd(env),
			commentCmd(env),
			activityCmd(env),
			statsCmd(env),
			assigneesCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func loginCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in with a username or email",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Username or email", Required: true},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password (read from stdin when omitted)", EnvVars: []string{"BUGTRACKER_PASSWORD"}},
		},
		Action: func(c *cli.Context) error {
			password, err := env.secret(c.String("password"))
			if err != nil {
				return outputError(err)
			}
			res := env.auth.Login(c.Context, apiclient.LoginRequest{Username: c.String("username"), Password: password})
			if !res.Success {
				return resultError(res.Error, res.FieldErrors)
			}
			return env.outputJSON(map[string]any{"message": "Logged in", "user": res.Data})
		},
	}
}

func registerCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account and sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password (read from stdin when omitted)", EnvVars: []string{"BUGTRACKER_PASSWORD"}},
		},
		Action: func(c *cli.Context) error {
			password, err := env.secret(c.String("password"))
			if err != nil {
				return outputError(err)
			}
			res := env.auth.Register(c.Context, apiclient.RegisterRequest{
				Username: c.String("username"),
				Email:    c.String("email"),
				Password: password,
			})
			if !res.Success {
				return resultError(res.Error, res.FieldErrors)
			}
			return env.outputJSON(map[string]any{"message": "Registered", "user": res.Data})
		},
	}
}

func logoutCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Sign out and forget the local session",
		Action: func(c *cli.Context) error {
			// Server-side revocation is best effort; the local session always ends.
			if env.auth.State().IsAuthenticated {
				_ = env.client.Auth.Logout(c.Context)
			}
			env.auth.Logout()
			return env.outputJSON(map[string]string{"message": "Logged out"})
		},
	}
}

func whoamiCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "Show the signed-in user",
		Before: env.requireSession,
		Action: func(c *cli.Context) error {
			user, err := env.client.Auth.Profile(c.Context)
			if err != nil {
				return outputError(err)
			}
			return env.outputJSON(user)
		},
	}
}

func googleLoginCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "google-login",
		Usage: "Print the Google sign-in URL",
		Action: func(c *cli.Context) error {
			res := env.auth.BeginGoogleLogin(c.Context)
			if !res.Success {
				return resultError(res.Error, res.FieldErrors)
			}
			return env.outputJSON(res.Data)
		},
	}
}

func googleCallbackCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "google-callback",
		Usage: "Finish Google sign-in with the code and state from the redirect",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "code", Required: true},
			&cli.StringFlag{Name: "state", Required: true},
		},
		Action: func(c *cli.Context) error {
			res := env.auth.CompleteGoogleLogin(c.Context, c.String("code"), c.String("state"))
			if !res.Success {
				return resultError(res.Error, res.FieldErrors)
			}
			return env.outputJSON(map[string]any{"message": "Logged in", "user": res.Data})
		},
	}
}

func listCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "List bugs",
		Before: env.requireSession,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Value: store.FilterAll, Usage: "all|open|in_progress|resolved|closed"},
			&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Value: store.FilterAll, Usage: "all|low|medium|high|critical"},
			&cli.StringFlag{Name: "assignee", Aliases: []string{"a"}, Value: store.FilterAll, Usage: "all|unassigned|<username>"},
			&cli.StringFlag{Name: "search", Aliases: []string{"q"}, Usage: "Search title and description"},
			&cli.IntFlag{Name: "page", Usage: "Page number"},
			&cli.IntFlag{Name: "per-page", Usage: "Page size (max 100)"},
			&cli.StringFlag{Name: "sort", Usage: "Sort the page locally: field[:desc]"},
		},
		Action: func(c *cli.Context) error {
			var (
				field store.SortField
				desc  bool
			)
			if value := c.String("sort"); value != "" {
				var err error
				if field, desc, err = store.ParseSort(value); err != nil {
					return outputError(err)
				}
			}

			status, priority := c.String("status"), c.String("priority")
			assignee, search := c.String("assignee"), c.String("search")
			env.bugs.SetFilters(store.FilterPatch{Status: &status, Priority: &priority, Assignee: &assignee, Search: &search})

			extra := map[string]string{}
			if c.IsSet("page") {
				extra["page"] = strconv.Itoa(c.Int("page"))
			}
			if c.IsSet("per-page") {
				extra["per_page"] = strconv.Itoa(c.Int("per-page"))
			}

			res := env.bugs.FetchAll(c.Context, extra)
			if !res.Success {
				return resultError(res.Error, res.FieldErrors)
			}
			st := env.bugs.State()
			if field != "" {
				store.SortBugs(st.Bugs, field, desc)
			}
			return env.outputJSON(apiclient.BugList{Bugs: st.Bugs, Pagination: st.Pagination})
		},
	}
}

func showCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one bug with its comments",
		ArgsUsage: "<id>",
		Before:    env.requireSession,
		Action: func(c *cli.Context) error {
			id, err := requireID(c)
			if err != nil {
				return err
			}
			res := env.bugs.FetchOne(c.Context, id)
			if !res.Success {
				return resultError(res.Error, res.FieldErrors)
			}
			return env.outputJSON(res.Data)
		},
	}
}

// bugFieldFlags returns fresh flag values for create and update.
func bugFieldFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Aliases: []string{"t"}},
		&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Markdown description (read from stdin when \"-\")"},
		&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Usage: "low|medium|high|critical"},
		&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "open|in_progress|resolved|closed"},
		&cli.StringFlag{Name: "assignee", Aliases: []string{"a"}, Usage: "Assignee username"},
		&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
		&cli.StringFlag{Name: "steps", Usage: "Steps to reproduce"},
		&cli.StringFlag{Name: "expected", Usage: "Expected behavior"},
		&cli.StringFlag{Name: "environment", Usage: "Environment details"},
	}
}

func createCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:   "create",
		Usage:  "Report a bug",
		Before: env.requireSession,
		Flags:  bugFieldFlags(),
		Action: func(c *cli.Context) error {
			description, err := env.textArg(c.String("description"))
			if err != nil {
				return outputError(err)
			}
			res := env.bugs.Create(c.Context, apiclient.BugDraft{
				Title:            c.String("title"),
				Description:      description,
				Priority:         c.String("priority"),
				Status:           c.String("status"),
				Assignee:         c.String("assignee"),
				Tags:             parseTags(c.String("tags")),
				StepsToReproduce: c.String("steps"),
				ExpectedBehavior: c.String("expected"),
				Environment:      c.String("environment"),
			})
			if !res.Success {
				return resultError(res.Error, res.FieldErrors)
			}
			return env.outputJSON(map[string]any{"message": "Bug created successfully", "bug": res.Data})
		},
	}
}

func updateCmd(env *cliEnv) *cli.Command {
	flags := append(bugFieldFlags(), &cli.BoolFlag{Name: "unassign", Usage: "Remove the assignee"})

	return &cli.Command{
		Name:      "update",
		Usage:     "Change fields of a bug",
		ArgsUsage: "<id>",
		Before:    env.requireSession,
		Flags:     flags,
		Action: func(c *cli.Context) error {
			id, err := requireID(c)
			if err != nil {
				return err
			}

			var patch apiclient.BugPatch
			optional := func(name string) *string {
				if !c.IsSet(name) {
					return nil
				}
				v := c.String(name)
				return &v
			}
			patch.Title = optional("title")
			patch.Priority = optional("priority")
			patch.Status = optional("status")
			patch.Assignee = optional("assignee")
			patch.StepsToReproduce = optional("steps")
			patch.ExpectedBehavior = optional("expected")
			patch.Environment = optional("environment")
			if c.IsSet("description") {
				description, err := env.textArg(c.String("description"))
				if err != nil {
					return outputError(err)
				}
				patch.Description = &description
			}
			if c.IsSet("tags") {
				tags := parseTags(c.String("tags"))
				if tags == nil {
					tags = []string{}
				}
				patch.Tags = &tags
			}
			if c.Bool("unassign") {
				none := ""
				patch.Assignee = &none
			}

			res := env.bugs.Update(c.Context, id, patch)
			if !res.Success {
				return resultError(res.Error, res.FieldErrors)
			}
			return env.outputJSON(map[string]any{"message": "Bug updated successfully", "bug": res.Data})
		},
	}
}

func deleteCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a bug",
		ArgsUsage: "<id>",
		Before:    env.requireSession,
		Action: func(c *cli.Context) error {
			id, err := requireID(c)
			if err != nil {
				return err
			}
			res := env.bugs.Delete(c.Context, id)
			if !res.Success {
				return resultError(res.Error, res.FieldErrors)
			}
			return env.outputJSON(map[string]string{"message": "Bug deleted successfully", "id": res.Data})
		},
	}
}

func commentCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "comment",
		Usage:     "Comment on a bug",
		ArgsUsage: "<id>",
		Before:    env.requireSession,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "Comment text (read from stdin when \"-\")", Required: true},
		},
		Action: func(c *cli.Context) error {
			id, err := requireID(c)
			if err != nil {
				return err
			}
			content, err := env.textArg(c.String("content"))
			if err != nil {
				return outputError(err)
			}
			res := env.bugs.AddComment(c.Context, id, apiclient.CommentRequest{Content: content})
			if !res.Success {
				return resultError(res.Error, res.FieldErrors)
			}
			return env.outputJSON(map[string]any{"message": "Comment added successfully", "bug": res.Data})
		},
	}
}

func activityCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "activity",
		Usage:     "Show the change history of a bug",
		ArgsUsage: "<id>",
		Before:    env.requireSession,
		Action: func(c *cli.Context) error {
			id, err := requireID(c)
			if err != nil {
				return err
			}
			activity, err := env.client.Bugs.Activity(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			return env.outputJSON(map[string]any{"activity": activity})
		},
	}
}

func statsCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show bug counts by status and priority",
		Before: env.requireSession,
		Action: func(c *cli.Context) error {
			stats, err := env.client.Bugs.Stats(c.Context)
			if err != nil {
				return outputError(err)
			}
			return env.outputJSON(stats)
		},
	}
}

func assigneesCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:   "assignees",
		Usage:  "List users bugs can be assigned to",
		Before: env.requireSession,
		Action: func(c *cli.Context) error {
			assignees, err := env.client.Users.Assignees(c.Context)
			if err != nil {
				return outputError(err)
			}
			return env.outputJSON(map[string]any{"assignees": assignees})
		},
	}
}

// requireSession stops commands that need a signed-in user.
func (e *cliEnv) requireSession(_ *cli.Context) error {
	if !e.auth.State().IsAuthenticated {
		return cli.Exit("not logged in: run `bugctl login` first", 1)
	}
	return nil
}

// secret returns v, or the first line of stdin when v is empty.
func (e *cliEnv) secret(v string) (string, error) {
	if v != "" {
		return v, nil
	}
	data, err := io.ReadAll(io.LimitReader(e.in, 4096))
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line), nil
}

// textArg returns v, or all of stdin when v is "-".
func (e *cliEnv) textArg(v string) (string, error) {
	if v != "-" {
		return v, nil
	}
	data, err := io.ReadAll(e.in)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func requireID(c *cli.Context) (string, error) {
	if c.NArg() == 0 || strings.TrimSpace(c.Args().First()) == "" {
		return "", cli.Exit("bug id is required", 1)
	}
	return c.Args().First(), nil
}

// outputJSON writes v as indented JSON.
func (e *cliEnv) outputJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	return cli.Exit(apiclient.Message(err, err.Error()), 1)
}

// resultError formats a failed store result, listing field errors in a stable
// order.
func resultError(msg string, fields map[string]string) error {
	if len(fields) == 0 {
		return cli.Exit(msg, 1)
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s: %s", name, fields[name])
	}
	return cli.Exit(strings.Join(parts, "; "), 1)
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
