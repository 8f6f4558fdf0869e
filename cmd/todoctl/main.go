package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/geocoder89/todohub/internal/client"
	"github.com/geocoder89/todohub/internal/domain/todo"
	"golang.org/x/term"
)

const usage = `usage: todoctl [-api URL] [-session FILE] <command> [args]

commands:
  register -name NAME -email EMAIL [-password PW]
  login    -email EMAIL [-password PW]
  logout
  me
  list     [-filter completed|pending]
  add      -title TITLE [-description TEXT]
  edit     -id ID [-title TITLE] [-description TEXT] [-completed true|false]
  rm       -id ID
  toggle   -id ID
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stdin); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer, in *os.File) error {
	global := flag.NewFlagSet("todoctl", flag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }

	apiURL := global.String("api", envOr("TODOHUB_API", client.DefaultBaseURL), "API base URL")
	sessionPath := global.String("session", "", "session file (default: user config dir)")

	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("missing command")
	}

	sf, err := sessionFile(*sessionPath)
	if err != nil {
		return err
	}
	sess, err := sf.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	c := client.New(*apiURL, sess)
	cmd, rest := global.Arg(0), global.Args()[1:]

	switch cmd {
	case "register":
		fs := flag.NewFlagSet("register", flag.ContinueOnError)
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "email")
		password := fs.String("password", "", "password (prompted when omitted)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		pw, err := passwordOrPrompt(*password, in, out)
		if err != nil {
			return err
		}
		p, err := c.Register(ctx, *name, *email, pw)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "registered %s <%s>\n", p.Name, p.Email)
		return sf.Save(c.Session())

	case "login":
		fs := flag.NewFlagSet("login", flag.ContinueOnError)
		email := fs.String("email", "", "email")
		password := fs.String("password", "", "password (prompted when omitted)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		pw, err := passwordOrPrompt(*password, in, out)
		if err != nil {
			return err
		}
		p, err := c.Login(ctx, *email, pw)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "logged in as %s <%s>\n", p.Name, p.Email)
		return sf.Save(c.Session())

	case "logout":
		c.Logout()
		fmt.Fprintln(out, "logged out")
		return sf.Clear()

	case "me":
		u, err := c.Me(ctx)
		if err != nil {
			return clearOnUnauthorized(sf, err)
		}
		fmt.Fprintf(out, "%s <%s> id=%s since=%s\n", u.Name, u.Email, u.ID, u.CreatedAt.Format(time.DateOnly))
		return nil

	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		filter := fs.String("filter", "", "completed | pending")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		items, err := c.ListTodos(ctx, *filter)
		if err != nil {
			return clearOnUnauthorized(sf, err)
		}
		printTodos(out, items)
		return nil

	case "add":
		fs := flag.NewFlagSet("add", flag.ContinueOnError)
		title := fs.String("title", "", "title")
		desc := fs.String("description", "", "description")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		t, err := c.CreateTodo(ctx, todo.CreateTodoRequest{Title: *title, Description: *desc})
		if err != nil {
			return clearOnUnauthorized(sf, err)
		}
		fmt.Fprintf(out, "added %s\n", t.ID)
		return nil

	case "edit":
		fs := flag.NewFlagSet("edit", flag.ContinueOnError)
		id := fs.String("id", "", "todo id")
		title := fs.String("title", "", "new title")
		desc := fs.String("description", "", "new description")
		completed := fs.String("completed", "", "true | false")
		if err := fs.Parse(rest); err != nil {
			return err
		}

		var req todo.UpdateTodoRequest
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "title":
				req.Title = title
			case "description":
				req.Description = desc
			}
		})
		if *completed != "" {
			v := strings.EqualFold(*completed, "true")
			req.Completed = &v
		}

		t, err := c.UpdateTodo(ctx, *id, req)
		if err != nil {
			return clearOnUnauthorized(sf, err)
		}
		printTodos(out, []todo.Todo{t})
		return nil

	case "rm":
		id, err := parseID("rm", rest)
		if err != nil {
			return err
		}
		if err := c.DeleteTodo(ctx, id); err != nil {
			return clearOnUnauthorized(sf, err)
		}
		fmt.Fprintf(out, "deleted %s\n", id)
		return nil

	case "toggle":
		id, err := parseID("toggle", rest)
		if err != nil {
			return err
		}
		t, err := c.ToggleTodo(ctx, id)
		if err != nil {
			return clearOnUnauthorized(sf, err)
		}
		printTodos(out, []todo.Todo{t})
		return nil

	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func sessionFile(path string) (client.SessionFile, error) {
	if path != "" {
		return client.SessionFile{Path: path}, nil
	}
	return client.DefaultSessionFile()
}

// clearOnUnauthorized drops a session the server no longer accepts.
func clearOnUnauthorized(sf client.SessionFile, err error) error {
	if client.IsUnauthenticated(err) {
		_ = sf.Clear()
	}
	return err
}

func parseID(name string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	id := fs.String("id", "", "todo id")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if *id == "" && fs.NArg() > 0 {
		*id = fs.Arg(0)
	}
	if *id == "" {
		return "", errors.New("missing -id")
	}
	return *id, nil
}

func passwordOrPrompt(given string, in *os.File, out io.Writer) (string, error) {
	if given != "" {
		return given, nil
	}

	fmt.Fprint(out, "Password: ")
	defer fmt.Fprintln(out)

	if term.IsTerminal(int(in.Fd())) {
		b, err := term.ReadPassword(int(in.Fd()))
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printTodos(out io.Writer, items []todo.Todo) {
	if len(items) == 0 {
		fmt.Fprintln(out, "no todos")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tTITLE\tCREATED")
	for _, t := range items {
		done := " "
		if t.Completed {
			done = "x"
		}
		fmt.Fprintf(tw, "%s\t[%s]\t%s\t%s\n", t.ID, done, t.Title, t.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
