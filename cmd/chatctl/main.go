// Command chatctl manages chat sessions from the terminal. It calls the HTTP
// API and keeps working against an on-device store when the API is down.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/orderlens/order-analyzer/internal/client"
	"github.com/orderlens/order-analyzer/internal/core"
	"github.com/orderlens/order-analyzer/internal/logger"
	"github.com/orderlens/order-analyzer/internal/store"
)

const usage = `usage: chatctl [flags] <command> [args]

commands:
  list              list chat sessions
  get <id>          print a session as JSON
  delete <id>       delete a session
  clear             delete every session
  say <id> <text>   send a message in a session and save the reply
`

func main() {
	apiURL := flag.String("api", envOr("ORDER_ANALYZER_API", "http://localhost:8080/api"), "base URL of the API")
	localPath := flag.String("local", client.DefaultLocalPath(), "path of the on-device fallback store")
	verbose := flag.Bool("v", false, "log fallback decisions")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log := logger.Nop()
	if *verbose {
		l, err := logger.New("dev", "DEBUG")
		if err == nil {
			log = l
		}
	}

	local, err := client.OpenLocal(*localPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatctl: %v\n", err)
		os.Exit(1)
	}
	defer local.Close()

	remote := client.NewRemote(*apiURL, nil)
	c := &cli{
		facade: client.NewFacade(remote, local, log),
		remote: remote,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	if err := c.run(context.Background(), flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "chatctl: %v\n", err)
		os.Exit(1)
	}
}

type cli struct {
	facade *client.Facade
	remote *client.Remote
	stdout io.Writer
	stderr io.Writer
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("no command given")
	}
	switch args[0] {
	case "list":
		sessions, res, err := c.facade.ListSessions(ctx)
		if err != nil {
			return err
		}
		for _, s := range sessions {
			fmt.Fprintf(c.stdout, "%s\t%s\t%d messages\t%s\n", s.ID, s.UpdatedAt.Local().Format(time.DateTime), len(s.Messages), s.Title)
		}
		c.report(res)
	case "get":
		if len(args) != 2 {
			return errors.New("get needs a session id")
		}
		s, res, err := c.facade.GetSession(ctx, args[1])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return err
		}
		c.report(res)
	case "delete":
		if len(args) != 2 {
			return errors.New("delete needs a session id")
		}
		res, err := c.facade.DeleteSession(ctx, args[1])
		if err != nil {
			return err
		}
		c.report(res)
	case "clear":
		res, err := c.facade.ClearSessions(ctx)
		if err != nil {
			return err
		}
		c.report(res)
	case "say":
		if len(args) < 3 {
			return errors.New("say needs a session id and a message")
		}
		return c.say(ctx, args[1], strings.Join(args[2:], " "))
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func (c *cli) say(ctx context.Context, id, text string) error {
	session, _, err := c.facade.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		session = &store.ChatSession{ID: id, CreatedAt: time.Now()}
	} else if err != nil {
		return err
	}

	session.Messages = append(session.Messages, store.ChatMessage{
		ID:        uuid.NewString(),
		Role:      store.RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	})

	var reply strings.Builder
	err = c.remote.Chat(ctx, session.Messages, func(fragment string) {
		reply.WriteString(fragment)
		fmt.Fprint(c.stdout, fragment)
	})
	fmt.Fprintln(c.stdout)
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	session.Messages = append(session.Messages, store.ChatMessage{
		ID:        uuid.NewString(),
		Role:      store.RoleAssistant,
		Content:   reply.String(),
		Timestamp: time.Now(),
	})
	if session.Title == "" {
		session.Title = core.DeriveTitle(session.Messages, time.Now())
	}

	res, err := c.facade.SaveSession(ctx, session)
	if err != nil {
		return err
	}
	c.report(res)
	return nil
}

func (c *cli) report(res client.Result) {
	if res.Degraded() {
		fmt.Fprintf(c.stderr, "(served from %s store: %v)\n", res.Strategy, res.RemoteErr)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
