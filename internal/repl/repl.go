// Package repl is the terminal front end: a line-editing prompt over the same
// chat service the HTTP API uses.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/suPer8Hu/ai-chatbot/internal/chat"
)

const prompt = "you> "

type REPL struct {
	svc         *chat.Service
	out         io.Writer
	historyFile string
}

func New(svc *chat.Service, out io.Writer, historyFile string) *REPL {
	return &REPL{svc: svc, out: out, historyFile: historyFile}
}

// Run reads lines until /quit, Ctrl+C or EOF.
func (r *REPL) Run(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	r.loadHistory(line)
	defer r.saveHistory(line)

	r.printWelcome()
	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}

		cont, err := r.Handle(ctx, input)
		if err != nil {
			fmt.Fprintf(r.out, "[error] %v\n", err)
		}
		if !cont {
			return nil
		}
	}
}

// Handle runs one line of input. It reports false once the user asked to quit.
// Messages are sent as typed; trimming only decides blank lines and commands.
func (r *REPL) Handle(ctx context.Context, input string) (bool, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return true, nil
	}
	if strings.HasPrefix(trimmed, "/") {
		return r.command(ctx, trimmed)
	}
	return true, r.send(ctx, input)
}

func (r *REPL) command(ctx context.Context, input string) (bool, error) {
	parts := strings.Fields(input)
	args := parts[1:]

	switch strings.ToLower(parts[0]) {
	case "/quit", "/q", "/exit":
		return false, nil

	case "/help", "/h", "/":
		r.printHelp()

	case "/new", "/n":
		sess := r.svc.CreateSession(ctx)
		fmt.Fprintf(r.out, "[session %d created]\n", sess.ID)
		r.printTranscript()

	case "/list", "/l":
		r.printSessions()

	case "/switch", "/s":
		id, err := idArg(args)
		if err != nil {
			return true, err
		}
		if err := r.svc.SelectSession(ctx, id); err != nil {
			return true, err
		}
		fmt.Fprintf(r.out, "[switched to session %d]\n", id)
		r.printTranscript()

	case "/delete", "/d":
		id, err := idArg(args)
		if err != nil {
			return true, err
		}
		r.svc.DeleteSession(ctx, id)
		fmt.Fprintf(r.out, "[session %d deleted]\n", id)
		if active, ok := r.svc.Store().Active(); ok {
			fmt.Fprintf(r.out, "[active session %d]\n", active.ID)
		} else {
			fmt.Fprintln(r.out, "[no sessions left; /new starts one]")
		}

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", parts[0])
	}
	return true, nil
}

func (r *REPL) send(ctx context.Context, text string) error {
	res, err := r.svc.Send(ctx, text)
	if err != nil {
		return err
	}
	if res.Dropped {
		return nil
	}
	fmt.Fprintf(r.out, "ai> %s\n", res.Reply.Content)
	return nil
}

func idArg(args []string) (uint64, error) {
	if len(args) != 1 {
		return 0, errors.New("expected one session id")
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid session id %q", args[0])
	}
	return id, nil
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "AI Chatbot. Type /help for commands, /quit to leave.")
	r.printTranscript()
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out, "  /new          start a new session")
	fmt.Fprintln(r.out, "  /list         list sessions, newest first")
	fmt.Fprintln(r.out, "  /switch <id>  make a session active")
	fmt.Fprintln(r.out, "  /delete <id>  delete a session")
	fmt.Fprintln(r.out, "  /quit         leave")
}

func (r *REPL) printSessions() {
	store := r.svc.Store()
	sessions := store.Sessions()
	if len(sessions) == 0 {
		fmt.Fprintln(r.out, "[no sessions]")
		return
	}
	active, hasActive := store.Active()
	for _, s := range sessions {
		mark := " "
		if hasActive && s.ID == active.ID {
			mark = "*"
		}
		fmt.Fprintf(r.out, "%s %3d  %-12s %s\n", mark, s.ID, s.Title, s.Preview)
	}
}

func (r *REPL) printTranscript() {
	msgs, err := r.svc.Store().Messages()
	if err != nil {
		return
	}
	for _, m := range msgs {
		who := "ai"
		if m.Role == chat.RoleUser {
			who = "you"
		}
		fmt.Fprintf(r.out, "%s> %s\n", who, m.Content)
	}
}

func (r *REPL) loadHistory(line *liner.State) {
	if r.historyFile == "" {
		return
	}
	if f, err := os.Open(r.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
}

func (r *REPL) saveHistory(line *liner.State) {
	if r.historyFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = line.WriteHistory(f)
}
