package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"pdfchat/internal/api"
	"pdfchat/internal/app"
	"pdfchat/internal/auth"
	"pdfchat/internal/model"
	"pdfchat/internal/poller"
)

const chunkPreviewLen = 200

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

// App is the interactive terminal front end: a command loop over the
// same workflow the browser dashboard exposed.
type App struct {
	auth   *auth.Service
	tokens *auth.TokenProvider
	docs   *app.DocumentService
	logger *zap.Logger

	in    *bufio.Scanner
	out   io.Writer
	outMu sync.Mutex
}

func New(authService *auth.Service, tokens *auth.TokenProvider, docs *app.DocumentService, in io.Reader, out io.Writer, logger *zap.Logger) *App {
	a := &App{
		auth:   authService,
		tokens: tokens,
		docs:   docs,
		logger: logger,
		in:     bufio.NewScanner(in),
		out:    out,
	}
	tokens.OnLogout(func() {
		a.printf("%s", red("Session expired. Please login again."))
	})
	return a
}

func (a *App) Run(ctx context.Context) error {
	if message, err := a.docs.Ping(ctx); err == nil {
		a.printf("%s", faint(message))
	} else {
		a.logger.Warn("connectivity probe failed", zap.Error(err))
		a.printf("%s", yellow("Backend not reachable yet; commands may fail."))
	}
	if a.tokens.LoggedIn() {
		a.printf("Logged in from stored credentials. Type %s for commands.", faint("help"))
	} else {
		a.printf("Not logged in. Use %s first. Type %s for commands.", faint("login <user> <password>"), faint("help"))
	}

	for {
		fmt.Fprint(a.out, "> ")
		if !a.in.Scan() {
			a.docs.Close()
			return a.in.Err()
		}
		line := strings.TrimSpace(a.in.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		command, args := fields[0], fields[1:]
		if command == "quit" || command == "exit" {
			a.docs.Close()
			return nil
		}
		if err := a.dispatch(ctx, command, args, line); err != nil {
			a.printf("%s", red(api.UserMessage(err, err.Error())))
		}
	}
}

func (a *App) dispatch(ctx context.Context, command string, args []string, line string) error {
	switch command {
	case "help":
		a.printHelp()
		return nil
	case "ping":
		message, err := a.docs.Ping(ctx)
		if err != nil {
			return err
		}
		a.printf("%s", message)
		return nil
	case "login":
		if len(args) != 2 {
			return errors.New("usage: login <username> <password>")
		}
		if err := a.auth.Login(ctx, args[0], args[1]); err != nil {
			return err
		}
		a.printf("%s", green("Logged in."))
		return nil
	case "register":
		if len(args) != 3 {
			return errors.New("usage: register <username> <email> <password>")
		}
		if err := a.auth.Register(ctx, args[0], args[1], args[2]); err != nil {
			return err
		}
		a.printf("%s", green("Registered! You can login now."))
		return nil
	case "whoami":
		return a.whoami()
	case "logout":
		a.docs.Deselect()
		if err := a.auth.Logout(); err != nil {
			return err
		}
		a.printf("Logged out.")
		return nil
	case "list":
		return a.list(ctx)
	case "upload":
		if len(args) != 1 {
			return errors.New("usage: upload <path-to-pdf>")
		}
		return a.upload(ctx, args[0])
	case "select":
		if len(args) != 1 {
			return errors.New("usage: select <document-id>")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return errors.New("document id must be a number")
		}
		return a.selectDocument(ctx, id)
	case "status":
		return a.status()
	case "preview":
		return a.preview(ctx)
	case "chunks":
		return a.chunks(ctx)
	case "reprocess":
		return a.reprocess(ctx)
	case "ask":
		question := strings.TrimSpace(strings.TrimPrefix(line, "ask"))
		return a.ask(ctx, question)
	default:
		return fmt.Errorf("unknown command %q, try help", command)
	}
}

func (a *App) whoami() error {
	info, err := a.auth.Whoami()
	if err != nil {
		return err
	}
	expiry := "never"
	if !info.ExpiresAt.IsZero() {
		expiry = info.ExpiresAt.Local().Format("2006-01-02 15:04:05")
		if info.Expired() {
			expiry += yellow(" (expired)")
		}
	}
	a.printf("user id %d, token expires %s", info.UserID, expiry)
	return nil
}

func (a *App) list(ctx context.Context) error {
	docs, err := a.docs.List(ctx)
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		a.printf("No PDFs uploaded yet")
		return nil
	}
	for _, doc := range docs {
		marker := ""
		if selected, ok := a.docs.Selected(); ok && selected.ID == doc.ID {
			marker = " *"
		}
		a.printf("[%d] %s  %s%s", doc.ID, doc.Title, renderStatus(doc.ProcessingStatus), marker)
	}
	return nil
}

func (a *App) upload(ctx context.Context, path string) error {
	result, err := a.docs.Upload(ctx, path)
	if err != nil {
		return err
	}
	a.printf("%s", green(result.Message))
	// Refresh the list so the new document shows up right away.
	return a.list(ctx)
}

func (a *App) selectDocument(ctx context.Context, id int64) error {
	doc, updates, err := a.docs.Select(ctx, id)
	if err != nil {
		return err
	}
	a.printf("Selected %s  %s", doc.Title, renderStatus(doc.ProcessingStatus))

	go a.follow(ctx, doc, updates)
	return nil
}

// follow drains one poll run, reporting transitions and loading the
// preview once the document turns ready.
func (a *App) follow(ctx context.Context, doc model.Document, updates <-chan poller.Update) {
	for u := range updates {
		a.docs.ApplyUpdate(u)
		switch {
		case u.Exhausted:
			a.printf("%s", yellow("Processing still in progress..."))
		case u.Terminal && u.Status == model.StatusDone:
			a.printf("%s", green(fmt.Sprintf("%s is ready", doc.Title)))
			a.loadPreview(ctx, doc)
		case u.Terminal && u.Status == model.StatusFailed:
			message := u.ProcessingError
			if message == "" {
				message = "Processing failed"
			}
			a.printf("%s", red(message))
		default:
			a.printf("%s", faint(fmt.Sprintf("%s: %s (attempt %d)", doc.Title, u.Status, u.Attempt)))
		}
	}
}

func (a *App) loadPreview(ctx context.Context, doc model.Document) {
	handle, err := a.docs.Preview(ctx)
	if err != nil {
		a.printf("%s", red(api.UserMessage(err, "PDF view failed")))
		return
	}
	a.printf("Preview saved to %s (%d bytes)", handle.Path(), handle.Size())
}

func (a *App) status() error {
	doc, ok := a.docs.Selected()
	if !ok {
		return app.ErrNoSelection
	}
	a.printf("%s  %s", doc.Title, renderStatus(doc.ProcessingStatus))
	if doc.ProcessingError != "" {
		a.printf("%s", red(doc.ProcessingError))
	}
	return nil
}

func (a *App) preview(ctx context.Context) error {
	doc, ok := a.docs.Selected()
	if !ok {
		return app.ErrNoSelection
	}
	a.loadPreview(ctx, doc)
	return nil
}

func (a *App) chunks(ctx context.Context) error {
	list, err := a.docs.Chunks(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.printf("No chunks found")
		return nil
	}
	a.printf("PDF Chunks (%d)", len(list))
	for i, chunk := range list {
		text := chunk.Text
		if len(text) > chunkPreviewLen {
			text = text[:chunkPreviewLen] + "..."
		}
		a.printf("%s %s", faint(fmt.Sprintf("Chunk %d", i+1)), text)
	}
	return nil
}

func (a *App) reprocess(ctx context.Context) error {
	doc, ok := a.docs.Selected()
	if !ok {
		return app.ErrNoSelection
	}
	message, updates, err := a.docs.Reprocess(ctx)
	if err != nil {
		return err
	}
	a.printf("%s", message)

	go a.follow(ctx, doc, updates)
	return nil
}

func (a *App) ask(ctx context.Context, question string) error {
	session, ok := a.docs.Session()
	if !ok {
		return app.ErrNoSelection
	}
	before := len(session.Turns())
	if err := session.Ask(ctx, question); err != nil {
		return err
	}
	turns := session.Turns()
	if len(turns) == before {
		// Whitespace-only input: nothing was submitted.
		return nil
	}
	last := turns[len(turns)-1]
	if last.Role == model.RoleAssistant {
		a.printf("%s %s", green("assistant:"), last.Text)
	}
	return nil
}

func (a *App) printHelp() {
	a.printf(`commands:
  login <user> <password>         authenticate
  register <user> <email> <pass>  create an account
  whoami                          show token owner and expiry
  logout                          drop stored credentials
  list                            list your documents
  upload <path>                   upload a PDF
  select <id>                     pick a document (follows processing)
  status                          show the selected document
  preview                         re-fetch the selected document's bytes
  chunks                          show extracted chunks
  reprocess                       trigger reprocessing
  ask <question>                  ask about the selected document
  ping                            check backend connectivity
  quit`)
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format+"\n", args...)
}

func renderStatus(status model.ProcessingStatus) string {
	switch status {
	case model.StatusDone:
		return green(string(status))
	case model.StatusFailed:
		return red(string(status))
	default:
		return yellow(string(status))
	}
}
