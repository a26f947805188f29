package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"alfredoptarigan/resume-registry/internal/models"
	"alfredoptarigan/resume-registry/internal/services"
)

const usage = `Commands:
  set <field> <value>   fill a draft field (name, email, contact, address, skills, qualification)
  draft                 show the draft
  add                   add the draft as a new resume
  delete <id>           delete a resume
  edit <id>             open the Update Name dialog of a resume
  name <id> <text>      type into an open Update Name dialog
  update <id>           submit the Update Name dialog
  cancel <id>           close the Update Name dialog
  search [query]        show resumes whose name starts with query
  list                  redraw the list
  status                show whether the list is live and the active search
  help                  show this help
  quit                  exit
`

// shell maps text commands onto the registry view. Output from commands
// and from snapshot redraws is serialized.
type shell struct {
	view *services.RegistryView
	out  io.Writer
	mu   sync.Mutex
}

func newShell(out io.Writer) *shell {
	return &shell{out: out}
}

func (s *shell) attach(view *services.RegistryView) {
	s.view = view
}

// redraw is the view's change hook.
func (s *shell) redraw([]models.Resume) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Render(s.out)
	fmt.Fprint(s.out, "> ")
}

func (s *shell) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

func (s *shell) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	errs := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- err
			return
		}
		errs <- io.EOF
	}()

	s.printf("%s> ", usage)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			return err
		case line := <-lines:
			if quit := s.execute(ctx, line); quit {
				return nil
			}
			s.printf("> ")
		}
	}
}

// execute runs one command and reports whether the shell should exit.
// Store failures are already logged by the view and are not shown here.
func (s *shell) execute(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	parts := strings.SplitN(trimmed, " ", 3)
	cmd := parts[0]
	arg := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}

	switch cmd {
	case "":
	case "quit", "exit":
		return true
	case "help":
		s.printf("%s", usage)
	case "list":
		s.redrawNow()
	case "status":
		s.printStatus()
	case "draft":
		s.printDraft()
	case "set":
		field, err := models.ParseField(arg(1))
		if err != nil {
			s.printf("%v\n", err)
			return false
		}
		if err := s.view.SetDraftField(field, arg(2)); err != nil {
			s.printf("%v\n", err)
		}
	case "add":
		s.view.SubmitDraft(ctx)
	case "delete":
		if id, ok := s.parseID(arg(1)); ok {
			s.view.DeleteResume(ctx, id)
		}
	case "edit":
		if id, ok := s.parseID(arg(1)); ok {
			if err := s.view.OpenEdit(id); err != nil {
				s.printf("%v\n", err)
				return false
			}
			s.redrawNow()
		}
	case "name":
		if id, ok := s.parseID(arg(1)); ok {
			if err := s.view.SetEditInput(id, arg(2)); err != nil {
				s.printf("%v\n", err)
			}
		}
	case "update":
		if id, ok := s.parseID(arg(1)); ok {
			err := s.view.SubmitEdit(ctx, id)
			if errors.Is(err, services.ErrEditNotOpen) || errors.Is(err, services.ErrResumeNotInView) {
				s.printf("%v\n", err)
			}
		}
	case "cancel":
		if id, ok := s.parseID(arg(1)); ok {
			s.view.CloseEdit(id)
			s.redrawNow()
		}
	case "search":
		query := strings.TrimPrefix(strings.TrimPrefix(trimmed, "search"), " ")
		s.view.Search(ctx, query)
	default:
		s.printf("unknown command %q, type help\n", cmd)
	}
	return false
}

func (s *shell) redrawNow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Render(s.out)
}

func (s *shell) printStatus() {
	live := "paused"
	if s.view.Active() {
		live = "live"
	}
	query := s.view.Query()
	if query == "" {
		s.printf("list: %s, no search\n", live)
		return
	}
	s.printf("list: %s, search: %q\n", live, query)
}

func (s *shell) printDraft() {
	draft := s.view.Draft()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range models.AllFields {
		fmt.Fprintf(s.out, "%s: %s\n", services.FieldLabel(f), draft.Get(f))
	}
}

func (s *shell) parseID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		s.printf("invalid resume id %q\n", raw)
		return uuid.Nil, false
	}
	return id, true
}
