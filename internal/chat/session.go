package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"pdfchat/internal/api"
	"pdfchat/internal/model"
)

// ErrBusy rejects a question while another one is still in flight.
// Turns are strictly serialized within a session.
var ErrBusy = errors.New("a question is already in flight")

// Session is the chat transcript for exactly one document. It is
// created when the document is selected and discarded, transcript and
// all, when the selection changes.
type Session struct {
	api        *api.Client
	documentID int64

	mu    sync.Mutex
	busy  bool
	turns []model.ChatTurn
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

func NewSession(apiClient *api.Client, documentID int64) *Session {
	return &Session{
		api:        apiClient,
		documentID: documentID,
	}
}

func (s *Session) DocumentID() int64 {
	return s.documentID
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Turns returns a copy of the transcript in occurrence order.
func (s *Session) Turns() []model.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Ask submits one question/answer turn. The user turn is echoed into
// the transcript before the network call resolves and is never rolled
// back; a failed call appends an assistant turn carrying the error
// message instead of an answer. Empty or whitespace questions are
// ignored outright.
//
// A 401 is not turned into a transcript entry: it propagates so the
// owner can fall back to the login flow.
func (s *Session) Ask(ctx context.Context, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.busy = true
	s.turns = append(s.turns, model.ChatTurn{Role: model.RoleUser, Text: question})
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	var resp askResponse
	err := s.api.PostJSON(ctx, fmt.Sprintf("/api/ask_pdf/%d/", s.documentID), askRequest{Question: question}, &resp)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return err
		}
		s.append(model.RoleAssistant, api.UserMessage(err, "Ask failed"))
		return nil
	}

	s.append(model.RoleAssistant, resp.Answer)
	return nil
}

func (s *Session) append(role model.Role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, model.ChatTurn{Role: role, Text: text})
}
