// Package relay sequences the idle→busy→ready/error status machine around a
// single in-flight model call, folding session continuity into each request.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cliprelay/cli/internal/session"
	"github.com/cliprelay/cli/internal/state"
	"github.com/cliprelay/cli/pkg/llm"
)

// Relay owns the request lifecycle: state load, phase transitions, request
// assembly, the one network call, and persistence of the outcome.
type Relay struct {
	store  *state.Store
	client llm.Client

	now func() time.Time
	pid int
}

// New wires a relay over the given store and model client.
func New(store *state.Store, client llm.Client) *Relay {
	return &Relay{
		store:  store,
		client: client,
		now:    time.Now,
		pid:    os.Getpid(),
	}
}

// Input is one user-triggered send.
type Input struct {
	Text  string
	Image *llm.Image

	// ModelOverride replaces the configured model for this call only.
	ModelOverride string
	// TimeoutOverride replaces the configured request timeout for this call.
	TimeoutOverride time.Duration
}

// Outcome reports a successful send.
type Outcome struct {
	Answer       state.Answer
	InputTokens  int64
	OutputTokens int64
	SessionMode  session.Mode
	SessionTurns int
}

// Send performs one request: idle→busy, model call with timeout, then
// busy→ready on success or busy→error on failure. The outcome (answer,
// updated continuity, badge) is persisted before returning.
func (r *Relay) Send(ctx context.Context, in Input) (*Outcome, error) {
	doc, err := r.store.Load()
	if err != nil {
		return nil, err
	}

	// Input validation happens before the busy transition so a rejected
	// request never leaves an error badge behind.
	if in.Image != nil && doc.Session != nil && doc.Session.Mode == session.ModeServer {
		return nil, llm.ErrImageWithServerContext
	}

	timeout := time.Duration(doc.Settings.TimeoutSeconds) * time.Second
	if in.TimeoutOverride > 0 {
		timeout = in.TimeoutOverride
	}

	if err := beginBusy(doc, r.pid, r.now(), staleFactor*timeout); err != nil {
		return nil, err
	}
	if err := r.store.Save(doc); err != nil {
		return nil, err
	}

	req := buildRequest(doc, in)
	requestID := ulid.Make().String()
	slog.Debug("sending model request",
		"request_id", requestID,
		"model", req.Model,
		"server_context", req.ServerContext,
		"history_turns", len(req.History)/2,
		"has_image", req.Image != nil,
		"timeout", timeout,
	)

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := r.client.Complete(callCtx, req)
	now := r.now()
	if err != nil {
		markError(doc, err.Error(), now)
		if saveErr := r.store.Save(doc); saveErr != nil {
			slog.Debug("failed to persist error phase", "error", saveErr)
		}
		return nil, err
	}

	answer := state.Answer{
		ID:         ulid.Make().String(),
		Text:       resp.Text,
		Model:      resp.Model,
		ReceivedAt: now,
	}
	doc.Answer = &answer
	foldContinuity(doc, in, resp, now)
	markReady(doc, now)

	if err := r.store.Save(doc); err != nil {
		return nil, fmt.Errorf("answer received but state could not be saved: %w", err)
	}

	out := &Outcome{
		Answer:       answer,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		SessionMode:  session.ModeOff,
	}
	if doc.Session != nil {
		out.SessionMode = doc.Session.Mode
		out.SessionTurns = doc.Session.Turns()
	}
	return out, nil
}

// TakeAnswer returns the stored answer and transitions ready→idle, the badge
// equivalent of the user collecting the result.
func (r *Relay) TakeAnswer() (*state.Answer, error) {
	doc, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	if doc.Answer == nil {
		return nil, ErrNoAnswer
	}
	answer := *doc.Answer
	if doc.Badge.Phase == state.PhaseReady {
		markIdle(doc, r.now())
		if err := r.store.Save(doc); err != nil {
			return nil, err
		}
	}
	return &answer, nil
}

// ClearError acknowledges an error phase, returning the badge to idle. It
// reports whether there was an error to clear.
func (r *Relay) ClearError() (bool, error) {
	doc, err := r.store.Load()
	if err != nil {
		return false, err
	}
	if doc.Badge.Phase != state.PhaseError {
		return false, nil
	}
	markIdle(doc, r.now())
	if err := r.store.Save(doc); err != nil {
		return false, err
	}
	return true, nil
}

// StartSession begins a new session in the given mode, discarding any prior
// continuity state.
func (r *Relay) StartSession(mode session.Mode) (*session.Session, error) {
	doc, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	if doc.Badge.Phase == state.PhaseBusy {
		return nil, ErrBusy
	}
	doc.Session = session.New(mode, r.now())
	if err := r.store.Save(doc); err != nil {
		return nil, err
	}
	return doc.Session, nil
}

// EndSession drops all continuity state.
func (r *Relay) EndSession() error {
	doc, err := r.store.Load()
	if err != nil {
		return err
	}
	if doc.Session == nil {
		return ErrNoSession
	}
	doc.Session = nil
	return r.store.Save(doc)
}

// buildRequest assembles the model request from settings, the active session
// and the current input. With no session the call is one-shot.
func buildRequest(doc *state.Document, in Input) llm.Request {
	req := llm.Request{
		Model:  doc.Settings.Model,
		System: doc.Settings.SystemPrompt,
		Text:   in.Text,
		Image:  in.Image,
	}
	if in.ModelOverride != "" {
		req.Model = in.ModelOverride
	}

	if doc.Session == nil {
		return req
	}
	switch doc.Session.Mode {
	case session.ModeHistory:
		for _, m := range doc.Session.Context(doc.Settings.MaxHistoryTurns) {
			req.History = append(req.History, llm.Turn{Role: m.Role, Content: m.Content})
		}
	case session.ModeServer:
		req.ServerContext = true
		req.PreviousResponseID = doc.Session.PreviousResponseID
	}
	return req
}

// foldContinuity updates the active session from a successful response:
// history mode appends the exchange and trims to budget, server mode advances
// the previous-response pointer.
func foldContinuity(doc *state.Document, in Input, resp *llm.Response, now time.Time) {
	if doc.Session == nil {
		return
	}

	userContent := in.Text
	if in.Image != nil {
		if userContent != "" {
			userContent += "\n"
		}
		userContent += "[image attached]"
	}

	doc.Session.Append(
		session.Message{ID: ulid.Make().String(), Role: session.RoleUser, Content: userContent, At: now},
		session.Message{ID: ulid.Make().String(), Role: session.RoleAssistant, Content: resp.Text, At: now},
	)
	doc.Session.Trim(doc.Settings.MaxHistoryTurns)
	doc.Session.Advance(resp.ID)
}
