package relay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliprelay/cli/internal/session"
	"github.com/cliprelay/cli/internal/state"
	"github.com/cliprelay/cli/pkg/llm"
)

// fakeClient records requests and returns canned responses.
type fakeClient struct {
	requests []llm.Request
	respond  func(ctx context.Context, req llm.Request) (*llm.Response, error)
}

func (f *fakeClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	if f.respond != nil {
		return f.respond(ctx, req)
	}
	return &llm.Response{ID: "resp_1", Text: "answer to: " + req.Text, Model: req.Model}, nil
}

func newTestRelay(t *testing.T, client llm.Client) (*Relay, *state.Store) {
	t.Helper()
	store := state.NewStore(filepath.Join(t.TempDir(), "state.json"))
	return New(store, client), store
}

func TestSendOneShot(t *testing.T) {
	fake := &fakeClient{}
	r, store := newTestRelay(t, fake)

	out, err := r.Send(context.Background(), Input{Text: "what is 2+2?"})

	require.NoError(t, err)
	assert.Equal(t, "answer to: what is 2+2?", out.Answer.Text)
	assert.NotEmpty(t, out.Answer.ID)
	assert.Equal(t, session.ModeOff, out.SessionMode)

	require.Len(t, fake.requests, 1)
	assert.Empty(t, fake.requests[0].History)
	assert.False(t, fake.requests[0].ServerContext)
	assert.Equal(t, state.DefaultModel, fake.requests[0].Model)

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, state.PhaseReady, doc.Badge.Phase)
	assert.Equal(t, out.Answer.Text, doc.Answer.Text)
	assert.Nil(t, doc.Session)
}

func TestSendModelOverride(t *testing.T) {
	fake := &fakeClient{}
	r, _ := newTestRelay(t, fake)

	_, err := r.Send(context.Background(), Input{Text: "hi", ModelOverride: "gpt-4o-mini"})

	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", fake.requests[0].Model)
}

func TestSendWhileBusyIsRefused(t *testing.T) {
	fake := &fakeClient{}
	r, store := newTestRelay(t, fake)

	doc, err := store.Load()
	require.NoError(t, err)
	// Fresh busy record owned by a live process (the test runner's parent),
	// so no staleness rule applies.
	doc.Badge = state.Badge{Phase: state.PhaseBusy, ChangedAt: time.Now(), OwnerPID: os.Getppid()}
	require.NoError(t, store.Save(doc))

	_, err = r.Send(context.Background(), Input{Text: "hi"})

	assert.ErrorIs(t, err, ErrBusy)
	assert.Empty(t, fake.requests)
}

func TestSendReclaimsStaleBusy(t *testing.T) {
	fake := &fakeClient{}
	r, store := newTestRelay(t, fake)

	doc, err := store.Load()
	require.NoError(t, err)
	// Busy record far older than the reclaim window, owned by a live process.
	doc.Badge = state.Badge{Phase: state.PhaseBusy, ChangedAt: time.Now().Add(-24 * time.Hour), OwnerPID: 1}
	require.NoError(t, store.Save(doc))

	_, err = r.Send(context.Background(), Input{Text: "hi"})

	require.NoError(t, err)
	require.Len(t, fake.requests, 1)
}

func TestSendErrorPhasePreservesSessionAndAnswer(t *testing.T) {
	boom := errors.New("rate limited")
	fake := &fakeClient{respond: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		return nil, boom
	}}
	r, store := newTestRelay(t, fake)

	_, err := r.StartSession(session.ModeHistory)
	require.NoError(t, err)
	doc, err := store.Load()
	require.NoError(t, err)
	doc.Answer = &state.Answer{ID: "old", Text: "previous answer"}
	doc.Session.Append(
		session.Message{Role: session.RoleUser, Content: "q"},
		session.Message{Role: session.RoleAssistant, Content: "a"},
	)
	require.NoError(t, store.Save(doc))

	_, err = r.Send(context.Background(), Input{Text: "hi"})

	assert.ErrorIs(t, err, boom)
	doc, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.Equal(t, state.PhaseError, doc.Badge.Phase)
	assert.Equal(t, "rate limited", doc.Badge.Detail)
	// A failed call must not corrupt continuity or the last good answer.
	assert.Equal(t, 1, doc.Session.Turns())
	assert.Equal(t, "previous answer", doc.Answer.Text)
}

func TestSendTimeoutRecordsError(t *testing.T) {
	fake := &fakeClient{respond: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	r, store := newTestRelay(t, fake)

	_, err := r.Send(context.Background(), Input{Text: "hi", TimeoutOverride: 5 * time.Millisecond})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	doc, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.Equal(t, state.PhaseError, doc.Badge.Phase)
}

func TestSendCanceledRecordsError(t *testing.T) {
	fake := &fakeClient{respond: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	r, store := newTestRelay(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := r.Send(ctx, Input{Text: "hi"})

	assert.ErrorIs(t, err, context.Canceled)
	doc, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.Equal(t, state.PhaseError, doc.Badge.Phase)
}

func TestHistoryContinuity(t *testing.T) {
	fake := &fakeClient{}
	r, store := newTestRelay(t, fake)

	_, err := r.StartSession(session.ModeHistory)
	require.NoError(t, err)

	_, err = r.Send(context.Background(), Input{Text: "first"})
	require.NoError(t, err)
	out, err := r.Send(context.Background(), Input{Text: "second"})
	require.NoError(t, err)

	assert.Equal(t, session.ModeHistory, out.SessionMode)
	assert.Equal(t, 2, out.SessionTurns)

	// Second request carries the first exchange.
	require.Len(t, fake.requests, 2)
	second := fake.requests[1]
	require.Len(t, second.History, 2)
	assert.Equal(t, "first", second.History[0].Content)
	assert.Equal(t, "answer to: first", second.History[1].Content)
	assert.False(t, second.ServerContext)

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Session.Turns())
	assert.Empty(t, doc.Session.PreviousResponseID)
}

func TestHistoryTrimBudget(t *testing.T) {
	fake := &fakeClient{}
	r, store := newTestRelay(t, fake)

	doc, err := store.Load()
	require.NoError(t, err)
	doc.Settings.MaxHistoryTurns = 2
	require.NoError(t, store.Save(doc))
	_, err = r.StartSession(session.ModeHistory)
	require.NoError(t, err)

	for _, text := range []string{"a", "b", "c", "d"} {
		_, err = r.Send(context.Background(), Input{Text: text})
		require.NoError(t, err)
	}

	doc, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Session.Turns())
	assert.Equal(t, "c", doc.Session.Messages[0].Content)

	// The last request only carried the trimmed window.
	last := fake.requests[3]
	require.Len(t, last.History, 4)
	assert.Equal(t, "b", last.History[0].Content)
}

func TestServerContinuity(t *testing.T) {
	call := 0
	fake := &fakeClient{respond: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		call++
		return &llm.Response{ID: "resp_" + string(rune('0'+call)), Text: "ok", Model: req.Model}, nil
	}}
	r, store := newTestRelay(t, fake)

	_, err := r.StartSession(session.ModeServer)
	require.NoError(t, err)

	_, err = r.Send(context.Background(), Input{Text: "first"})
	require.NoError(t, err)
	_, err = r.Send(context.Background(), Input{Text: "second"})
	require.NoError(t, err)

	require.Len(t, fake.requests, 2)
	assert.True(t, fake.requests[0].ServerContext)
	assert.Empty(t, fake.requests[0].PreviousResponseID, "first call of a server session has no pointer yet")
	assert.Equal(t, "resp_1", fake.requests[1].PreviousResponseID)
	assert.Empty(t, fake.requests[1].History)

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "resp_2", doc.Session.PreviousResponseID)
	assert.Empty(t, doc.Session.Messages)
}

func TestTakeAnswerTransitionsReadyToIdle(t *testing.T) {
	fake := &fakeClient{}
	r, store := newTestRelay(t, fake)

	_, err := r.Send(context.Background(), Input{Text: "hi"})
	require.NoError(t, err)

	answer, err := r.TakeAnswer()
	require.NoError(t, err)
	assert.Equal(t, "answer to: hi", answer.Text)

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, state.PhaseIdle, doc.Badge.Phase)
	// The answer itself stays around for repeat copies.
	require.NotNil(t, doc.Answer)

	// A second take works and leaves the badge idle.
	_, err = r.TakeAnswer()
	assert.NoError(t, err)
}

func TestTakeAnswerWithoutAnswer(t *testing.T) {
	r, _ := newTestRelay(t, &fakeClient{})

	_, err := r.TakeAnswer()

	assert.ErrorIs(t, err, ErrNoAnswer)
}

func TestSendImageInServerModeRefusedBeforeBusy(t *testing.T) {
	fake := &fakeClient{}
	r, store := newTestRelay(t, fake)

	_, err := r.StartSession(session.ModeServer)
	require.NoError(t, err)

	img := &llm.Image{MIME: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
	_, err = r.Send(context.Background(), Input{Text: "what is this?", Image: img})

	assert.ErrorIs(t, err, llm.ErrImageWithServerContext)
	assert.Empty(t, fake.requests)

	// The rejection must not leave a badge the user has to clear.
	doc, loadErr := store.Load()
	require.NoError(t, loadErr)
	assert.Equal(t, state.PhaseIdle, doc.Badge.Phase)
}

func TestClearError(t *testing.T) {
	fake := &fakeClient{respond: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		return nil, errors.New("boom")
	}}
	r, store := newTestRelay(t, fake)

	_, err := r.Send(context.Background(), Input{Text: "hi"})
	require.Error(t, err)

	cleared, err := r.ClearError()
	require.NoError(t, err)
	assert.True(t, cleared)

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, state.PhaseIdle, doc.Badge.Phase)
	assert.Empty(t, doc.Badge.Detail)
}

func TestClearErrorOutsideErrorPhaseIsNoop(t *testing.T) {
	r, store := newTestRelay(t, &fakeClient{})

	cleared, err := r.ClearError()
	require.NoError(t, err)
	assert.False(t, cleared)

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, state.PhaseIdle, doc.Badge.Phase)
}

func TestStartSessionDiscardsPriorContinuity(t *testing.T) {
	fake := &fakeClient{}
	r, store := newTestRelay(t, fake)

	_, err := r.StartSession(session.ModeHistory)
	require.NoError(t, err)
	_, err = r.Send(context.Background(), Input{Text: "hi"})
	require.NoError(t, err)

	s, err := r.StartSession(session.ModeServer)
	require.NoError(t, err)
	assert.Equal(t, session.ModeServer, s.Mode)
	assert.Empty(t, s.Messages)

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, session.ModeServer, doc.Session.Mode)
	assert.Equal(t, 0, doc.Session.Turns())
}

func TestEndSession(t *testing.T) {
	r, store := newTestRelay(t, &fakeClient{})

	assert.ErrorIs(t, r.EndSession(), ErrNoSession)

	_, err := r.StartSession(session.ModeHistory)
	require.NoError(t, err)
	require.NoError(t, r.EndSession())

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, doc.Session)
}
