package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliprelay/cli/internal/relay"
	"github.com/cliprelay/cli/internal/state"
)

type FakeAnswerTaker struct {
	TakeFunc func() (*state.Answer, error)
	Takes    int
}

func (f *FakeAnswerTaker) TakeAnswer() (*state.Answer, error) {
	f.Takes++
	if f.TakeFunc != nil {
		return f.TakeFunc()
	}
	return &state.Answer{ID: "ans_1", Text: "the answer", Model: "gpt-4o"}, nil
}

func TestCopyWritesAnswerToClipboard(t *testing.T) {
	setupStdoutCapture(t)
	taker := &FakeAnswerTaker{}
	clip := &FakeClipboard{}
	c := CopyCmd{taker: taker, clip: clip}

	err := c.Run()
	require.NoError(t, err)

	require.Len(t, clip.Written, 1)
	assert.Equal(t, "the answer", clip.Written[0])
	assert.Equal(t, 1, taker.Takes)
	assert.Contains(t, outBuf.String(), "Copied answer to clipboard")
}

func TestCopyWithoutAnswer(t *testing.T) {
	setupStdoutCapture(t)
	taker := &FakeAnswerTaker{
		TakeFunc: func() (*state.Answer, error) {
			return nil, relay.ErrNoAnswer
		},
	}
	clip := &FakeClipboard{}
	c := CopyCmd{taker: taker, clip: clip}

	err := c.Run()
	assert.ErrorIs(t, err, relay.ErrNoAnswer)
	assert.Empty(t, clip.Written)
}
