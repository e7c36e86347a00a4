package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal valid PNG header so MIME sniffing sees image/png.
var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

func TestDetectImage(t *testing.T) {
	img, err := DetectImage(pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIME)

	_, err = DetectImage([]byte("GIF89a......."))
	assert.ErrorContains(t, err, "unsupported image type")

	_, err = DetectImage([]byte("plain text, definitely not an image"))
	assert.ErrorContains(t, err, "unsupported image type")
}

func TestImageDataURL(t *testing.T) {
	img := &Image{MIME: "image/png", Data: []byte{1, 2, 3}}

	url := img.DataURL()

	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
	assert.Equal(t, "data:image/png;base64,AQID", url)
}

func TestCompleteRejectsEmptyInput(t *testing.T) {
	c := NewOpenAI("sk-test", "")

	_, err := c.Complete(context.Background(), Request{Model: "gpt-4o", Text: "   "})

	assert.ErrorContains(t, err, "empty input")
}

func TestCompleteRejectsImageInServerContext(t *testing.T) {
	c := NewOpenAI("sk-test", "")

	_, err := c.Complete(context.Background(), Request{
		Model:         "gpt-4o",
		Image:         &Image{MIME: "image/png", Data: pngBytes},
		ServerContext: true,
	})

	assert.ErrorIs(t, err, ErrImageWithServerContext)
}

func TestHumanizeErrorContext(t *testing.T) {
	err := humanizeError(context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out")

	err = humanizeError(context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "canceled")
}
