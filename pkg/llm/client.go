// Package llm wraps the vendor model API behind a single-call client.
//
// Two request shapes are supported: Chat Completions carrying the full
// message history, and the Responses API carrying only a previous-response
// pointer. The caller picks the shape via Request; the package hides the SDK
// plumbing and error mapping.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

// Turn is one prior exchange message included in a history-mode request.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Image is an image payload sent alongside (or instead of) text.
type Image struct {
	MIME string
	Data []byte
}

// DataURL encodes the image as a base64 data URL for the vendor API.
func (i *Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MIME, base64.StdEncoding.EncodeToString(i.Data))
}

// DetectImage wraps raw bytes, sniffing the MIME type. Only PNG and JPEG are
// accepted.
func DetectImage(data []byte) (*Image, error) {
	mime := http.DetectContentType(data)
	switch mime {
	case "image/png", "image/jpeg":
		return &Image{MIME: mime, Data: data}, nil
	}
	return nil, fmt.Errorf("unsupported image type %s (only PNG and JPEG are supported)", mime)
}

// Request describes one model call.
type Request struct {
	Model  string
	System string
	Text   string
	Image  *Image

	// History rides along in chat-completion requests (history continuity).
	History []Turn

	// ServerContext routes the call through the Responses API so the vendor
	// carries the conversation; PreviousResponseID is empty on the first call
	// of a session.
	ServerContext      bool
	PreviousResponseID string
}

// Response is the parsed model answer.
type Response struct {
	ID           string
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Client is the single-call interface the relay depends on.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ErrImageWithServerContext is returned when an image send is attempted in a
// server-continuity session; image parts only ride on the chat-completion
// shape here.
var ErrImageWithServerContext = errors.New("image input is not supported in a server-mode session: use 'cliprelay session start --mode history' or end the session")

// OpenAI implements Client against the OpenAI API (or a compatible gateway
// via base URL override).
type OpenAI struct {
	api openai.Client
}

// NewOpenAI builds a client. baseURL may be empty for the vendor default.
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{api: openai.NewClient(opts...)}
}

var _ Client = (*OpenAI)(nil)

// Complete performs one model call. Timeout and cancellation are governed by
// ctx.
func (c *OpenAI) Complete(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Text) == "" && req.Image == nil {
		return nil, errors.New("nothing to send: empty input")
	}
	if req.ServerContext {
		if req.Image != nil {
			return nil, ErrImageWithServerContext
		}
		return c.completeResponses(ctx, req)
	}
	return c.completeChat(ctx, req)
}

func (c *OpenAI) completeChat(ctx context.Context, req Request) (*Response, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, turn := range req.History {
		switch turn.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	messages = append(messages, userMessage(req))

	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: messages,
	})
	if err != nil {
		return nil, humanizeError(err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("model returned no choices")
	}

	text := completion.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("model returned an empty answer")
	}
	return &Response{
		ID:           completion.ID,
		Text:         text,
		Model:        completion.Model,
		InputTokens:  completion.Usage.PromptTokens,
		OutputTokens: completion.Usage.CompletionTokens,
	}, nil
}

func (c *OpenAI) completeResponses(ctx context.Context, req Request) (*Response, error) {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(req.Model),
		Input: responses.ResponseNewParamsInputUnion{OfString: openai.String(req.Text)},
	}
	if req.System != "" {
		params.Instructions = openai.String(req.System)
	}
	if req.PreviousResponseID != "" {
		params.PreviousResponseID = openai.String(req.PreviousResponseID)
	}

	resp, err := c.api.Responses.New(ctx, params)
	if err != nil {
		return nil, humanizeError(err)
	}

	text := resp.OutputText()
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("model returned an empty answer")
	}
	return &Response{
		ID:           resp.ID,
		Text:         text,
		Model:        string(resp.Model),
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

// userMessage builds the current user message, attaching the image as a
// base64 data URL content part when present.
func userMessage(req Request) openai.ChatCompletionMessageParamUnion {
	if req.Image == nil {
		return openai.UserMessage(req.Text)
	}

	parts := []openai.ChatCompletionContentPartUnionParam{}
	if strings.TrimSpace(req.Text) != "" {
		parts = append(parts, openai.TextContentPart(req.Text))
	}
	parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
		URL: req.Image.DataURL(),
	}))
	return openai.UserMessage(parts)
}
