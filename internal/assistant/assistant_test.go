// ABOUTME: Tests for the assistant bridge
// ABOUTME: Covers reply extraction, failure mapping, timeout, system framing

package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel records the turns it was called with and returns a canned
// response or error.
type fakeModel struct {
	resp  *llms.ContentResponse
	err   error
	delay time.Duration

	gotMessages []llms.MessageContent
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.gotMessages = messages
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.resp, f.err
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}
}

func TestBridge_Respond(t *testing.T) {
	model := &fakeModel{resp: textResponse("  hi there  ")}
	b := NewWithModel(model, "", nil)

	reply, err := b.Respond(t.Context(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", reply, "reply should be trimmed")
}

func TestBridge_RespondSendsSystemAndUserTurns(t *testing.T) {
	model := &fakeModel{resp: textResponse("ok")}
	b := NewWithModel(model, "custom framing", nil)

	_, err := b.Respond(t.Context(), "what time is it")
	require.NoError(t, err)

	require.Len(t, model.gotMessages, 2, "exactly one system turn and one user turn")
	assert.Equal(t, llms.ChatMessageTypeSystem, model.gotMessages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.gotMessages[1].Role)
}

func TestBridge_UpstreamErrorPropagates(t *testing.T) {
	model := &fakeModel{err: errors.New("upstream 503")}
	b := NewWithModel(model, "", nil)

	_, err := b.Respond(t.Context(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 503")
}

func TestBridge_EmptyReplyIsAnError(t *testing.T) {
	tests := []struct {
		name string
		resp *llms.ContentResponse
	}{
		{"nil response", nil},
		{"no choices", &llms.ContentResponse{}},
		{"blank content", textResponse("   ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewWithModel(&fakeModel{resp: tt.resp}, "", nil)
			_, err := b.Respond(t.Context(), "hello")
			assert.ErrorIs(t, err, ErrEmptyReply)
		})
	}
}

func TestBridge_ContextTimeout(t *testing.T) {
	model := &fakeModel{resp: textResponse("too late"), delay: time.Second}
	b := NewWithModel(model, "", nil)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err := b.Respond(ctx, "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
