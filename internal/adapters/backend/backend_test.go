package backend

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mikey/llm-action-extractor/internal/core"
	"github.com/mikey/llm-action-extractor/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const itemsReply = `{"language":"en","items":[{"content":"water the plants","type":"todo","priority":"high","confidence":0.8}]}`

// mockClient is a testify mock of core.LLMClient
type mockClient struct {
	mock.Mock
}

func (m *mockClient) Generate(ctx context.Context, model string, prompt string) (string, error) {
	args := m.Called(ctx, model, prompt)
	return args.String(0), args.Error(1)
}

// pingingClient also pings its endpoint
type pingingClient struct {
	mockClient
	pings int
	err   error
}

func (p *pingingClient) Ping(context.Context) error {
	p.pings++
	return p.err
}

// installedClient reports a fixed install state
type installedClient struct {
	mockClient
	installed bool
}

func (i *installedClient) Installed() bool { return i.installed }

func newTestBackend(t *testing.T, primary, fallback core.LLMClient, cfg Config) *Backend {
	logger := zaptest.NewLogger(t)
	return NewBackend(primary, fallback, utils.NewTextProcessor(logger), logger, cfg)
}

func TestCall_ParsesPrimaryReply(t *testing.T) {
	primary := &mockClient{}
	primary.On("Generate", mock.Anything, "llama3.2", mock.Anything).Return(itemsReply, nil)

	b := newTestBackend(t, primary, nil, Config{Timeout: time.Second})
	reply, err := b.Call(context.Background(), "llama3.2", "remember to water the plants", nil)
	require.NoError(t, err)
	require.Len(t, reply.Items, 1)
	assert.Equal(t, 12, reply.Items[0].TextPosition.Start)
	primary.AssertExpectations(t)
}

func TestCall_PromptCarriesContextAndTruncatedText(t *testing.T) {
	primary := &mockClient{}
	primary.On("Generate", mock.Anything, mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "The note is about Lee") &&
			strings.Contains(prompt, "remember to\n[... note truncated ...]") &&
			!strings.Contains(prompt, "water the plants")
	})).Return(itemsReply, nil)

	b := newTestBackend(t, primary, nil, Config{MaxTextSize: 11})
	_, err := b.Call(context.Background(), "llama3.2", "remember to water the plants", &core.AnalysisContext{AssociatedPerson: "Lee"})
	require.NoError(t, err)
	primary.AssertExpectations(t)
}

func TestCall_NoteBelowChunkThresholdIsSentWhole(t *testing.T) {
	note := strings.Repeat("notes from the weekly sync. ", 320) + "FIXLOGIN"
	require.Greater(t, len(note), 8000)
	require.Less(t, len(note), core.DefaultEngineConfig().ChunkThreshold)

	primary := &mockClient{}
	primary.On("Generate", mock.Anything, mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, note) && !strings.Contains(prompt, "note truncated")
	})).Return(itemsReply, nil)

	b := newTestBackend(t, primary, nil, Config{MaxTextSize: core.DefaultEngineConfig().ChunkThreshold})
	_, err := b.Call(context.Background(), "llama3.2", note, nil)
	require.NoError(t, err)
	primary.AssertExpectations(t)
}

func TestCall_CRLFNoteKeepsMultiLineItemPosition(t *testing.T) {
	note := "Standup notes\r\n- ship the release\r\n  after QA signs off\r\n"
	reply := `{"language":"en","items":[{"content":"ship the release\r\n  after QA signs off","type":"todo","confidence":0.9}]}`

	primary := &mockClient{}
	primary.On("Generate", mock.Anything, mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "ship the release\r\n  after QA")
	})).Return(reply, nil)

	b := newTestBackend(t, primary, nil, Config{})
	got, err := b.Call(context.Background(), "llama3.2", note, nil)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)

	start := strings.Index(note, "ship the release")
	assert.Equal(t, core.TextPosition{Start: start, End: start + len("ship the release\r\n  after QA signs off")}, got.Items[0].TextPosition)
}

func TestCall_FallsBackOnPrimaryFailure(t *testing.T) {
	primary := &mockClient{}
	primary.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("connection refused"))
	fallback := &mockClient{}
	fallback.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(itemsReply, nil)

	b := newTestBackend(t, primary, fallback, Config{})
	reply, err := b.Call(context.Background(), "llama3.2", "remember to water the plants", nil)
	require.NoError(t, err)
	assert.Len(t, reply.Items, 1)
	primary.AssertNumberOfCalls(t, "Generate", 1)
	fallback.AssertNumberOfCalls(t, "Generate", 1)
}

func TestCall_EmptyCompletionTriesFallback(t *testing.T) {
	primary := &mockClient{}
	primary.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("  \n", nil)
	fallback := &mockClient{}
	fallback.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", nil)

	b := newTestBackend(t, primary, fallback, Config{})
	_, err := b.Call(context.Background(), "llama3.2", "remember to water the plants", nil)
	assert.ErrorIs(t, err, ErrNoCompletion)
}

func TestCall_MalformedReply(t *testing.T) {
	primary := &mockClient{}
	primary.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("no json here", nil)

	b := newTestBackend(t, primary, nil, Config{})
	_, err := b.Call(context.Background(), "llama3.2", "remember to water the plants", nil)
	assert.ErrorIs(t, err, ErrMalformedReply)
}

func TestCall_TimeoutReachesTransport(t *testing.T) {
	primary := &mockClient{}
	primary.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
		}).
		Return(itemsReply, nil)

	b := newTestBackend(t, primary, nil, Config{Timeout: 50 * time.Millisecond})
	_, err := b.Call(context.Background(), "llama3.2", "remember to water the plants", nil)
	require.NoError(t, err)
}

func TestCheckAvailability_CachesForTTL(t *testing.T) {
	primary := &pingingClient{err: errors.New("down")}
	b := newTestBackend(t, primary, nil, Config{AvailabilityTTL: time.Minute})

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	avail := b.CheckAvailability(context.Background())
	assert.True(t, avail.Installed)
	assert.False(t, avail.Running)

	primary.err = nil
	avail = b.CheckAvailability(context.Background())
	assert.False(t, avail.Running)
	assert.Equal(t, 1, primary.pings)

	now = now.Add(time.Minute)
	avail = b.CheckAvailability(context.Background())
	assert.True(t, avail.Running)
	assert.Equal(t, 2, primary.pings)
}

func TestCheckAvailability_ReportsInstallState(t *testing.T) {
	primary := &pingingClient{}
	fallback := &installedClient{installed: false}
	b := newTestBackend(t, primary, fallback, Config{})

	avail := b.CheckAvailability(context.Background())
	assert.False(t, avail.Installed)
	assert.True(t, avail.Running)
}

func TestWarmUp(t *testing.T) {
	primary := &mockClient{}
	primary.On("Generate", mock.Anything, "llama3.2", warmUpPrompt).Return(`{"language":"en","items":[]}`, nil).Once()
	primary.On("Generate", mock.Anything, "missing", warmUpPrompt).Return("", errors.New("model not found")).Once()

	b := newTestBackend(t, primary, nil, Config{})
	assert.NoError(t, b.WarmUp(context.Background(), "llama3.2"))
	assert.ErrorContains(t, b.WarmUp(context.Background(), "missing"), "warm up missing")
}
