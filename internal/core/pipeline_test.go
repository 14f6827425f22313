package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emmanuel1-byte/chatpdf/internal/vector"
)

type fakeRetriever struct {
	results    []vector.Result
	err        error
	gotQuery   string
	gotFilter  vector.Filter
	gotK       int
	callsTotal int
}

func (f *fakeRetriever) Search(ctx context.Context, query string, filter vector.Filter, k int) ([]vector.Result, error) {
	f.gotQuery = query
	f.gotFilter = filter
	f.gotK = k
	f.callsTotal++
	return f.results, f.err
}

type fakeGenerator struct {
	tokens    []string
	err       error
	gotPrompt string
}

func (f *fakeGenerator) StreamCompletion(ctx context.Context, prompt string) *Stream {
	f.gotPrompt = prompt
	stream := NewStream()
	go func() {
		for _, token := range f.tokens {
			if err := stream.Emit(ctx, token); err != nil {
				stream.Close(err)
				return
			}
		}
		stream.Close(f.err)
	}()
	return stream
}

func collect(t *testing.T, stream *Stream) []string {
	t.Helper()
	var tokens []string
	for token := range stream.Tokens() {
		tokens = append(tokens, token)
	}
	return tokens
}

func TestPipeline_RetrievesScopedAndStreamsInOrder(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{results: []vector.Result{
		{Text: "Revenue grew 10% in Q1.", Score: 0.92},
		{Text: "Costs were flat.", Score: 0.41},
	}}
	generator := &fakeGenerator{tokens: []string{"Revenue ", "grew ", "10%."}}
	pipeline := NewPipeline(retriever, generator)

	stream, err := pipeline.Answer(context.Background(), "What was the revenue growth?", "user-a", "doc-1")
	require.NoError(t, err)

	tokens := collect(t, stream)
	require.NoError(t, stream.Err())
	assert.Equal(t, []string{"Revenue ", "grew ", "10%."}, tokens)
	assert.Equal(t, "Revenue grew 10%.", strings.Join(tokens, ""))

	assert.Equal(t, "What was the revenue growth?", retriever.gotQuery)
	assert.Equal(t, vector.Filter{UserID: "user-a", DocID: "doc-1"}, retriever.gotFilter)
	assert.Equal(t, RetrievalK, retriever.gotK)

	assert.Contains(t, generator.gotPrompt, "What was the revenue growth?")
	assert.Contains(t, generator.gotPrompt, "Revenue grew 10% in Q1.\n\nCosts were flat.")
}

func TestPipeline_EmptyContextIsNotAnError(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{}
	generator := &fakeGenerator{tokens: []string{"I don't know."}}
	pipeline := NewPipeline(retriever, generator)

	stream, err := pipeline.Answer(context.Background(), "Anything?", "user-a", "doc-1")
	require.NoError(t, err)

	tokens := collect(t, stream)
	require.NoError(t, stream.Err())
	assert.Equal(t, []string{"I don't know."}, tokens)
	assert.Contains(t, generator.gotPrompt, "Context: \nAnswer:")
}

func TestPipeline_RetrievalFailureIsGenerationFailed(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{err: errors.New("qdrant unavailable")}
	generator := &fakeGenerator{}
	pipeline := NewPipeline(retriever, generator)

	_, err := pipeline.Answer(context.Background(), "q", "user-a", "doc-1")
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Empty(t, generator.gotPrompt, "generation must not start after retrieval failure")
}

func TestPipeline_GenerationFailureSurfacesOnStream(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{}
	generator := &fakeGenerator{tokens: []string{"partial "}, err: errors.New("model overloaded")}
	pipeline := NewPipeline(retriever, generator)

	stream, err := pipeline.Answer(context.Background(), "q", "user-a", "doc-1")
	require.NoError(t, err)

	tokens := collect(t, stream)
	assert.Equal(t, []string{"partial "}, tokens)
	assert.Error(t, stream.Err())
}

func TestStream_CancellationUnblocksProducer(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	// Enough tokens to overflow the stream buffer so the producer blocks.
	tokens := make([]string, streamBuffer*4)
	for i := range tokens {
		tokens[i] = "t"
	}
	generator := &fakeGenerator{tokens: tokens}
	stream := generator.StreamCompletion(ctx, "prompt")

	// Consume one token, then walk away mid-stream.
	<-stream.Tokens()
	cancel()

	for range stream.Tokens() {
	}
	assert.ErrorIs(t, stream.Err(), context.Canceled)
}
