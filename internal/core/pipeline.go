package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/emmanuel1-byte/chatpdf/internal/vector"
)

// RetrievalK is the number of chunks retrieved as context per question.
const RetrievalK = 5

var ErrGenerationFailed = errors.New("generation failed")

const ragPromptTemplate = "You are an assistant for question-answering tasks. " +
	"Use the following pieces of retrieved context to answer the question. " +
	"If you don't know the answer, just say that you don't know. " +
	"Use three sentences maximum and keep the answer concise.\n" +
	"Question: %s\nContext: %s\nAnswer:"

// Retriever is the filtered similarity search the pipeline reads from.
type Retriever interface {
	Search(ctx context.Context, query string, filter vector.Filter, k int) ([]vector.Result, error)
}

// Generator produces a streamed completion for a prompt.
type Generator interface {
	StreamCompletion(ctx context.Context, prompt string) *Stream
}

// State carries one question through the two pipeline stages. Each stage
// takes a snapshot and returns an amended copy.
type State struct {
	Question string
	UserID   string
	DocID    string
	Context  []vector.Result
	Answer   string
}

// Pipeline answers one question against one document partition:
// retrieve then generate.
type Pipeline struct {
	retriever Retriever
	generator Generator
}

func NewPipeline(retriever Retriever, generator Generator) *Pipeline {
	return &Pipeline{retriever: retriever, generator: generator}
}

// Answer runs retrieval scoped to (userID, docID) and starts a streamed
// generation over the retrieved context. The pipeline performs no retries and
// writes no state; a failure here leaves nothing behind.
func (p *Pipeline) Answer(ctx context.Context, question, userID, docID string) (*Stream, error) {
	state := State{Question: question, UserID: userID, DocID: docID}

	state, err := p.retrieve(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return p.generate(ctx, state), nil
}

func (p *Pipeline) retrieve(ctx context.Context, state State) (State, error) {
	results, err := p.retriever.Search(ctx, state.Question,
		vector.Filter{UserID: state.UserID, DocID: state.DocID}, RetrievalK)
	if err != nil {
		return state, err
	}
	// An empty partition is not an error: generation proceeds with empty
	// context and the model says it has no information.
	state.Context = results
	return state, nil
}

func (p *Pipeline) generate(ctx context.Context, state State) *Stream {
	return p.generator.StreamCompletion(ctx, buildPrompt(state))
}

func buildPrompt(state State) string {
	texts := make([]string, len(state.Context))
	for i, result := range state.Context {
		texts[i] = result.Text
	}
	return fmt.Sprintf(ragPromptTemplate, state.Question, strings.Join(texts, "\n\n"))
}
