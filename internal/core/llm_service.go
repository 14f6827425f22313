package core

import (
	"context"
	"fmt"
	"log"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/emmanuel1-byte/chatpdf/internal/config"
)

const (
	defaultChatModelName      = "gemini-2.0-flash"
	defaultEmbeddingModelName = "text-embedding-004"

	chatSystemInstruction = "You are an assistant answering questions about a single uploaded document. " +
		"Answer only from the provided context. If the answer is not found in the context, " +
		"clearly state that you don't have the information. Do not make up information."
)

type LLMService struct {
	client *genai.Client
}

func NewLLMService() *LLMService {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.AppConfig.GeminiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create GenAI client: %v", err)
	}

	return &LLMService{
		client: client,
	}
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		}
	}
}

func (s *LLMService) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	em := s.client.EmbeddingModel(defaultEmbeddingModelName)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}

	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}

// StreamCompletion starts a streamed generation for the prompt. Tokens arrive
// on the returned Stream in generation order; cancelling ctx stops the
// producer and unblocks the consumer.
func (s *LLMService) StreamCompletion(ctx context.Context, prompt string) *Stream {
	model := s.client.GenerativeModel(defaultChatModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(chatSystemInstruction)},
	}

	iter := model.GenerateContentStream(ctx, genai.Text(prompt))

	stream := NewStream()
	go func() {
		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				stream.Close(nil)
				return
			}
			if err != nil {
				stream.Close(fmt.Errorf("gemini streamed generation failed: %w", err))
				return
			}

			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			for _, part := range resp.Candidates[0].Content.Parts {
				txt, ok := part.(genai.Text)
				if !ok {
					continue
				}
				if err := stream.Emit(ctx, string(txt)); err != nil {
					stream.Close(err)
					return
				}
			}
		}
	}()
	return stream
}
