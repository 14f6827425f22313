package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/emmanuel1-byte/chatpdf/internal/core"
	"github.com/emmanuel1-byte/chatpdf/internal/store"
)

// Answerer runs one question through the retrieval-generation pipeline.
type Answerer interface {
	Answer(ctx context.Context, question, userID, docID string) (*core.Stream, error)
}

// ConversationStore is the durable log the session reads history from and
// appends finished exchanges to.
type ConversationStore interface {
	ListExchangesByDoc(docID, userID string) ([]store.Exchange, error)
	AppendExchange(docID, userID, prompt, aiResponse string) (*store.Exchange, error)
}

const errorMessage = "Something went wrong while generating a response. Please try again."

// Session is one live chat connection bound to an authenticated user and a
// single document. It processes one question at a time: read, stream tokens
// back in order, persist the finished exchange, repeat.
type Session struct {
	id       string
	userID   string
	docID    string
	conn     *websocket.Conn
	registry *Registry
	answerer Answerer
	convs    ConversationStore
}

func New(conn *websocket.Conn, userID, docID string, registry *Registry, answerer Answerer, convs ConversationStore) *Session {
	return &Session{
		id:       uuid.NewString(),
		userID:   userID,
		docID:    docID,
		conn:     conn,
		registry: registry,
		answerer: answerer,
		convs:    convs,
	}
}

// Run drives the session until the client disconnects or an unrecoverable
// error occurs. The registry entry is removed exactly once on exit, and
// cancelling the session context stops any in-flight generation.
func (s *Session) Run(ctx context.Context) {
	s.registry.add(s)
	defer s.registry.remove(s.id)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.sendHistory(); err != nil {
		log.Printf("session %s: failed to send history: %v", s.id, err)
		return
	}

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("session %s: connection closed abruptly: %v", s.id, err)
			}
			return
		}

		question := strings.TrimSpace(string(msg))
		if question == "" {
			continue
		}

		if err := s.process(ctx, question); err != nil {
			log.Printf("session %s: %v", s.id, err)
			return
		}
	}
}

// sendHistory pushes the full ordered conversation as one JSON array so a
// reconnecting client can rehydrate without a separate call.
func (s *Session) sendHistory() error {
	exchanges, err := s.convs.ListExchangesByDoc(s.docID, s.userID)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if exchanges == nil {
		exchanges = []store.Exchange{}
	}

	payload, err := json.Marshal(exchanges)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// process answers one question: forwards every generated token to the client
// as it arrives, then persists the finished exchange. A failed generation
// writes nothing to the conversation log.
func (s *Session) process(ctx context.Context, question string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := s.answerer.Answer(ctx, question, s.userID, s.docID)
	if err != nil {
		if writeErr := s.conn.WriteMessage(websocket.TextMessage, []byte(errorMessage)); writeErr != nil {
			return writeErr
		}
		return err
	}

	var answer strings.Builder
	for token := range stream.Tokens() {
		if err := s.conn.WriteMessage(websocket.TextMessage, []byte(token)); err != nil {
			// Client went away mid-stream: cancel the generation and let
			// Run tear the session down.
			return fmt.Errorf("failed to forward token: %w", err)
		}
		answer.WriteString(token)
	}

	if err := stream.Err(); err != nil {
		if writeErr := s.conn.WriteMessage(websocket.TextMessage, []byte(errorMessage)); writeErr != nil {
			return writeErr
		}
		return fmt.Errorf("%w: %v", core.ErrGenerationFailed, err)
	}

	if _, err := s.convs.AppendExchange(s.docID, s.userID, question, answer.String()); err != nil {
		return fmt.Errorf("failed to persist exchange: %w", err)
	}
	return nil
}
