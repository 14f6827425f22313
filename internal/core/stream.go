package core

import "context"

// streamBuffer bounds how far the producer may run ahead of the consumer.
const streamBuffer = 16

// Stream is an ordered sequence of generated tokens produced by one
// generation call. The producer feeds it with Emit and terminates it with
// Close; the consumer ranges over Tokens and checks Err afterwards.
type Stream struct {
	tokens chan string
	// err is written by Close before the channel closes and must only be
	// read after Tokens is drained.
	err error
}

func NewStream() *Stream {
	return &Stream{tokens: make(chan string, streamBuffer)}
}

func (s *Stream) Tokens() <-chan string {
	return s.tokens
}

// Emit delivers one token in order, blocking until the consumer accepts it
// or ctx ends.
func (s *Stream) Emit(ctx context.Context, token string) error {
	select {
	case s.tokens <- token:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close terminates the stream; a non-nil err marks it failed. Must be called
// exactly once, by the producer.
func (s *Stream) Close(err error) {
	s.err = err
	close(s.tokens)
}

// Err returns the error that terminated the stream, or nil if generation ran
// to completion. Only valid once Tokens has been drained.
func (s *Stream) Err() error {
	return s.err
}
