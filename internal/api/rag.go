package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/emmanuel1-byte/chatpdf/internal/core"
	"github.com/emmanuel1-byte/chatpdf/internal/session"
	"github.com/emmanuel1-byte/chatpdf/internal/vector"
)

// UploadHandler ingests one PDF into a fresh (user, doc) partition and
// returns the doc_id the chat endpoint is keyed by.
func (h *APIHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "A file field is required")
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	chunks, err := h.ingestor.Ingest(fileBytes, header.Header.Get("Content-Type"), header.Size)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidFileType):
			writeMessage(w, http.StatusBadRequest, "Invalid file type")
		case errors.Is(err, core.ErrFileTooLarge):
			writeMessage(w, http.StatusBadRequest, "File size exceded 15mb")
		default:
			log.Printf("Error ingesting upload for user %s: %v", userID, err)
			writeMessage(w, http.StatusInternalServerError, "Failed to process document")
		}
		return
	}

	docID, tagged := core.Tag(chunks, userID)

	if err := h.vectors.Upsert(r.Context(), tagged); err != nil {
		log.Printf("Error storing vectors for doc %s: %v", docID, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to store document")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"data": map[string]string{"doc_id": docID},
	})
}

// ChatSocketHandler authenticates the connection attempt from the
// access_token query parameter and hands the socket to a session. A failed
// authentication rejects the attempt before the upgrade; the socket never
// opens.
func (h *APIHandler) ChatSocketHandler(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	token := r.URL.Query().Get("access_token")
	if !strings.HasPrefix(token, "Bearer ") {
		writeMessage(w, http.StatusBadRequest, "Access token required!")
		return
	}

	userID, err := h.authenticate(strings.TrimPrefix(token, "Bearer "))
	if err != nil {
		writeMessage(w, authStatus(err), "Invalid access token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		log.Printf("Websocket upgrade failed for doc %s: %v", docID, err)
		return
	}
	defer conn.Close()

	sess := session.New(conn, userID, docID, h.registry, h.answerer, h.store)
	sess.Run(r.Context())
}

// DeleteDocumentHandler removes the conversation log and the vector
// partition for one of the caller's documents. Both deletions are attempted
// even when one fails, and a partial failure is reported, not swallowed.
func (h *APIHandler) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)
	docID := chi.URLParam(r, "docID")

	deleted, convErr := h.store.DeleteExchangesByDoc(docID, userID)

	vecErr := h.vectors.DeleteByFilter(r.Context(), vector.Filter{UserID: userID, DocID: docID})
	if vecErr != nil {
		log.Printf("Error deleting vectors for doc %s: %v", docID, vecErr)
	}

	if convErr != nil {
		log.Printf("Error deleting chats for doc %s: %v", docID, convErr)
		writeMessage(w, http.StatusInternalServerError, "Failed to delete chats")
		return
	}
	if vecErr != nil {
		// The vector cleanup failed regardless of whether any chat rows
		// matched; a not-found must not hide that.
		if deleted > 0 {
			writeMessage(w, http.StatusInternalServerError, "Chats deleted but vector deletion failed")
			return
		}
		writeMessage(w, http.StatusInternalServerError, "Failed to delete vectors")
		return
	}
	if deleted == 0 {
		writeMessage(w, http.StatusNotFound, "Document does not exist")
		return
	}

	writeMessage(w, http.StatusOK, "Chat and related vectors deleted")
}
