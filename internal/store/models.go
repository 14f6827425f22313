package store

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           string     `json:"id"`
	Fullname     string     `json:"fullname"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Do not expose this in JSON responses
	Verified     bool       `json:"verified"`
	OTPCode      *string    `json:"-"`
	OTPExpiresAt *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewUser builds a fully-formed user record: id and timestamps are computed
// here, not by the storage layer.
func NewUser(fullname, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.NewString(),
		Fullname:     fullname,
		Email:        email,
		PasswordHash: passwordHash,
		Verified:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Exchange is one persisted prompt/answer pair, scoped to the document it was
// asked against and the user who owns that document.
type Exchange struct {
	ID         string    `json:"id"`
	DocID      string    `json:"doc_id"`
	UserID     string    `json:"user_id"`
	Prompt     string    `json:"prompt"`
	AIResponse string    `json:"ai_response"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewExchange(docID, userID, prompt, aiResponse string) *Exchange {
	now := time.Now().UTC()
	return &Exchange{
		ID:         uuid.NewString(),
		DocID:      docID,
		UserID:     userID,
		Prompt:     prompt,
		AIResponse: aiResponse,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
