package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emmanuel1-byte/chatpdf/internal/auth"
	"github.com/emmanuel1-byte/chatpdf/internal/core"
	"github.com/emmanuel1-byte/chatpdf/internal/session"
	"github.com/emmanuel1-byte/chatpdf/internal/store"
	"github.com/emmanuel1-byte/chatpdf/internal/vector"
)

// Store is the relational storage surface the handlers depend on.
// Satisfied by *store.SQLiteStore.
type Store interface {
	CreateUser(user *store.User) error
	GetUserByID(id string) (*store.User, error)
	GetUserByEmail(email string) (*store.User, error)
	GetUserByOTP(code string) (*store.User, error)
	SetUserOTP(userID, code string, expiresAt time.Time) error
	ClearUserOTP(userID string) error
	MarkUserVerified(userID string) error
	UpdateUserPassword(userID, passwordHash string) error
	ListExchangesByDoc(docID, userID string) ([]store.Exchange, error)
	AppendExchange(docID, userID, prompt, aiResponse string) (*store.Exchange, error)
	DeleteExchangesByDoc(docID, userID string) (int64, error)
}

// VectorStore is the partition store surface the handlers depend on.
// Satisfied by *vector.Store.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []vector.Chunk) error
	DeleteByFilter(ctx context.Context, filter vector.Filter) error
}

// Mailer delivers transactional email. Satisfied by *mail.Client.
type Mailer interface {
	SendVerificationEmail(email, firstName, code string) error
	SendPasswordResetEmail(email, firstName, code string) error
}

type APIHandler struct {
	store     Store
	vectors   VectorStore
	ingestor  *core.Ingestor
	answerer  session.Answerer
	registry  *session.Registry
	mailer    Mailer
	jwtSecret []byte
	upgrader  websocket.Upgrader
}

func NewAPIHandler(st Store, vectors VectorStore, ingestor *core.Ingestor,
	answerer session.Answerer, registry *session.Registry, mailer Mailer, jwtSecret []byte) *APIHandler {
	return &APIHandler{
		store:     st,
		vectors:   vectors,
		ingestor:  ingestor,
		answerer:  answerer,
		registry:  registry,
		mailer:    mailer,
		jwtSecret: jwtSecret,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type contextKey string

const userIDKey contextKey = "userID"

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeMessage(w, http.StatusBadRequest, "Access token required!")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := h.authenticate(tokenString)
		if err != nil {
			writeAuthError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate resolves a bearer token to an existing user id.
func (h *APIHandler) authenticate(tokenString string) (string, error) {
	userID, err := auth.ValidateToken(tokenString, h.jwtSecret)
	if err != nil {
		return "", err
	}

	user, err := h.store.GetUserByID(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", errAccountNotFound
	}
	return user.ID, nil
}

type SignupRequest struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Fullname == "" || req.Email == "" || len(req.Password) < 9 {
		writeMessage(w, http.StatusBadRequest, "Fullname, email and a password of at least 9 characters are required")
		return
	}

	existing, err := h.store.GetUserByEmail(req.Email)
	if err != nil {
		log.Printf("Error checking for existing account %s: %v", req.Email, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to create account")
		return
	}
	if existing != nil {
		writeMessage(w, http.StatusConflict, "Account already exist")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for %s: %v", req.Email, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	otp, err := auth.GenerateOTP()
	if err != nil {
		log.Printf("Error generating OTP for %s: %v", req.Email, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	user := store.NewUser(req.Fullname, req.Email, hash)
	user.OTPCode = &otp.Code
	user.OTPExpiresAt = &otp.ExpiresAt

	if err := h.store.CreateUser(user); err != nil {
		// Two signups can race past the lookup above; the UNIQUE constraint
		// settles it and the loser gets the same conflict response.
		if errors.Is(err, store.ErrEmailTaken) {
			writeMessage(w, http.StatusConflict, "Account already exist")
			return
		}
		log.Printf("Error creating account %s: %v", req.Email, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	go h.sendEmail(h.mailer.SendVerificationEmail, user, otp.Code)

	writeMessage(w, http.StatusCreated, "Account created")
}

type VerifyOTPRequest struct {
	Password string `json:"password"`
}

func (h *APIHandler) VerifyOTPHandler(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.findUserByValidOTP(w, req.Password)
	if user == nil || err != nil {
		return
	}

	if err := h.store.MarkUserVerified(user.ID); err != nil {
		log.Printf("Error marking account %s verified: %v", user.ID, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to verify OTP")
		return
	}

	writeMessage(w, http.StatusOK, "OTP verified")
}

type ResendVerificationEmailRequest struct {
	Email string `json:"email"`
}

func (h *APIHandler) ResendVerificationEmailHandler(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.store.GetUserByEmail(req.Email)
	if err != nil {
		log.Printf("Error looking up account %s: %v", req.Email, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to resend email")
		return
	}
	if user == nil {
		writeMessage(w, http.StatusNotFound, "Account does not exist")
		return
	}
	if user.Verified {
		writeMessage(w, http.StatusConflict, "Account already verified")
		return
	}

	otp, err := h.issueOTP(user.ID)
	if err != nil {
		log.Printf("Error issuing OTP for %s: %v", user.ID, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to resend email")
		return
	}

	go h.sendEmail(h.mailer.SendVerificationEmail, user, otp.Code)

	writeMessage(w, http.StatusOK, "Email sent")
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.store.GetUserByEmail(req.Email)
	if err != nil {
		log.Printf("Error looking up account %s: %v", req.Email, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to log in")
		return
	}
	if user == nil {
		writeMessage(w, http.StatusNotFound, "Account does not exist")
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.writeTokenPair(w, user.ID)
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *APIHandler) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.store.GetUserByEmail(req.Email)
	if err != nil {
		log.Printf("Error looking up account %s: %v", req.Email, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to process request")
		return
	}
	if user == nil {
		writeMessage(w, http.StatusNotFound, "Account does not exist")
		return
	}

	otp, err := h.issueOTP(user.ID)
	if err != nil {
		log.Printf("Error issuing OTP for %s: %v", user.ID, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to process request")
		return
	}

	go h.sendEmail(h.mailer.SendPasswordResetEmail, user, otp.Code)

	writeMessage(w, http.StatusOK, "Email sent")
}

type ResetPasswordRequest struct {
	OTP      string `json:"otp"`
	Password string `json:"password"`
}

func (h *APIHandler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OTP == "" || len(req.Password) < 9 {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.findUserByValidOTP(w, req.OTP)
	if user == nil || err != nil {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for %s: %v", user.ID, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	if err := h.store.UpdateUserPassword(user.ID, hash); err != nil {
		log.Printf("Error resetting password for %s: %v", user.ID, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	writeMessage(w, http.StatusOK, "Password reset successfull")
}

func (h *APIHandler) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(userIDKey).(string)
	h.writeTokenPair(w, userID)
}

// findUserByValidOTP looks up the account holding the passcode and checks
// expiry. It writes the error response itself; a nil user means the response
// has been sent.
func (h *APIHandler) findUserByValidOTP(w http.ResponseWriter, code string) (*store.User, error) {
	user, err := h.store.GetUserByOTP(code)
	if err != nil {
		log.Printf("Error looking up OTP: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to verify OTP")
		return nil, err
	}
	if user == nil {
		writeMessage(w, http.StatusNotFound, "OTP does not exist")
		return nil, nil
	}

	if user.OTPExpiresAt == nil || time.Now().UTC().After(*user.OTPExpiresAt) {
		if err := h.store.ClearUserOTP(user.ID); err != nil {
			log.Printf("Error clearing expired OTP for %s: %v", user.ID, err)
		}
		writeMessage(w, http.StatusBadRequest, "OTP has expired")
		return nil, nil
	}
	return user, nil
}

func (h *APIHandler) issueOTP(userID string) (*auth.OTP, error) {
	otp, err := auth.GenerateOTP()
	if err != nil {
		return nil, err
	}
	if err := h.store.SetUserOTP(userID, otp.Code, otp.ExpiresAt); err != nil {
		return nil, err
	}
	return otp, nil
}

func (h *APIHandler) sendEmail(send func(email, firstName, code string) error, user *store.User, code string) {
	firstName := strings.SplitN(user.Fullname, " ", 2)[0]
	if err := send(user.Email, firstName, code); err != nil {
		log.Printf("Error sending email to %s: %v", user.Email, err)
	}
}

func (h *APIHandler) writeTokenPair(w http.ResponseWriter, userID string) {
	pair, err := auth.GenerateTokenPair(userID, h.jwtSecret)
	if err != nil {
		log.Printf("Error generating tokens for %s: %v", userID, err)
		writeMessage(w, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"token": pair},
	})
}
