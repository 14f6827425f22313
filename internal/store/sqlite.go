package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// ErrEmailTaken reports an insert that lost to an existing account with the
// same email. Callers race each other on the UNIQUE constraint, so a prior
// lookup does not rule this out.
var ErrEmailTaken = errors.New("email already taken")

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY, -- UUID
        fullname TEXT NOT NULL,
        email TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        verified BOOLEAN NOT NULL DEFAULT FALSE,
        otp_code TEXT,
        otp_expires_at DATETIME,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS exchanges (
        id TEXT PRIMARY KEY, -- UUID
        doc_id TEXT NOT NULL,
        user_id TEXT NOT NULL,
        prompt TEXT NOT NULL,
        ai_response TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE INDEX IF NOT EXISTS idx_exchanges_doc_user ON exchanges (doc_id, user_id);
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods

func (s *SQLiteStore) CreateUser(user *User) error {
	stmt, err := s.db.Prepare(`INSERT INTO users
        (id, fullname, email, password_hash, verified, otp_code, otp_expires_at, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare user insert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(user.ID, user.Fullname, user.Email, user.PasswordHash,
		user.Verified, user.OTPCode, user.OTPExpiresAt, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

const userColumns = "id, fullname, email, password_hash, verified, otp_code, otp_expires_at, created_at, updated_at"

func (s *SQLiteStore) scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Fullname, &user.Email, &user.PasswordHash,
		&user.Verified, &user.OTPCode, &user.OTPExpiresAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) GetUserByID(id string) (*User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return s.scanUser(row)
}

func (s *SQLiteStore) GetUserByEmail(email string) (*User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return s.scanUser(row)
}

func (s *SQLiteStore) GetUserByOTP(code string) (*User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE otp_code = ?", code)
	return s.scanUser(row)
}

// SetUserOTP stores a pending passcode for the user, replacing any previous one.
func (s *SQLiteStore) SetUserOTP(userID, code string, expiresAt time.Time) error {
	return s.updateUser("UPDATE users SET otp_code = ?, otp_expires_at = ?, updated_at = ? WHERE id = ?",
		code, expiresAt, time.Now().UTC(), userID)
}

func (s *SQLiteStore) ClearUserOTP(userID string) error {
	return s.updateUser("UPDATE users SET otp_code = NULL, otp_expires_at = NULL, updated_at = ? WHERE id = ?",
		time.Now().UTC(), userID)
}

// MarkUserVerified flags the account verified and clears the pending passcode.
func (s *SQLiteStore) MarkUserVerified(userID string) error {
	return s.updateUser("UPDATE users SET verified = TRUE, otp_code = NULL, otp_expires_at = NULL, updated_at = ? WHERE id = ?",
		time.Now().UTC(), userID)
}

// UpdateUserPassword replaces the credential hash and clears the pending passcode.
func (s *SQLiteStore) UpdateUserPassword(userID, passwordHash string) error {
	return s.updateUser("UPDATE users SET password_hash = ?, otp_code = NULL, otp_expires_at = NULL, updated_at = ? WHERE id = ?",
		passwordHash, time.Now().UTC(), userID)
}

func (s *SQLiteStore) updateUser(query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("user not found, nothing updated")
	}
	return nil
}

// Exchange methods

// AppendExchange persists one finished prompt/answer pair. Exchanges are
// immutable once written; only whole-document deletion removes them.
func (s *SQLiteStore) AppendExchange(docID, userID, prompt, aiResponse string) (*Exchange, error) {
	exchange := NewExchange(docID, userID, prompt, aiResponse)

	stmt, err := s.db.Prepare(`INSERT INTO exchanges
        (id, doc_id, user_id, prompt, ai_response, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare exchange insert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(exchange.ID, exchange.DocID, exchange.UserID,
		exchange.Prompt, exchange.AIResponse, exchange.CreatedAt, exchange.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert exchange: %w", err)
	}
	return exchange, nil
}

// ListExchangesByDoc returns the full conversation for one document in
// insertion order. Both tags are required; filtering on doc_id alone would let
// one tenant read another's conversation.
func (s *SQLiteStore) ListExchangesByDoc(docID, userID string) ([]Exchange, error) {
	rows, err := s.db.Query(`SELECT id, doc_id, user_id, prompt, ai_response, created_at, updated_at
        FROM exchanges WHERE doc_id = ? AND user_id = ? ORDER BY created_at ASC, rowid ASC`, docID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []Exchange
	for rows.Next() {
		var ex Exchange
		if err := rows.Scan(&ex.ID, &ex.DocID, &ex.UserID, &ex.Prompt, &ex.AIResponse,
			&ex.CreatedAt, &ex.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange row: %w", err)
		}
		exchanges = append(exchanges, ex)
	}
	return exchanges, rows.Err()
}

// DeleteExchangesByDoc removes every exchange for the document. Idempotent:
// a second call reports zero deleted without error.
func (s *SQLiteStore) DeleteExchangesByDoc(docID, userID string) (int64, error) {
	res, err := s.db.Exec("DELETE FROM exchanges WHERE doc_id = ? AND user_id = ?", docID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete exchanges: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted exchanges: %w", err)
	}
	return affected, nil
}
