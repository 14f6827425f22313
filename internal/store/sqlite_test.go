package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *SQLiteStore, email string) *User {
	t.Helper()
	user := NewUser("Ada Lovelace", email, "hashed-password")
	require.NoError(t, s.CreateUser(user))
	return user
}

func TestCreateAndGetUser(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	user := createTestUser(t, s, "ada@example.com")

	byEmail, err := s.GetUserByEmail("ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "Ada Lovelace", byEmail.Fullname)
	assert.False(t, byEmail.Verified)
	assert.Nil(t, byEmail.OTPCode)

	byID, err := s.GetUserByID(user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, user.Email, byID.Email)
}

func TestGetUser_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	user, err := s.GetUserByEmail("nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	createTestUser(t, s, "ada@example.com")
	err := s.CreateUser(NewUser("Other Ada", "ada@example.com", "hash"))
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestOTPLifecycle(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	user := createTestUser(t, s, "ada@example.com")
	expires := time.Now().UTC().Add(10 * time.Minute)
	require.NoError(t, s.SetUserOTP(user.ID, "123", expires))

	byOTP, err := s.GetUserByOTP("123")
	require.NoError(t, err)
	require.NotNil(t, byOTP)
	assert.Equal(t, user.ID, byOTP.ID)
	require.NotNil(t, byOTP.OTPExpiresAt)
	assert.WithinDuration(t, expires, *byOTP.OTPExpiresAt, time.Second)

	require.NoError(t, s.MarkUserVerified(user.ID))

	verified, err := s.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.True(t, verified.Verified)
	assert.Nil(t, verified.OTPCode)

	gone, err := s.GetUserByOTP("123")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestUpdateUserPassword_ClearsOTP(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	user := createTestUser(t, s, "ada@example.com")
	require.NoError(t, s.SetUserOTP(user.ID, "456", time.Now().UTC().Add(10*time.Minute)))
	require.NoError(t, s.UpdateUserPassword(user.ID, "new-hash"))

	updated, err := s.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", updated.PasswordHash)
	assert.Nil(t, updated.OTPCode)
}

func TestUpdateUser_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	assert.Error(t, s.MarkUserVerified("missing-id"))
	assert.Error(t, s.UpdateUserPassword("missing-id", "hash"))
}

func TestAppendAndListExchanges_InsertionOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	user := createTestUser(t, s, "ada@example.com")

	first, err := s.AppendExchange("doc-1", user.ID, "What was the revenue growth?", "Revenue grew 10%.")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "doc-1", first.DocID)

	_, err = s.AppendExchange("doc-1", user.ID, "And costs?", "Costs were flat.")
	require.NoError(t, err)

	exchanges, err := s.ListExchangesByDoc("doc-1", user.ID)
	require.NoError(t, err)
	require.Len(t, exchanges, 2)
	assert.Equal(t, "What was the revenue growth?", exchanges[0].Prompt)
	assert.Equal(t, "Revenue grew 10%.", exchanges[0].AIResponse)
	assert.Equal(t, "And costs?", exchanges[1].Prompt)
}

func TestListExchanges_ScopedToOwner(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	alice := createTestUser(t, s, "alice@example.com")
	bob := createTestUser(t, s, "bob@example.com")

	_, err := s.AppendExchange("doc-1", alice.ID, "alice's question", "alice's answer")
	require.NoError(t, err)

	// Bob guessing Alice's doc_id sees nothing.
	exchanges, err := s.ListExchangesByDoc("doc-1", bob.ID)
	require.NoError(t, err)
	assert.Empty(t, exchanges)
}

func TestDeleteExchangesByDoc_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	user := createTestUser(t, s, "ada@example.com")
	_, err := s.AppendExchange("doc-1", user.ID, "q1", "a1")
	require.NoError(t, err)
	_, err = s.AppendExchange("doc-1", user.ID, "q2", "a2")
	require.NoError(t, err)
	_, err = s.AppendExchange("doc-2", user.ID, "other doc", "answer")
	require.NoError(t, err)

	deleted, err := s.DeleteExchangesByDoc("doc-1", user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	// Second delete matches nothing and is not an error.
	deleted, err = s.DeleteExchangesByDoc("doc-1", user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, deleted)

	remaining, err := s.ListExchangesByDoc("doc-2", user.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
