package users_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pagemetry/internal/testsupport"
	"pagemetry/internal/users"
)

func TestCreateUser(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()

	t.Run("creates a user with a hashed password", func(t *testing.T) {
		user, err := users.CreateUser(db, logger, users.CreateUserInput{
			Username:  "alice",
			Email:     "alice@example.com",
			Password:  "super-secret-1",
			FirstName: "Alice",
		})
		require.NoError(t, err)
		assert.NotZero(t, user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.NotEmpty(t, user.EncryptedPassword)
		assert.NotEqual(t, "super-secret-1", user.EncryptedPassword)
	})

	t.Run("rejects duplicate username or email", func(t *testing.T) {
		_, err := users.CreateUser(db, logger, users.CreateUserInput{
			Username: "alice",
			Email:    "other@example.com",
			Password: "pw123456",
		})
		assert.ErrorIs(t, err, users.ErrUserExists)

		_, err = users.CreateUser(db, logger, users.CreateUserInput{
			Username: "alice2",
			Email:    "alice@example.com",
			Password: "pw123456",
		})
		assert.ErrorIs(t, err, users.ErrUserExists)
	})

	t.Run("rejects empty required fields", func(t *testing.T) {
		_, err := users.CreateUser(db, logger, users.CreateUserInput{Email: "x@example.com", Password: "pw"})
		assert.Error(t, err)

		_, err = users.CreateUser(db, logger, users.CreateUserInput{Username: "x", Password: "pw"})
		assert.Error(t, err)

		_, err = users.CreateUser(db, logger, users.CreateUserInput{Username: "x", Email: "x@example.com"})
		assert.Error(t, err)
	})
}

func TestCheckAvailability(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	testsupport.CreateTestUser(t, db, "bob", "bob@example.com", "pw123456")

	availability, err := users.CheckAvailability(db, "bob", "free@example.com")
	require.NoError(t, err)
	assert.True(t, availability.UsernameTaken)
	assert.False(t, availability.EmailTaken)

	availability, err = users.CheckAvailability(db, "", "bob@example.com")
	require.NoError(t, err)
	assert.False(t, availability.UsernameTaken)
	assert.True(t, availability.EmailTaken)
}

func TestUpdateUser(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	user := testsupport.CreateTestUser(t, db, "carol", "carol@example.com", "pw123456")

	t.Run("updates provided fields only", func(t *testing.T) {
		updated, err := users.UpdateUser(db, logger, user.ID, users.UpdateUserInput{
			FirstName: "Carol",
		})
		require.NoError(t, err)
		assert.Equal(t, "Carol", updated.FirstName)
		assert.Equal(t, "carol@example.com", updated.Email)
	})

	t.Run("missing user yields record not found", func(t *testing.T) {
		_, err := users.UpdateUser(db, logger, 9999, users.UpdateUserInput{FirstName: "X"})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestDeleteUser(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	user := testsupport.CreateTestUser(t, db, "dave", "dave@example.com", "pw123456")

	require.NoError(t, users.DeleteUser(db, logger, user.ID))

	_, err := users.FindByID(db, user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	err = users.DeleteUser(db, logger, user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestChangePassword(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	user := testsupport.CreateTestUser(t, db, "erin", "erin@example.com", "pw123456")
	before := user.EncryptedPassword

	require.NoError(t, users.ChangePassword(db, "erin@example.com", "new-password-99"))

	after, err := users.FindByEmail(db, "erin@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, before, after.EncryptedPassword)

	assert.Error(t, users.ChangePassword(db, "erin@example.com", ""))
	assert.Error(t, users.ChangePassword(db, "missing@example.com", "whatever123"))
}
