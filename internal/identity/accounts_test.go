package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/asha-storefront/internal/infrastructure/docstore/mocks"
)

func TestAccounts_Register_Success(t *testing.T) {
	store := mocks.NewMockStore()
	accounts := NewAccounts(store)

	user, err := accounts.Register(context.Background(), "Asha@Example.com", "password123", "Asha", RoleCustomer)

	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "asha@example.com", user.Email)
	assert.Equal(t, "Asha", user.Name)
	assert.Equal(t, RoleCustomer, user.Role)
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.True(t, store.Contains(UsersCollection, user.ID))
}

func TestAccounts_Register_EmailTaken(t *testing.T) {
	store := mocks.NewMockStore()
	accounts := NewAccounts(store)

	_, err := accounts.Register(context.Background(), "asha@example.com", "password123", "Asha", RoleCustomer)
	require.NoError(t, err)

	// Same email with different casing is still taken
	_, err = accounts.Register(context.Background(), "ASHA@example.com", "otherpassword", "Other", RoleCustomer)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAccounts_Register_UnknownRole(t *testing.T) {
	store := mocks.NewMockStore()
	accounts := NewAccounts(store)

	_, err := accounts.Register(context.Background(), "asha@example.com", "password123", "Asha", "superuser")

	assert.ErrorIs(t, err, ErrUnknownRole)
	assert.Empty(t, store.PutCalls)
}

func TestAccounts_Register_WeakPassword(t *testing.T) {
	store := mocks.NewMockStore()
	accounts := NewAccounts(store)

	_, err := accounts.Register(context.Background(), "asha@example.com", "short", "Asha", RoleCustomer)

	assert.ErrorIs(t, err, ErrPasswordTooShort)
	assert.Empty(t, store.PutCalls)
}

func TestAccounts_Authenticate_Success(t *testing.T) {
	store := mocks.NewMockStore()
	accounts := NewAccounts(store)

	registered, err := accounts.Register(context.Background(), "rider@example.com", "password123", "Rafiq", RoleRider)
	require.NoError(t, err)

	user, err := accounts.Authenticate(context.Background(), "rider@example.com", "password123")

	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, RoleRider, user.Role)
}

func TestAccounts_Authenticate_WrongPassword(t *testing.T) {
	store := mocks.NewMockStore()
	accounts := NewAccounts(store)

	_, err := accounts.Register(context.Background(), "asha@example.com", "password123", "Asha", RoleCustomer)
	require.NoError(t, err)

	_, err = accounts.Authenticate(context.Background(), "asha@example.com", "wrongpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAccounts_Authenticate_UnknownEmail(t *testing.T) {
	store := mocks.NewMockStore()
	accounts := NewAccounts(store)

	_, err := accounts.Authenticate(context.Background(), "nobody@example.com", "password123")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAccounts_Authenticate_StoreError(t *testing.T) {
	store := mocks.NewMockStore()
	store.ListErr = errors.New("connection refused")
	accounts := NewAccounts(store)

	_, err := accounts.Authenticate(context.Background(), "asha@example.com", "password123")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestAccounts_Get(t *testing.T) {
	store := mocks.NewMockStore()
	accounts := NewAccounts(store)

	registered, err := accounts.Register(context.Background(), "asha@example.com", "password123", "Asha", RoleCustomer)
	require.NoError(t, err)

	user, err := accounts.Get(context.Background(), registered.ID)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "asha@example.com", user.Email)

	missing, err := accounts.Get(context.Background(), "no-such-user")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
