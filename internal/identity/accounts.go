package identity

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/example/asha-storefront/internal/infrastructure/docstore"
	"github.com/google/uuid"
)

// UsersCollection is the document collection holding accounts.
const UsersCollection = "users"

var (
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnknownRole        = errors.New("unknown role")
)

// User is an account document.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// userDoc is the persisted shape; the hash never leaves the package
// through User's JSON.
type userDoc struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Accounts resolves and registers actors against the user collection.
type Accounts struct {
	store docstore.Store
}

func NewAccounts(store docstore.Store) *Accounts {
	return &Accounts{store: store}
}

// Register creates an account with a hashed password.
func (a *Accounts) Register(ctx context.Context, email, password, name, role string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !ValidRole(role) {
		return nil, ErrUnknownRole
	}
	if existing, err := a.findByEmail(ctx, email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	doc := userDoc{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		CreatedAt:    time.Now(),
	}
	if err := a.store.Put(ctx, UsersCollection, doc.ID, doc); err != nil {
		return nil, err
	}
	return docToUser(doc), nil
}

// Authenticate resolves an actor from credentials.
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (*User, error) {
	doc, err := a.findByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if doc == nil || !CheckPassword(password, doc.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return docToUser(*doc), nil
}

// Get loads an account by id.
func (a *Accounts) Get(ctx context.Context, userID string) (*User, error) {
	var doc userDoc
	ok, err := a.store.Get(ctx, UsersCollection, userID, &doc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return docToUser(doc), nil
}

func (a *Accounts) findByEmail(ctx context.Context, email string) (*userDoc, error) {
	docs, err := a.store.List(ctx, UsersCollection)
	if err != nil {
		return nil, err
	}
	for _, raw := range docs {
		var doc userDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		if doc.Email == email {
			return &doc, nil
		}
	}
	return nil, nil
}

func docToUser(doc userDoc) *User {
	return &User{
		ID:           doc.ID,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Name:         doc.Name,
		Role:         doc.Role,
		CreatedAt:    doc.CreatedAt,
	}
}
