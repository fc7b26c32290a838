// Package users provides user account management.
package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stonkshq/stonks/internal/database"
	"github.com/stonkshq/stonks/pkg/models"
)

var (
	// ErrNotFound is returned when no user matches the given identifier.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("email already taken")
	// ErrUsernameTaken is returned when the username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrHasPendingOrders is returned when deleting a user that still has
	// open orders.
	ErrHasPendingOrders = errors.New("user still has pending orders")
)

// ValidationError is returned for malformed emails or usernames.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

var (
	emailPattern    = regexp.MustCompile(`^\w+@\w+\.\w+$`)
	usernamePattern = regexp.MustCompile(`^\w+$`)
)

// Service implements user CRUD operations.
type Service struct {
	logger *zap.Logger
	store  *database.Store
}

// NewService creates a new user service.
func NewService(logger *zap.Logger, store *database.Store) *Service {
	return &Service{logger: logger, store: store}
}

// Create registers a new user with a zero balance and no holdings.
func (s *Service) Create(ctx context.Context, email, username string) (*models.User, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := s.checkUniqueness(ctx, email, username, uuid.Nil); err != nil {
		return nil, err
	}

	user := &models.User{
		UUID:     uuid.New(),
		Email:    email,
		Username: username,
		Balance:  decimal.Zero,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created",
		zap.String("user", user.UUID.String()),
		zap.String("username", username))
	return user, nil
}

// Get returns the user with the given UUID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.FindUserByUUID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]models.User, error) {
	return s.store.FindAllUsers(ctx)
}

// Update changes a user's email and username.
func (s *Service) Update(ctx context.Context, id uuid.UUID, email, username string) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := s.checkUniqueness(ctx, email, username, id); err != nil {
		return nil, err
	}

	user.Email = email
	user.Username = username
	if err := s.store.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user. Users with open orders cannot be deleted.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	pending, err := s.store.CountPendingOrdersByOwner(ctx, user.ID)
	if err != nil {
		return err
	}
	if pending > 0 {
		return ErrHasPendingOrders
	}

	if err := s.store.DeleteUser(ctx, user); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.String("user", id.String()))
	return nil
}

// checkUniqueness verifies that email and username are not taken by another
// user. self is the UUID of the user being updated, uuid.Nil on create.
func (s *Service) checkUniqueness(ctx context.Context, email, username string, self uuid.UUID) error {
	existing, err := s.store.FindUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return err
	}
	if existing != nil && existing.UUID != self {
		return ErrEmailTaken
	}

	existing, err = s.store.FindUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return err
	}
	if existing != nil && existing.UUID != self {
		return ErrUsernameTaken
	}
	return nil
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Value: email}
	}
	return nil
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return &ValidationError{Field: "username", Value: username}
	}
	return nil
}
