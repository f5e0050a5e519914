package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"mukha.dev/mukha-chat/internal/auth"
	"mukha.dev/mukha-chat/internal/store"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrEmailRestricted    = errors.New("email is not allowed to register")
	ErrEmailTaken         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Display names are short and plain: at most 12 characters from
// [A-Za-z0-9'].
var displayNamePattern = regexp.MustCompile(`^[A-Za-z0-9']{0,12}$`)

type AccountService struct {
	dbStore *store.SQLiteStore
	policy  AdminPolicy
}

func NewAccountService(db *store.SQLiteStore, policy AdminPolicy) *AccountService {
	return &AccountService{
		dbStore: db,
		policy:  policy,
	}
}

func (s *AccountService) Register(email, password string, displayName *string) (*store.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	if err := validateDisplayName(displayName); err != nil {
		return nil, err
	}
	if s.policy.IsRestricted(email) {
		return nil, ErrEmailRestricted
	}

	existing, err := s.dbStore.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	userCount, err := s.dbStore.CountUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	isAdmin := s.policy.ShouldGrantAdmin(email, userCount)

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.dbStore.CreateUser(email, passwordHash, displayName, isAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *AccountService) Login(email, password string) (*store.User, error) {
	user, err := s.dbStore.GetUserByEmail(strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser resolves a user by ID. Returns (nil, nil) when the record is
// absent.
func (s *AccountService) GetUser(userID int64) (*store.User, error) {
	return s.dbStore.GetUserByID(userID)
}

// ProfileUpdate carries the optional fields of an update-profile request.
// Nil means "leave unchanged".
type ProfileUpdate struct {
	Email       *string
	Password    *string
	DisplayName *string
}

// UpdateProfile applies the supplied fields to the caller's own record.
// The session token is not re-issued.
func (s *AccountService) UpdateProfile(userID int64, update ProfileUpdate) (*store.User, error) {
	user, err := s.dbStore.GetUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, store.ErrNotFound
	}

	if update.DisplayName != nil {
		if err := validateDisplayName(update.DisplayName); err != nil {
			return nil, err
		}
		user.DisplayName = update.DisplayName
	}

	if update.Email != nil {
		newEmail := strings.TrimSpace(*update.Email)
		if newEmail == "" {
			return nil, fmt.Errorf("%w: email cannot be empty", ErrValidation)
		}
		if newEmail != user.Email {
			existing, err := s.dbStore.GetUserByEmail(newEmail)
			if err != nil {
				return nil, fmt.Errorf("failed to check existing user: %w", err)
			}
			if existing != nil {
				return nil, ErrEmailTaken
			}
			user.Email = newEmail
		}
	}

	if update.Password != nil {
		if *update.Password == "" {
			return nil, fmt.Errorf("%w: password cannot be empty", ErrValidation)
		}
		passwordHash, err := auth.HashPassword(*update.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = passwordHash
	}

	if err := s.dbStore.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

func validateDisplayName(displayName *string) error {
	if displayName == nil {
		return nil
	}
	if !displayNamePattern.MatchString(*displayName) {
		return fmt.Errorf("%w: display name must be at most 12 characters of letters, digits or apostrophes", ErrValidation)
	}
	return nil
}
