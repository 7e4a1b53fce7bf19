package service

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"arcadechess/internal/server/storage"

	"github.com/google/uuid"
	"github.com/lixenwraith/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserLimit          = errors.New("user limit reached")
	ErrSessionExpired     = errors.New("session expired or logged out")
)

// User represents a registered user account
type User struct {
	UserID      string
	Username    string
	Email       string
	AccountType string
	CreatedAt   time.Time
	ExpiresAt   *time.Time
}

func userFromRecord(r *storage.UserRecord) *User {
	return &User{
		UserID:      r.UserID,
		Username:    r.Username,
		Email:       r.Email,
		AccountType: r.AccountType,
		CreatedAt:   r.CreatedAt,
		ExpiresAt:   r.ExpiresAt,
	}
}

// CreateUser registers a temporary account. When the table is full the oldest
// temporary account is evicted; if there is none the registration fails.
func (s *Service) CreateUser(username, email, password string) (*User, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err = s.makeRoomForUser(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expires := now.Add(TempUserTTL)
	record := storage.UserRecord{
		UserID:       uuid.New().String(),
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: passwordHash,
		AccountType:  storage.AccountTemp,
		CreatedAt:    now,
		ExpiresAt:    &expires,
	}

	if err = s.store.CreateUser(record); err != nil {
		return nil, err
	}
	return userFromRecord(&record), nil
}

func (s *Service) makeRoomForUser() error {
	total, _, _, err := s.store.GetUserCounts()
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if total < MaxUsers {
		return nil
	}

	oldest, err := s.store.GetOldestTempUser()
	if err != nil {
		return ErrUserLimit
	}
	if err = s.store.DeleteUserByID(oldest.UserID); err != nil {
		return fmt.Errorf("failed to evict temp user: %w", err)
	}
	log.Printf("Evicted temp user %s to make room", oldest.Username)
	return nil
}

// AuthenticateUser accepts a username or an email address as identifier
func (s *Service) AuthenticateUser(identifier, password string) (*User, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	var record *storage.UserRecord
	var err error
	if strings.Contains(identifier, "@") {
		record, err = s.store.GetUserByEmail(identifier)
	} else {
		record, err = s.store.GetUserByUsername(identifier)
	}

	if err != nil {
		// Keep timing similar for unknown users
		auth.HashPassword(password)
		return nil, ErrInvalidCredentials
	}
	if err = auth.VerifyPassword(password, record.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return userFromRecord(record), nil
}

func (s *Service) UpdateLastLogin(userID string) error {
	if s.store == nil {
		return ErrStorageDisabled
	}
	return s.store.UpdateUserLastLogin(userID, time.Now().UTC())
}

func (s *Service) GetUserByID(userID string) (*User, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	record, err := s.store.GetUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("user not found")
	}
	return userFromRecord(record), nil
}

// GenerateUserToken opens a new session for the user and returns a JWT bound to it.
// Any earlier session of the same user stops validating.
func (s *Service) GenerateUserToken(userID string) (string, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	sessionID := uuid.New().String()
	if err = s.store.CreateSession(storage.SessionRecord{
		SessionID: sessionID,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionTTL),
	}); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	claims := map[string]any{
		"username": user.Username,
		"email":    user.Email,
		"sid":      sessionID,
	}
	return auth.GenerateHS256Token(s.jwtSecret, userID, claims, SessionTTL)
}

// ValidateToken verifies the signature and, with storage enabled, that the session is still open
func (s *Service) ValidateToken(token string) (string, map[string]any, error) {
	userID, claims, err := auth.ValidateHS256Token(s.jwtSecret, token)
	if err != nil {
		return "", nil, err
	}

	if s.store != nil {
		sid, _ := claims["sid"].(string)
		if sid == "" {
			return "", nil, ErrSessionExpired
		}
		valid, err := s.store.IsSessionValid(sid)
		if err != nil {
			return "", nil, fmt.Errorf("session lookup failed: %w", err)
		}
		if !valid {
			return "", nil, ErrSessionExpired
		}
	}

	return userID, claims, nil
}

// Logout closes the user's session so outstanding tokens stop validating
func (s *Service) Logout(userID string) error {
	if s.store == nil {
		return ErrStorageDisabled
	}
	return s.store.DeleteSessionByUserID(userID)
}
