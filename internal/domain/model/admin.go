package model

import (
	"strings"
	"time"

	"cardkey-service/internal/domain"

	"github.com/google/uuid"
)

// Admin is an operator allowed to manage cards, API keys and settings.
type Admin struct {
	ID           string
	Username     string
	PasswordHash string
	CreateTime   time.Time
	LastLogin    *time.Time
}

func NewAdmin(id, username, passwordHash string) (*Admin, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if strings.TrimSpace(username) == "" || passwordHash == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Admin{
		ID:           id,
		Username:     strings.TrimSpace(username),
		PasswordHash: passwordHash,
		CreateTime:   time.Now(),
	}, nil
}

func (a *Admin) IsZero() bool { return a == nil || a.ID == "" }
