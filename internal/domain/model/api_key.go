package model

import (
	"strings"
	"time"

	"cardkey-service/internal/domain"

	"github.com/google/uuid"
)

type APIKeyStatus int

const (
	APIKeyDisabled APIKeyStatus = 0
	APIKeyEnabled  APIKeyStatus = 1
)

func (s APIKeyStatus) Valid() bool { return s == APIKeyDisabled || s == APIKeyEnabled }

// APIKey grants a client access to the public verification endpoint.
type APIKey struct {
	ID          string
	Name        string
	Key         string
	Status      APIKeyStatus
	UseCount    int64
	LastUseTime *time.Time
	CreateTime  time.Time
	Description string
}

func NewAPIKey(name, key, description string) (*APIKey, error) {
	name = strings.TrimSpace(name)
	if name == "" || key == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &APIKey{
		ID:          uuid.NewString(),
		Name:        name,
		Key:         key,
		Status:      APIKeyEnabled,
		CreateTime:  time.Now(),
		Description: description,
	}, nil
}

func (k *APIKey) Enabled() bool { return k != nil && k.Status == APIKeyEnabled }

type APIKeyFilter struct {
	Status *APIKeyStatus
	Offset int
	Limit  int
}
