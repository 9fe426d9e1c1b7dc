package model

import (
	"strings"
	"time"

	"cardkey-service/internal/domain"

	"github.com/oklog/ulid/v2"
)

// CardStatus is the lifecycle state of a card. The numeric values are the
// persisted representation and must not change.
type CardStatus int

const (
	CardStatusUnused   CardStatus = 0
	CardStatusUsed     CardStatus = 1
	CardStatusDisabled CardStatus = 2
)

func (s CardStatus) String() string {
	switch s {
	case CardStatusUnused:
		return "unused"
	case CardStatusUsed:
		return "used"
	case CardStatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the known statuses.
func (s CardStatus) Valid() bool {
	return s == CardStatusUnused || s == CardStatusUsed || s == CardStatusDisabled
}

// ParseCardStatus converts the persisted integer into a CardStatus.
func ParseCardStatus(v int) (CardStatus, error) {
	s := CardStatus(v)
	if !s.Valid() {
		return 0, domain.ErrInvalidArgument
	}
	return s, nil
}

type CardType string

const (
	CardTypeTime  CardType = "time"
	CardTypeCount CardType = "count"
)

func (t CardType) Valid() bool { return t == CardTypeTime || t == CardTypeCount }

// VerifyMethod records which transport style last verified a card.
type VerifyMethod string

const (
	VerifyMethodGet  VerifyMethod = "get"
	VerifyMethodPost VerifyMethod = "post"
)

// MethodFromHTTP maps an HTTP method to the stored verify method.
func MethodFromHTTP(m string) VerifyMethod {
	if strings.EqualFold(m, "POST") {
		return VerifyMethodPost
	}
	return VerifyMethodGet
}

// Card is a license token bound to at most one device.
//
// Time cards use DurationDays; count cards use TotalCount/RemainingCount with
// 0 <= RemainingCount <= TotalCount.
type Card struct {
	ID             string
	PlainKey       string
	Fingerprint    string
	Status         CardStatus
	Type           CardType
	DurationDays   int
	TotalCount     int
	RemainingCount int
	AllowReverify  bool
	DeviceID       string
	VerifyMethod   VerifyMethod
	UseTime        *time.Time
	ExpireTime     *time.Time
	CreateTime     time.Time
	Remark         string
}

func (c *Card) IsZero() bool { return c == nil || c.ID == "" }

// Bound reports whether a device is currently attached to the card.
func (c *Card) Bound() bool { return c != nil && strings.TrimSpace(c.DeviceID) != "" }

// Exhausted reports whether a count card has no remaining uses.
func (c *Card) Exhausted() bool {
	return c.Type == CardTypeCount && c.RemainingCount <= 0
}

// CardSpec describes a card to be issued.
type CardSpec struct {
	Type          CardType
	DurationDays  int
	TotalCount    int
	AllowReverify bool
	Remark        string
}

// Validate checks the spec for a single card.
func (s CardSpec) Validate() error {
	switch s.Type {
	case CardTypeTime:
		if s.DurationDays < 0 {
			return domain.ErrInvalidArgument
		}
	case CardTypeCount:
		if s.TotalCount <= 0 {
			return domain.ErrInvalidArgument
		}
	default:
		return domain.ErrInvalidArgument
	}
	return nil
}

// NewCard builds an Unused card from a plain key, its fingerprint and a spec.
func NewCard(plainKey, fingerprint string, spec CardSpec, now time.Time) (*Card, error) {
	if strings.TrimSpace(plainKey) == "" || fingerprint == "" {
		return nil, domain.ErrInvalidArgument
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	c := &Card{
		ID:            ulid.Make().String(),
		PlainKey:      plainKey,
		Fingerprint:   fingerprint,
		Status:        CardStatusUnused,
		Type:          spec.Type,
		AllowReverify: spec.AllowReverify,
		CreateTime:    now,
		Remark:        spec.Remark,
	}
	if spec.Type == CardTypeTime {
		c.DurationDays = spec.DurationDays
	} else {
		c.TotalCount = spec.TotalCount
		c.RemainingCount = spec.TotalCount
	}
	return c, nil
}

// CardFilter narrows card listings for the admin surface.
type CardFilter struct {
	Status *CardStatus
	Type   CardType
	Search string
	Offset int
	Limit  int
}
