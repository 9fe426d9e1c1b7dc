// File: internal/usecase/verify_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"cardkey-service/internal/domain"
	"cardkey-service/internal/domain/model"
	"cardkey-service/internal/domain/ports/adapter"
	"cardkey-service/internal/domain/ports/repository"
	ucport "cardkey-service/internal/domain/ports/usecase"
	"cardkey-service/internal/infra/logging"
	"cardkey-service/internal/infra/metrics"
)

var _ ucport.Verifier = (*VerifyUseCase)(nil)

var tracer = otel.Tracer("cardkey-service/usecase")

// Fingerprinter maps a plain card key to its stored lookup digest.
type Fingerprinter interface {
	Fingerprint(plainKey string) string
}

// VerifyUseCase is the card verification state machine. Every card mutation
// goes through a compare-and-set on the repository; a lost race is re-read
// and retried once.
type VerifyUseCase struct {
	cards        repository.CardRepository
	codec        Fingerprinter
	events       adapter.EventPublisher
	storeTimeout time.Duration
	now          func() time.Time
	dev          bool

	log *zerolog.Logger
}

type VerifyOption func(*VerifyUseCase)

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) VerifyOption {
	return func(uc *VerifyUseCase) { uc.now = now }
}

// WithDevLogging disables key and device redaction in logs.
func WithDevLogging(dev bool) VerifyOption {
	return func(uc *VerifyUseCase) { uc.dev = dev }
}

func NewVerifyUseCase(
	cards repository.CardRepository,
	codec Fingerprinter,
	events adapter.EventPublisher,
	storeTimeout time.Duration,
	logger *zerolog.Logger,
	opts ...VerifyOption,
) *VerifyUseCase {
	uc := &VerifyUseCase{
		cards:        cards,
		codec:        codec,
		events:       events,
		storeTimeout: storeTimeout,
		now:          time.Now,
		log:          logger,
	}
	for _, o := range opts {
		o(uc)
	}
	return uc
}

// maxAttempts bounds conflict retries: the first try plus one re-read.
const maxAttempts = 2

func (uc *VerifyUseCase) Verify(ctx context.Context, plainKey, deviceID string, method model.VerifyMethod) ucport.Outcome {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "VerifyUseCase.Verify")
	defer span.End()

	plainKey = strings.TrimSpace(plainKey)
	deviceID = strings.TrimSpace(deviceID)

	out := uc.verify(ctx, plainKey, deviceID, method)

	span.SetAttributes(attribute.String("card.outcome", out.Kind.String()))
	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, out.Kind.String())
	}
	metrics.ObserveVerify(out.Kind.String(), float64(time.Since(start).Microseconds())/1000)

	log := logging.With(ctx, uc.log)
	ev := log.Info()
	if out.Kind == ucport.OutcomeSystemError {
		ev = log.Error().Err(out.Err)
	}
	ev.Str("card_key", logging.Redact(plainKey, uc.dev)).
		Str("device_id", logging.Redact(deviceID, uc.dev)).
		Str("method", string(method)).
		Str("outcome", out.Kind.String()).
		Dur("elapsed", time.Since(start)).
		Msg("card verification")

	if out.Kind.Success() && uc.events != nil {
		err := uc.events.PublishVerification(ctx, adapter.VerificationEvent{
			CardID:   out.Card.ID,
			Outcome:  out.Kind.String(),
			CardType: string(out.Card.Type),
			DeviceID: deviceID,
			At:       uc.now(),
		})
		if err != nil {
			log.Warn().Err(err).Str("card_id", out.Card.ID).Msg("publish verification event")
		}
	}
	return out
}

func (uc *VerifyUseCase) verify(ctx context.Context, plainKey, deviceID string, method model.VerifyMethod) ucport.Outcome {
	if plainKey == "" || deviceID == "" {
		return ucport.Outcome{Kind: ucport.OutcomeInvalidOrBound}
	}
	if uc.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.storeTimeout)
		defer cancel()
	}

	fp := uc.codec.Fingerprint(plainKey)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		card, err := uc.cards.FindByFingerprint(ctx, repository.NoTX, fp)
		if errors.Is(err, domain.ErrNotFound) {
			return ucport.Outcome{Kind: ucport.OutcomeInvalidOrBound}
		}
		if err != nil {
			return systemError(fmt.Errorf("find card: %w", err))
		}

		out, op, err := uc.decide(ctx, card, deviceID, method)
		if errors.Is(err, domain.ErrConflict) {
			metrics.IncStoreConflict(op)
			logging.With(ctx, uc.log).Debug().Str("card_id", card.ID).Str("op", op).Int("attempt", attempt).Msg("card changed concurrently")
			continue
		}
		if err != nil {
			return systemError(fmt.Errorf("%s: %w", op, err))
		}
		return out
	}
	return systemError(fmt.Errorf("card %s: %w after %d attempts", fp, domain.ErrConflict, maxAttempts))
}

// decide applies one step of the state machine to a freshly read card. op
// names the store operation attempted, if any.
func (uc *VerifyUseCase) decide(ctx context.Context, card *model.Card, deviceID string, method model.VerifyMethod) (ucport.Outcome, string, error) {
	if card.Status == model.CardStatusDisabled {
		return ucport.Outcome{Kind: ucport.OutcomeDisabledByAdmin}, "", nil
	}
	if card.Exhausted() {
		return ucport.Outcome{Kind: ucport.OutcomeCountExhausted}, "", nil
	}

	switch card.Status {
	case model.CardStatusUsed:
		if card.DeviceID == deviceID {
			return uc.reverify(ctx, card)
		}
		if card.Bound() {
			return ucport.Outcome{Kind: ucport.OutcomeInvalidOrBound}, "", nil
		}
		updated, err := uc.cards.RebindDevice(ctx, repository.NoTX, card.ID, deviceID, method)
		if err != nil {
			return ucport.Outcome{}, "rebind", err
		}
		return ucport.Outcome{Kind: ucport.OutcomeRebound, Card: updated}, "rebind", nil

	case model.CardStatusUnused:
		return uc.activate(ctx, card, deviceID, method)

	default:
		return ucport.Outcome{}, "status", fmt.Errorf("%w: unknown card status %d", domain.ErrReadDatabaseRow, card.Status)
	}
}

func (uc *VerifyUseCase) reverify(ctx context.Context, card *model.Card) (ucport.Outcome, string, error) {
	if !card.AllowReverify {
		return ucport.Outcome{Kind: ucport.OutcomeReverifyNotAllowed}, "", nil
	}
	switch card.Type {
	case model.CardTypeCount:
		updated, err := uc.cards.ReverifyCountDecrement(ctx, repository.NoTX, card.ID, card.DeviceID, card.RemainingCount, card.RemainingCount-1)
		if err != nil {
			return ucport.Outcome{}, "reverify_count", err
		}
		return ucport.Outcome{Kind: ucport.OutcomeReverified, Card: updated}, "reverify_count", nil
	case model.CardTypeTime:
		return ucport.Outcome{Kind: ucport.OutcomeReverified, Card: card}, "", nil
	default:
		return ucport.Outcome{}, "type", fmt.Errorf("%w: unknown card type %q", domain.ErrReadDatabaseRow, card.Type)
	}
}

func (uc *VerifyUseCase) activate(ctx context.Context, card *model.Card, deviceID string, method model.VerifyMethod) (ucport.Outcome, string, error) {
	now := uc.now()
	switch card.Type {
	case model.CardTypeTime:
		var expire *time.Time
		if card.DurationDays > 0 {
			e := now.AddDate(0, 0, card.DurationDays)
			expire = &e
		}
		updated, err := uc.cards.ActivateTime(ctx, repository.NoTX, card.ID, deviceID, method, now, card.DurationDays, expire)
		if err != nil {
			return ucport.Outcome{}, "activate_time", err
		}
		return ucport.Outcome{Kind: ucport.OutcomeActivated, Card: updated}, "activate_time", nil
	case model.CardTypeCount:
		updated, err := uc.cards.ActivateCount(ctx, repository.NoTX, card.ID, deviceID, method, now, card.TotalCount)
		if err != nil {
			return ucport.Outcome{}, "activate_count", err
		}
		return ucport.Outcome{Kind: ucport.OutcomeActivated, Card: updated}, "activate_count", nil
	default:
		return ucport.Outcome{}, "type", fmt.Errorf("%w: unknown card type %q", domain.ErrReadDatabaseRow, card.Type)
	}
}

func systemError(err error) ucport.Outcome {
	return ucport.Outcome{Kind: ucport.OutcomeSystemError, Err: err}
}
