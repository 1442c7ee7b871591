package identity

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/events"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/notify"
)

// Notifier delivers user-facing status messages. Implementations never
// raise; the service additionally shields itself so that no notifier
// behavior can alter a linking outcome that is already decided.
type Notifier interface {
	Notify(ctx context.Context, userID, kind, title, message string)
}

// EventPublisher publishes platform events. Optional; a nil publisher
// disables event emission.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, subject string, payload any) error
}

// LinkResult is the decided outcome of resolving an external identity
// against the repository.
type LinkResult struct {
	UserID  string
	Link    *AccountLink
	Created bool // false for an idempotent re-link
}

// LinkService owns step 5 and 6 of the callback flow: resolving an
// external identity to an account link and dispatching the best-effort
// notification once the link is durably committed.
type LinkService struct {
	repo      Repository
	notifier  Notifier
	publisher EventPublisher
	logger    *zap.Logger
}

func NewLinkService(
	repo Repository,
	notifier Notifier,
	publisher EventPublisher,
	logger *zap.Logger,
) *LinkService {
	return &LinkService{
		repo:      repo,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
	}
}

// ResolveLink maps an external identity onto a platform account.
//
// An existing link owned by someone other than the requesting user is a
// conflict (ErrLinkConflict); the existing link is never reassigned. An
// existing link owned by the requesting user, or found after losing the
// creation race, is an idempotent success. Repository failures are fatal
// for the request; the unique constraints guarantee no partial state is
// left behind.
func (s *LinkService) ResolveLink(
	ctx context.Context,
	profile *ExternalIdentity,
	intent Intent,
	requestingUserID string,
) (*LinkResult, error) {
	if profile == nil || profile.ExternalID == "" {
		return nil, errors.New("identity: profile missing external id")
	}

	existing, err := s.repo.FindLinkByExternalID(ctx, profile.Provider, profile.ExternalID)
	if err == nil {
		result, err := s.acceptExisting(existing, requestingUserID)
		if err != nil {
			return nil, err
		}
		s.dispatchOutcome(ctx, result, profile)
		return result, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("identity: lookup link: %w", err)
	}

	userID := requestingUserID
	if intent != IntentLink || userID == "" {
		// Login flow: resolve the platform account first, creating it on
		// first contact. Delegated entirely to the repository.
		userID, err = s.repo.FindOrCreateAccount(ctx, profile)
		if err != nil {
			return nil, fmt.Errorf("identity: resolve account: %w", err)
		}
	}

	link, err := s.repo.CreateLink(ctx, userID, profile.Provider, profile.ExternalID)
	if errors.Is(err, ErrDuplicateLink) {
		// Lost a race on (provider, external_id): the other request's row
		// is the link. The loser takes the found-and-consistent branch.
		existing, ferr := s.repo.FindLinkByExternalID(ctx, profile.Provider, profile.ExternalID)
		if ferr != nil {
			return nil, fmt.Errorf("identity: refetch link after race: %w", ferr)
		}
		result, rerr := s.acceptExisting(existing, requestingUserID)
		if rerr != nil {
			return nil, rerr
		}
		s.dispatchOutcome(ctx, result, profile)
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("identity: create link: %w", err)
	}

	result := &LinkResult{UserID: userID, Link: link, Created: true}
	s.dispatchOutcome(ctx, result, profile)
	return result, nil
}

// Unlink removes the user's link for a provider.
func (s *LinkService) Unlink(ctx context.Context, userID, provider string) error {
	return s.repo.DeleteLink(ctx, userID, provider)
}

// Links lists the user's account links.
func (s *LinkService) Links(ctx context.Context, userID string) ([]*AccountLink, error) {
	return s.repo.LinksByUser(ctx, userID)
}

func (s *LinkService) acceptExisting(link *AccountLink, requestingUserID string) (*LinkResult, error) {
	if requestingUserID != "" && link.UserID != requestingUserID {
		return nil, ErrLinkConflict
	}
	return &LinkResult{UserID: link.UserID, Link: link, Created: false}, nil
}

// dispatchOutcome runs the best-effort side effects of a decided link:
// the user notification (new or idempotent) and, for a new link, the
// platform event. Runs strictly after the link is committed and is
// hardened against anything the notifier or publisher might do.
func (s *LinkService) dispatchOutcome(ctx context.Context, result *LinkResult, profile *ExternalIdentity) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("link side effects panicked",
				zap.String("user_id", result.UserID),
				zap.String("provider", profile.Provider),
				zap.Any("panic", rec),
			)
		}
	}()

	s.notifier.Notify(ctx, result.UserID,
		notify.KindAccountLinked,
		"Account linked",
		fmt.Sprintf("Your %s account is now connected.", profile.Provider),
	)

	if s.publisher == nil || !result.Created {
		return
	}
	payload := events.AccountLinkedPayload{
		UserID:     result.UserID,
		Provider:   result.Link.Provider,
		ExternalID: result.Link.ExternalID,
		LinkedAt:   result.Link.LinkedAt,
	}
	if err := s.publisher.Publish(ctx, events.AccountLinked, result.UserID, payload); err != nil {
		s.logger.Error("failed to publish account linked event",
			zap.String("user_id", result.UserID),
			zap.String("provider", profile.Provider),
			zap.Error(err),
		)
	}
}
