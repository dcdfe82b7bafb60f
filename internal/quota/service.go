package quota

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service tracks how many provider calls each user may still place.
type Service struct {
	repo         Repository
	defaultQuota int
	clock        func() time.Time
}

func NewService(repo Repository, defaultQuota int) *Service {
	return &Service{repo: repo, defaultQuota: defaultQuota, clock: time.Now}
}

func (s *Service) Remaining(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrInvalidArgument
	}
	return s.repo.Remaining(ctx, userID, s.defaultQuota)
}

// Consume debits one call. callRef doubles as the idempotency key, so retrying the
// same call never charges twice.
func (s *Service) Consume(ctx context.Context, userID, callRef string) (int, error) {
	if userID == "" || strings.TrimSpace(callRef) == "" {
		return 0, ErrInvalidArgument
	}
	return s.repo.Apply(ctx, Entry{
		ID:             uuid.NewString(),
		UserID:         userID,
		Delta:          -1,
		Reason:         ReasonCallPlaced,
		ExternalRef:    callRef,
		IdempotencyKey: "call:" + callRef,
		CreatedAt:      s.clock().UTC(),
	}, s.defaultQuota)
}

// Grant adds calls to a user's quota.
func (s *Service) Grant(ctx context.Context, userID string, calls int, idempotencyKey string) (int, error) {
	if userID == "" || calls <= 0 || strings.TrimSpace(idempotencyKey) == "" {
		return 0, ErrInvalidArgument
	}
	return s.repo.Apply(ctx, Entry{
		ID:             uuid.NewString(),
		UserID:         userID,
		Delta:          calls,
		Reason:         ReasonGrant,
		IdempotencyKey: "grant:" + idempotencyKey,
		CreatedAt:      s.clock().UTC(),
	}, s.defaultQuota)
}
