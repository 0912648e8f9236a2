package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrTokenNotFound = errors.New("device token not found")

type DeviceToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	Platform  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TokenRepository owns the device-token registry.
type TokenRepository interface {
	UpsertToken(ctx context.Context, userID uuid.UUID, token, platform string) (*DeviceToken, error)
	ListTokensByUser(ctx context.Context, userID uuid.UUID) ([]DeviceToken, error)
	DeleteToken(ctx context.Context, token string) error
	DeleteTokensByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Pusher hands one payload to the delivery boundary for one device token.
type Pusher interface {
	Push(ctx context.Context, token string, n Notification) error
}

// Gateway fans notifications out to every device registered for a user.
// Delivery is best effort: it reports success, it never fails the caller.
type Gateway struct {
	tokens TokenRepository
	pusher Pusher
	log    *zap.Logger
}

func NewGateway(tokens TokenRepository, pusher Pusher, log *zap.Logger) *Gateway {
	return &Gateway{
		tokens: tokens,
		pusher: pusher,
		log:    log,
	}
}

// SendToUser resolves the user's device tokens and pushes the payload to each.
// It returns true if at least one push was accepted by the boundary.
func (g *Gateway) SendToUser(ctx context.Context, userID uuid.UUID, n Notification) bool {
	tokens, err := g.tokens.ListTokensByUser(ctx, userID)
	if err != nil {
		g.log.Error("resolve device tokens",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return false
	}

	if len(tokens) == 0 {
		g.log.Warn("no device tokens for user", zap.String("user_id", userID.String()))
		return false
	}

	sent := 0
	for _, t := range tokens {
		if err := g.pusher.Push(ctx, t.Token, n); err != nil {
			g.log.Error("push notification",
				zap.String("user_id", userID.String()),
				zap.String("platform", t.Platform),
				zap.Error(err))
			continue
		}
		sent++
	}

	g.log.Info("notification fan-out",
		zap.String("user_id", userID.String()),
		zap.String("title", n.Title),
		zap.Int("sent", sent),
		zap.Int("tokens", len(tokens)))

	return sent > 0
}

// PruneToken drops a token the delivery worker reported as unregistered.
func (g *Gateway) PruneToken(ctx context.Context, token string) {
	if err := g.tokens.DeleteToken(ctx, token); err != nil && !errors.Is(err, ErrTokenNotFound) {
		g.log.Error("prune device token", zap.Error(err))
		return
	}
	g.log.Info("pruned unregistered device token")
}
