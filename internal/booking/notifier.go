package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/teleclinic/telehealth-backend/internal/notify"
)

// Notifier is the best-effort push boundary. Implementations must never block
// a primary operation on delivery failure.
type Notifier interface {
	SendToUser(ctx context.Context, userID uuid.UUID, n notify.Notification) bool
}
