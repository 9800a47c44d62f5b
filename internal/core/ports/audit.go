package ports

import (
	"context"

	"github.com/forumhub/auth-service/internal/core/domain"
)

// AuditPublisher accepts auth events for asynchronous recording. Publish
// never blocks the calling request; an overloaded sink may drop events.
type AuditPublisher interface {
	Publish(event domain.AuthEvent)
}

// AuditRecorder persists auth events to the audit store.
type AuditRecorder interface {
	Record(ctx context.Context, event domain.AuthEvent) error
}
