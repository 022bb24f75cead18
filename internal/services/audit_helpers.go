package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/charlesng35/tenancy/internal/auditctx"
	"github.com/charlesng35/tenancy/pkg/logger"
)

// recordAudit logs the supplied entry while tolerating audit failures. Request
// metadata carried by the context fills in fields the caller left empty.
func recordAudit(audit *AuditService, ctx context.Context, entry AuditEntry) {
	if audit == nil {
		return
	}
	if actor, ok := auditctx.FromContext(ctx); ok {
		if entry.ActorID == "" {
			entry.ActorID = actor.UserID
		}
		if entry.IPAddress == "" {
			entry.IPAddress = actor.IPAddress
		}
	}
	if err := audit.Log(ctx, entry); err != nil {
		logger.WithModule("audit").Warn("failed to record audit entry",
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}
