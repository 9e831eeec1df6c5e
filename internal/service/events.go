package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-bfa-go/internal/port"
)

const eventTimeout = 3 * time.Second

// notify publishes evt without failing the write that produced it.
func notify(ctx context.Context, pub port.EventPublisher, evt domain.Event, metrics *observability.Metrics, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
	defer cancel()

	if err := pub.Publish(ctx, evt); err != nil {
		metrics.IncrEvent("failed")
		metrics.IncrExternalError("amqp")
		logger.Warn("event publish failed",
			zap.String("type", string(evt.Type)),
			zap.String("user_id", evt.UserID),
			zap.Error(err),
		)
		return
	}
	metrics.IncrEvent("published")
}

// Summary cache keys are "summary:<user>:<month|all>".
const summaryCacheName = "summary"

func summaryKey(userID, month string) string {
	if month == "" {
		month = "all"
	}
	return summaryCacheName + ":" + userID + ":" + month
}

func summaryUserPrefix(userID string) string {
	return summaryCacheName + ":" + userID + ":"
}
