package service

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"gaming-rewards-backend/internal/common/logger"
	"gaming-rewards-backend/internal/features/treasury/models"
)

const eventStream = "treasury:events"

// Events receives ledger events after state is committed. Emission is
// best-effort: the ledger state is already consistent when it runs.
type Events interface {
	EmitHarvest(ctx context.Context, ev *models.HarvestEvent)
	EmitClaim(ctx context.Context, ev *models.ClaimEvent)
}

// StreamEvents publishes ledger events onto a redis stream for downstream
// consumers (payout reconciliation, audit).
type StreamEvents struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewStreamEvents(client *redis.Client) *StreamEvents {
	return &StreamEvents{client: client, log: logger.For("treasury.events")}
}

func (e *StreamEvents) EmitHarvest(ctx context.Context, ev *models.HarvestEvent) {
	err := e.client.XAdd(ctx, &redis.XAddArgs{
		Stream: eventStream,
		Values: map[string]interface{}{
			"type":          "harvest",
			"amount":        strconv.FormatUint(ev.Amount, 10),
			"user_share":    strconv.FormatUint(ev.UserShare, 10),
			"reserve_share": strconv.FormatUint(ev.ReserveShare, 10),
			"timestamp":     strconv.FormatInt(ev.Timestamp.Unix(), 10),
		},
	}).Err()
	if err != nil {
		e.log.Error().Err(err).Msg("failed to publish harvest event")
	}
}

func (e *StreamEvents) EmitClaim(ctx context.Context, ev *models.ClaimEvent) {
	err := e.client.XAdd(ctx, &redis.XAddArgs{
		Stream: eventStream,
		Values: map[string]interface{}{
			"type":      "claim",
			"identity":  ev.Identity,
			"account":   ev.Account,
			"amount":    strconv.FormatUint(ev.Amount, 10),
			"timestamp": strconv.FormatInt(ev.Timestamp.Unix(), 10),
		},
	}).Err()
	if err != nil {
		e.log.Error().Err(err).Msg("failed to publish claim event")
	}
}

// NopEvents discards events. Used in tests.
type NopEvents struct{}

func (NopEvents) EmitHarvest(context.Context, *models.HarvestEvent) {}
func (NopEvents) EmitClaim(context.Context, *models.ClaimEvent)     {}
