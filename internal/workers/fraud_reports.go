package workers

import (
	"context"
	"strconv"
	"time"

	go_redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"gaming-rewards-backend/internal/common/logger"
	oraclesvc "gaming-rewards-backend/internal/features/oracle/service"
	verificationsvc "gaming-rewards-backend/internal/features/verification/service"
	"gaming-rewards-backend/internal/platform/redis"
)

const (
	reportStream  = "fraud:reports"
	consumerGroup = "rewards_backend_consumers"
	consumerName  = "fraud_worker_1"
)

// FraudReportWorker consumes verified fraud reports from a redis stream.
// Fraud is discovered after the fact: a report names the attestor whose
// attestation was proven false and the identity that benefited. The
// worker slashes half the attestor's stake and flags the identity.
// Slashing is a separate, idempotent transition, never embedded in the
// attestation-acceptance path.
type FraudReportWorker struct {
	rdb          *redis.Client
	oracles      *oraclesvc.Service
	verification *verificationsvc.Service
	log          zerolog.Logger
}

func NewFraudReportWorker(rdb *redis.Client, oracles *oraclesvc.Service, verification *verificationsvc.Service) *FraudReportWorker {
	return &FraudReportWorker{
		rdb:          rdb,
		oracles:      oracles,
		verification: verification,
		log:          logger.For("workers.fraud_reports"),
	}
}

// Start begins listening to the report stream until ctx is cancelled.
func (w *FraudReportWorker) Start(ctx context.Context) {
	err := w.rdb.XGroupCreateMkStream(ctx, reportStream, consumerGroup, "$").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		w.log.Error().Err(err).Msg("creating consumer group")
	}

	w.log.Info().Str("stream", reportStream).Msg("fraud report worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("fraud report worker stopping")
			return
		default:
			entries, err := w.rdb.XReadGroup(ctx, &go_redis.XReadGroupArgs{
				Group:    consumerGroup,
				Consumer: consumerName,
				Streams:  []string{reportStream, ">"},
				Count:    1,
				Block:    5 * time.Second,
			}).Result()

			if err != nil {
				if err != go_redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("reading report stream")
					time.Sleep(time.Second)
				}
				continue
			}

			for _, stream := range entries {
				for _, msg := range stream.Messages {
					w.processReport(ctx, msg.Values)
					w.rdb.XAck(ctx, reportStream, consumerGroup, msg.ID)
				}
			}
		}
	}
}

func (w *FraudReportWorker) processReport(ctx context.Context, values map[string]interface{}) {
	attestorID, _ := values["attestor_id"].(string)
	identity, _ := values["identity"].(string)
	fingerprint, _ := values["fingerprint"].(string)

	if attestorID == "" && identity == "" {
		w.log.Warn().Interface("values", values).Msg("dropping malformed fraud report")
		return
	}

	if attestorID != "" {
		acc, err := w.oracles.Get(ctx, attestorID)
		if err != nil {
			w.log.Error().Err(err).Str("attestor", attestorID).Msg("loading attestor for slashing")
		} else if acc.Stake > 0 {
			// Half the stake, the protocol's slash penalty.
			penalty := acc.Stake / 2
			if s, ok := values["slash_amount"].(string); ok {
				if v, err := strconv.ParseUint(s, 10, 64); err == nil && v > 0 && v <= acc.Stake {
					penalty = v
				}
			}
			if penalty > 0 {
				if _, err := w.oracles.Slash(ctx, attestorID, penalty); err != nil {
					w.log.Error().Err(err).Str("attestor", attestorID).Msg("slashing attestor")
				}
			}
			_ = w.oracles.RecordOutcome(ctx, attestorID, false)
		}
	}

	if identity != "" {
		if err := w.verification.ReportFraud(ctx, identity, fingerprint); err != nil {
			w.log.Error().Err(err).Str("identity", identity).Msg("flagging identity")
		}
	}
}
