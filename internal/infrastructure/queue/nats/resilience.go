package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
	"github.com/kirillkom/pdf-analysis-gateway/internal/infrastructure/resilience"
)

// classifyNATSError decides how a failed history event publish feeds the
// breaker. Problems with one record (payload size, subject) are not held
// against the connection, so a single oversized error message cannot stop
// history for every later analysis.
func classifyNATSError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case isRecordRejected(err):
		return resilience.ErrorClassification{}
	case errors.Is(err, nats.ErrNoResponders):
		// Nobody is recording history right now; the event is lost either
		// way, and the connection itself is fine.
		return resilience.ErrorClassification{}
	case isConnectionLoss(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

func isRecordRejected(err error) bool {
	return errors.Is(err, nats.ErrMaxPayload) ||
		errors.Is(err, nats.ErrBadSubject) ||
		errors.Is(err, errEncodeRecord)
}

func isConnectionLoss(err error) bool {
	return errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrConnectionReconnecting) ||
		errors.Is(err, nats.ErrReconnectBufExceeded)
}

// wrapPublishError maps publish failures onto domain kinds: connection loss
// and an open breaker are temporary, a rejected record is invalid.
func wrapPublishError(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) || domain.IsKind(err, domain.ErrInvalidParameter) {
		return err
	}
	switch {
	case isRecordRejected(err):
		return domain.WrapError(domain.ErrInvalidParameter, "nats publish", err)
	case isConnectionLoss(err), resilience.IsCircuitOpen(err):
		return domain.WrapError(domain.ErrTemporary, "nats publish", err)
	default:
		return err
	}
}
