package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/pdf-analysis-gateway/internal/core/domain"
)

func TestRecordCodecRoundTrip(t *testing.T) {
	num := int64(7)
	in := domain.AnalysisRecord{
		ID:         "a-1",
		Filename:   "soil.pdf",
		Status:     domain.AnalysisSucceeded,
		NumRecords: &num,
		CreatedAt:  time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
	}
	payload, err := encodeRecord(in)
	if err != nil {
		t.Fatalf("encodeRecord() error = %v", err)
	}
	out, err := decodeRecord(payload)
	if err != nil {
		t.Fatalf("decodeRecord() error = %v", err)
	}
	if out.ID != in.ID || out.NumRecords == nil || *out.NumRecords != 7 || !out.CreatedAt.Equal(in.CreatedAt) {
		t.Fatalf("unexpected decoded record %+v", out)
	}
}

func TestDecodeRecordRejectsMissingID(t *testing.T) {
	if _, err := decodeRecord([]byte(`{"filename":"x.pdf"}`)); err == nil {
		t.Fatalf("expected error for record without id")
	}
	if _, err := decodeRecord([]byte(`not-json`)); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestWrapPublishError(t *testing.T) {
	err := wrapPublishError(fmt.Errorf("nats publish: %w", nats.ErrConnectionClosed))
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary for closed connection, got %v", err)
	}

	err = wrapPublishError(fmt.Errorf("nats publish: %w", nats.ErrMaxPayload))
	if !domain.IsKind(err, domain.ErrInvalidParameter) || domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected oversized record to be invalid, got %v", err)
	}

	other := errors.New("permission denied")
	if got := wrapPublishError(other); !errors.Is(got, other) || domain.IsKind(got, domain.ErrTemporary) {
		t.Fatalf("expected unknown error unchanged, got %v", got)
	}
}

func TestClassifyNATSError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{"canceled", context.Canceled, false, false},
		{"disconnected", fmt.Errorf("nats publish: %w", nats.ErrDisconnected), true, true},
		{"reconnect buffer full", nats.ErrReconnectBufExceeded, true, true},
		{"no responders", nats.ErrNoResponders, false, false},
		{"max payload", nats.ErrMaxPayload, false, false},
		{"bad subject", nats.ErrBadSubject, false, false},
		{"encode", fmt.Errorf("%w: boom", errEncodeRecord), false, false},
		{"unknown", errors.New("permission denied"), false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyNATSError(tc.err)
			if got.Retryable != tc.retryable || got.RecordFailure != tc.record {
				t.Fatalf("classifyNATSError(%v) = %+v, want retryable=%v record=%v", tc.err, got, tc.retryable, tc.record)
			}
		})
	}
}
