// Package idempotency lets clients retry order creation and payment safely by
// replaying the first response recorded for an Idempotency-Key.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

const DefaultTTL = 24 * time.Hour

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

type ReservationState int

const (
	// ReservationStateNew means the caller owns the key and should run the request.
	ReservationStateNew ReservationState = iota
	ReservationStateCompleted
	ReservationStatePending
)

type Reservation struct {
	State  ReservationState
	Record Record
}

type Record struct {
	Key            string    `json:"key"`
	Fingerprint    string    `json:"fingerprint"`
	Status         Status    `json:"status"`
	ResponseStatus int       `json:"responseStatus,omitempty"`
	ContentType    string    `json:"contentType,omitempty"`
	ResponseBody   []byte    `json:"responseBody,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Store persists reservations and the responses recorded for them.
type Store interface {
	Reserve(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error)
	SaveResponse(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error
	Release(ctx context.Context, key, fingerprint string) error
}

var ErrFingerprintMismatch = errors.New("idempotency: key reserved for a different request")

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func completed(record Record, resp Response, now time.Time, ttl time.Duration) Record {
	record.Status = StatusCompleted
	record.ResponseStatus = resp.Status
	record.ContentType = resp.ContentType
	record.ResponseBody = append([]byte(nil), resp.Body...)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.ExpiresAt = now.Add(ttl)
	return record
}
