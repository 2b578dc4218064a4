package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coffeeworth/coffeeworth-backend/api/responses"
	pkgerrors "github.com/coffeeworth/coffeeworth-backend/pkg/errors"
	"github.com/coffeeworth/coffeeworth-backend/pkg/logger"
)

const (
	idempotencyHeader   = "Idempotency-Key"
	replayedHeader      = "Idempotency-Replayed"
	maxIdempotencyBody  = 1 << 20
	pendingRecordStatus = 0
)

type idempotencyStore interface {
	IdempotencyKey(scope, id string) string
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
}

// idempotencyRecord is the stored outcome of a request keyed by its
// Idempotency-Key. A zero Status marks an in-flight request.
type idempotencyRecord struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body,omitempty"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the stored response when a request repeats the same
// Idempotency-Key with the same body within ttl. The same key with a
// different body is rejected. Requests without the header pass through.
func Idempotency(store idempotencyStore, logg *logger.Logger, scope string, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			key := r.Header.Get(idempotencyHeader)
			if store == nil || key == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotencyBody))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "failed to read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := hashRequestBody(body)
			storageKey := store.IdempotencyKey(scope, key)

			if done := replayIfRecorded(ctx, store, logg, w, storageKey, requestHash); done {
				return
			}

			pending := idempotencyRecord{Status: pendingRecordStatus, RequestHash: requestHash}
			claimed, err := store.SetNX(ctx, storageKey, mustEncodeRecord(pending), ttl)
			if err != nil {
				// The store being down should not block payments.
				if logg != nil {
					logg.Warn(logg.WithField(ctx, "error", err.Error()), "idempotency.store_unavailable")
				}
				next.ServeHTTP(w, r)
				return
			}
			if !claimed {
				// Lost the claim race. Re-read whatever the winner left.
				if done := replayIfRecorded(ctx, store, logg, w, storageKey, requestHash); done {
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is already in progress"))
				return
			}

			capture := &responseCapture{ResponseWriter: w, body: &bytes.Buffer{}}
			next.ServeHTTP(capture, r)

			record := idempotencyRecord{
				Status:      capture.statusOrDefault(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.String(),
				RequestHash: requestHash,
			}
			if err := store.Set(ctx, storageKey, mustEncodeRecord(record), ttl); err != nil && logg != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "idempotency.record_write_failed")
			}
		})
	}
}

// replayIfRecorded writes the stored response or a conflict error when a
// record for the key already exists. It reports whether the request was
// fully handled.
func replayIfRecorded(ctx context.Context, store idempotencyStore, logg *logger.Logger, w http.ResponseWriter, storageKey, requestHash string) bool {
	raw, err := store.Get(ctx, storageKey)
	if err != nil {
		if !errors.Is(err, redis.Nil) && logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "idempotency.lookup_failed")
		}
		return false
	}

	var record idempotencyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		if logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "idempotency.record_corrupt")
		}
		return false
	}

	if record.RequestHash != requestHash {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotency key was already used with a different request"))
		return true
	}

	if record.Status == pendingRecordStatus {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is already in progress"))
		return true
	}

	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(record.Status)
	_, _ = w.Write([]byte(record.Body))
	return true
}

func hashRequestBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func mustEncodeRecord(record idempotencyRecord) string {
	raw, err := json.Marshal(record)
	if err != nil {
		// Marshaling a struct of plain strings and ints cannot fail.
		panic(err)
	}
	return string(raw)
}

type responseCapture struct {
	http.ResponseWriter
	status int
	body   *bytes.Buffer
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(p []byte) (int, error) {
	c.body.Write(p)
	return c.ResponseWriter.Write(p)
}

func (c *responseCapture) statusOrDefault() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
