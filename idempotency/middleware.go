package idempotency

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	HeaderName       = "Idempotency-Key"
	ReplayHeaderName = "X-Idempotent-Replay"
)

type middlewareConfig struct {
	ttl      time.Duration
	logger   *zap.Logger
	identity func(*gin.Context) string
}

type MiddlewareOption func(*middlewareConfig)

func WithTTL(ttl time.Duration) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if ttl > 0 {
			cfg.ttl = ttl
		}
	}
}

func WithLogger(logger *zap.Logger) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithIdentity scopes keys to the caller so two users cannot collide.
func WithIdentity(identity func(*gin.Context) string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if identity != nil {
			cfg.identity = identity
		}
	}
}

// Middleware replays the stored response when a request repeats an
// Idempotency-Key. Requests without the header pass straight through.
// Server errors and handler panics release the key so the client may retry.
func Middleware(store Store, opts ...MiddlewareOption) gin.HandlerFunc {
	cfg := middlewareConfig{
		ttl:      DefaultTTL,
		logger:   zap.NewNop(),
		identity: func(*gin.Context) string { return "anonymous" },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderName))
		if store == nil || key == "" {
			c.Next()
			return
		}

		body, err := readAndReplayBody(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Unable to read request body."})
			return
		}

		identity := cfg.identity(c)
		scoped := key + "|" + identity
		fingerprint := requestFingerprint(c.Request, body, identity)

		reservation, err := store.Reserve(c.Request.Context(), scoped, fingerprint, time.Now(), cfg.ttl)
		switch {
		case errors.Is(err, ErrFingerprintMismatch):
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"message": "Idempotency-Key was already used for a different request."})
			return
		case err != nil:
			cfg.logger.Error("idempotency reserve failed", zap.String("key", key), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Server error while checking Idempotency-Key."})
			return
		}

		switch reservation.State {
		case ReservationStateCompleted:
			replay(c, reservation.Record)
			return
		case ReservationStatePending:
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"message": "A request with this Idempotency-Key is already in progress."})
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		finished := false
		defer func() {
			if finished {
				return
			}
			if err := store.Release(c.Request.Context(), scoped, fingerprint); err != nil {
				cfg.logger.Warn("idempotency release failed", zap.String("key", key), zap.Error(err))
			}
		}()
		c.Next()
		finished = true

		status := recorder.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(c.Request.Context(), scoped, fingerprint); err != nil {
				cfg.logger.Warn("idempotency release failed", zap.String("key", key), zap.Error(err))
			}
			return
		}

		resp := Response{Status: status, ContentType: recorder.Header().Get("Content-Type"), Body: recorder.body.Bytes()}
		if err := store.SaveResponse(c.Request.Context(), scoped, fingerprint, resp, time.Now(), cfg.ttl); err != nil {
			cfg.logger.Error("idempotency save failed", zap.String("key", key), zap.Error(err))
			if err := store.Release(c.Request.Context(), scoped, fingerprint); err != nil {
				cfg.logger.Warn("idempotency release failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
}

func replay(c *gin.Context, record Record) {
	c.Header(ReplayHeaderName, "true")
	status := record.ResponseStatus
	if status == 0 {
		status = http.StatusOK
	}
	contentType := record.ContentType
	if contentType == "" {
		contentType = "application/json; charset=utf-8"
	}
	c.Data(status, contentType, record.ResponseBody)
	c.Abort()
}

func readAndReplayBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func requestFingerprint(r *http.Request, body []byte, identity string) string {
	var b strings.Builder
	b.WriteString(r.Method)
	b.WriteString("|")
	b.WriteString(r.URL.Path)
	b.WriteString("|")
	b.WriteString(identity)
	b.WriteString("|")
	b.WriteString(sha256Hex(body))
	return sha256Hex([]byte(b.String()))
}

// IdentityFromContextKey reads a numeric caller id stored on the gin context.
func IdentityFromContextKey(name string) func(*gin.Context) string {
	return func(c *gin.Context) string {
		if v, ok := c.Get(name); ok {
			if id, ok := v.(int64); ok {
				return strconv.FormatInt(id, 10)
			}
		}
		return "anonymous"
	}
}

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
