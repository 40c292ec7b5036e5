package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-bookorder-desk/internal/idempotency"
	"github.com/imrishuroy/go-bookorder-desk/internal/mapping"
	"github.com/imrishuroy/go-bookorder-desk/internal/orders"
	"github.com/imrishuroy/go-bookorder-desk/internal/validation"
)

// HeaderIdempotencyKey makes POST /orders replayable.
const HeaderIdempotencyKey = "Idempotency-Key"

// OrderService is the order workflow as seen by HTTP handlers.
type OrderService interface {
	CreateOrder(ctx context.Context, req validation.CreateOrderRequest) (mapping.Profile, error)
	ListOrders(ctx context.Context) ([]mapping.Profile, error)
	GetOrder(ctx context.Context, id string) (mapping.Profile, error)
}

// IdempotencyStore is implemented by *idempotency.Store.
type IdempotencyStore interface {
	CreateIfNotExists(ctx context.Context, key, requestHash string) (bool, error)
	Get(ctx context.Context, key string) (*idempotency.Record, error)
	MarkDone(ctx context.Context, key, orderID, responseBody string, responseStatus int) error
	Release(ctx context.Context, key string) error
}

var _ IdempotencyStore = (*idempotency.Store)(nil)

// HandlerConfig groups dependencies for the HTTP layer.
type HandlerConfig struct {
	Orders OrderService
	// Idempotency is optional; without it the Idempotency-Key header is ignored.
	Idempotency    IdempotencyStore
	MetricsHandler http.Handler
}

// RegisterOrdersRoutes registers routes for order API.
func RegisterOrdersRoutes(r *gin.Engine, cfg HandlerConfig) {
	h := &ordersHandler{svc: cfg.Orders, idem: cfg.Idempotency}
	r.POST("/orders", h.create)
	r.GET("/orders", h.list)
	r.GET("/orders/:id", h.get)
}

type ordersHandler struct {
	svc  OrderService
	idem IdempotencyStore
}

func (h *ordersHandler) create(c *gin.Context) {
	ctx := c.Request.Context()
	logger := zerolog.Ctx(ctx)

	req := validation.NewCreateOrderRequest()
	if err := validation.BindJSON(c, &req); err != nil {
		// BindJSON already wrote a 400
		return
	}

	key := c.GetHeader(HeaderIdempotencyKey)
	if key != "" && h.idem != nil {
		hash, err := requestHash(req)
		if err != nil {
			logger.Error().Err(err).Msg("fingerprint request")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}
		if replayed := h.claimKey(c, key, hash); replayed {
			return
		}
	} else {
		key = ""
	}

	profile, err := h.svc.CreateOrder(ctx, req)
	status, payload := http.StatusCreated, any(profile)
	if err != nil {
		status, payload = errorResponse(err)
		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).Msg("create order failed")
		}
	}
	body, mErr := json.Marshal(payload)
	if mErr != nil {
		logger.Error().Err(mErr).Msg("encode response")
		status, body = http.StatusInternalServerError, []byte(`{"error":"internal_error"}`)
	}

	if key != "" {
		// the outcome is recorded even when the client has gone away
		bg := context.WithoutCancel(ctx)
		if status >= http.StatusInternalServerError {
			if rErr := h.idem.Release(bg, key); rErr != nil {
				logger.Error().Err(rErr).Str("idempotency_key", key).Msg("release idempotency key")
			}
		} else if dErr := h.idem.MarkDone(bg, key, profile.ID, string(body), status); dErr != nil {
			logger.Error().Err(dErr).Str("idempotency_key", key).Msg("store idempotent response")
		}
	}

	if status == http.StatusCreated {
		c.Header("Location", fmt.Sprintf("/orders/%s", profile.ID))
	}
	c.Data(status, gin.MIMEJSON, body)
}

// claimKey reserves key for this request. It returns true when the response has already been
// written: a replay of a finished request, a request still in flight, or a key misuse.
func (h *ordersHandler) claimKey(c *gin.Context, key, hash string) bool {
	ctx := c.Request.Context()
	logger := zerolog.Ctx(ctx).With().Str("idempotency_key", key).Logger()

	created, err := h.idem.CreateIfNotExists(ctx, key, hash)
	if err != nil {
		logger.Error().Err(err).Msg("idempotency claim failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed"})
		return true
	}
	if created {
		return false
	}

	rec, err := h.idem.Get(ctx, key)
	if err != nil {
		logger.Error().Err(err).Msg("idempotency lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "idempotency_check_failed"})
		return true
	}
	switch {
	case rec == nil:
		// expired or released between the claim and the read
		c.JSON(http.StatusConflict, gin.H{"error": "idempotency_key_busy", "msg": "retry the request"})
	case rec.RequestHash != hash:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "idempotency_key_reused", "msg": "key was used with a different request body"})
	case rec.Status == idempotency.StatusDone:
		logger.Info().Str("order_id", rec.OrderID).Msg("replaying stored response")
		c.Header("Idempotent-Replayed", "true")
		if rec.ResponseStatus == http.StatusCreated && rec.OrderID != "" {
			c.Header("Location", fmt.Sprintf("/orders/%s", rec.OrderID))
		}
		c.Data(rec.ResponseStatus, gin.MIMEJSON, []byte(rec.ResponseBody))
	default:
		c.JSON(http.StatusConflict, gin.H{"error": "request_in_progress"})
	}
	return true
}

func (h *ordersHandler) list(c *gin.Context) {
	list, err := h.svc.ListOrders(c.Request.Context())
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("list orders failed")
		c.JSON(errorResponse(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list, "count": len(list)})
}

func (h *ordersHandler) get(c *gin.Context) {
	p, err := h.svc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		status, payload := errorResponse(err)
		if status >= http.StatusInternalServerError {
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("get order failed")
		}
		c.JSON(status, payload)
		return
	}
	c.JSON(http.StatusOK, p)
}

// errorResponse maps workflow errors onto the API's status codes and bodies.
func errorResponse(err error) (int, any) {
	if verr, ok := validation.AsError(err); ok {
		if verr.IsConflict() {
			return http.StatusConflict, validation.ResponseBody(verr)
		}
		return http.StatusBadRequest, validation.ResponseBody(verr)
	}
	if errors.Is(err, orders.ErrNotFound) {
		return http.StatusNotFound, gin.H{"error": "not_found"}
	}
	return http.StatusInternalServerError, gin.H{"error": "internal_error"}
}

// requestHash fingerprints the decoded request so a key reused with a different body is caught.
func requestHash(req validation.CreateOrderRequest) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
