package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	plandomain "github.com/tabshare/tabshare/internal/plan/domain"
	subservice "github.com/tabshare/tabshare/internal/subscription/service"
	"go.uber.org/zap"
)

// BillingWebhook receives provider events. The raw body is read before
// any parsing because the HMAC covers the exact bytes on the wire. A
// bad signature is the only 4xx here; processing failures still answer
// 200 so the provider does not hammer us with retries, and the stored
// event carries the error for later replay.
func (s *Server) BillingWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
	if err != nil {
		AbortWithError(c, newValidationError("body", "invalid", "unreadable body"))
		return
	}

	signature := c.GetHeader(subservice.HeaderSignature)
	if !subservice.VerifySignature(s.cfg.BillingWebhookSecret, body, signature) {
		s.metrics.RecordWebhookEvent(c.Request.Context(), "unknown", "rejected_signature")
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: errorPayload{
			Type:    "unauthorized",
			Message: "invalid signature",
		}})
		return
	}

	eventName := c.GetHeader("X-Event-Name")
	event, err := s.subscriptionSvc.Ingest(c.Request.Context(), eventName, body)
	if err != nil {
		if event == nil {
			// the durable log write itself failed; tell the provider to retry
			AbortWithError(c, err)
			return
		}
		s.metrics.RecordWebhookEvent(c.Request.Context(), event.EventName, "failed")
		s.log.Warn("webhook stored but not applied",
			zap.String("event_id", event.ID.String()),
			zap.Error(err),
		)
		c.JSON(http.StatusOK, gin.H{"received": true, "processed": false})
		return
	}

	s.metrics.RecordWebhookEvent(c.Request.Context(), event.EventName, "applied")
	c.JSON(http.StatusOK, gin.H{"received": true, "processed": true})
}

func (s *Server) ListPlans(c *gin.Context) {
	plans, err := s.planSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]gin.H, 0, len(plans))
	for _, p := range plans {
		out = append(out, gin.H{
			"id":          p.ID.String(),
			"variant_id":  p.VariantID,
			"name":        p.Name,
			"price":       p.Price,
			"interval":    p.Interval,
			"provisional": p.Provisional(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}

func (s *Server) SyncPlans(c *gin.Context) {
	var req struct {
		Entries []plandomain.CatalogEntry `json:"entries" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid", err.Error()))
		return
	}

	written, err := s.planSvc.SyncCatalog(c.Request.Context(), req.Entries)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": written})
}

func (s *Server) MySubscription(c *gin.Context) {
	sub, err := s.subscriptionSvc.FindByUser(c.Request.Context(), s.currentUser(c).ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if sub == nil {
		c.JSON(http.StatusOK, gin.H{"subscription": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": gin.H{
		"external_id": sub.ExternalID,
		"status":      sub.Status,
		"renews_at":   sub.RenewsAt,
		"ends_at":     sub.EndsAt,
		"is_paused":   sub.IsPaused,
	}})
}
