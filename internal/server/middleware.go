package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/tabshare/tabshare/internal/authctx"
	"github.com/tabshare/tabshare/internal/groupctx"
	"github.com/tabshare/tabshare/pkg/correlation"
	pkglog "github.com/tabshare/tabshare/pkg/log"
	"go.uber.org/zap"
)

const contextUserKey = "auth_user"

// RequestID propagates or assigns X-Request-Id and stamps it onto the
// request context for log correlation.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(correlation.HeaderRequestID))
		if requestID == "" {
			requestID = correlation.NewRequestID()
		}
		ctx := correlation.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(correlation.HeaderRequestID, requestID)
		c.Next()
	}
}

// RequestLogger emits one structured access log line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	base := log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		}
		entry := pkglog.WithContext(c.Request.Context(), base)
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("request", fields...)
		case c.Writer.Status() >= 400:
			entry.Warn("request", fields...)
		default:
			entry.Info("request", fields...)
		}
	}
}

// AuthRequired authenticates the bearer token and stores the user on
// both the gin and request contexts.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		user, err := s.authSvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextUserKey, user)
		c.Request = c.Request.WithContext(authctx.WithUserID(c.Request.Context(), user.ID))
		c.Next()
	}
}

// GroupContext resolves the :group_id route param, verifies membership
// and stamps the group onto the request context.
func (s *Server) GroupContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID, err := snowflake.ParseString(c.Param("group_id"))
		if err != nil {
			AbortWithError(c, newValidationError("group_id", "invalid", "invalid group id"))
			return
		}

		userID, ok := authctx.UserIDFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.groupSvc.RequireMember(c.Request.Context(), groupID, userID); err != nil {
			AbortWithError(c, err)
			return
		}

		c.Request = c.Request.WithContext(groupctx.WithGroupID(c.Request.Context(), groupID))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
