package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/tabshare/tabshare/internal/auth/domain"
	userdomain "github.com/tabshare/tabshare/internal/user/domain"
	"go.uber.org/zap"
)

// login attempts per client IP: one every 5 seconds, bursting to 5
const (
	loginRate  = 0.2
	loginBurst = 5
)

type userResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Tier      string     `json:"tier"`
	Status    string     `json:"subscription_status,omitempty"`
	IsPro     bool       `json:"is_pro"`
	PeriodEnd *time.Time `json:"current_period_end,omitempty"`
}

func (s *Server) userJSON(u *userdomain.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		Tier:      string(u.Tier),
		Status:    u.SubscriptionStatus,
		IsPro:     u.IsPro(time.Now().UTC()),
		PeriodEnd: u.CurrentPeriodEnd,
	}
}

func (s *Server) currentUser(c *gin.Context) *userdomain.User {
	return c.MustGet(contextUserKey).(*userdomain.User)
}

func (s *Server) Signup(c *gin.Context) {
	var req authdomain.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid", err.Error()))
		return
	}

	user, token, err := s.authSvc.Signup(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": s.userJSON(user), "token": token})
}

func (s *Server) Login(c *gin.Context) {
	if !s.allowLogin(c) {
		return
	}

	var req authdomain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid", err.Error()))
		return
	}

	user, token, err := s.authSvc.Login(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": s.userJSON(user), "token": token})
}

func (s *Server) allowLogin(c *gin.Context) bool {
	res, err := s.loginLimiter.Allow(c.Request.Context(), "login:"+c.ClientIP(), loginRate, loginBurst)
	if err != nil {
		// redis being down must not lock everyone out
		s.log.Warn("login rate limiter unavailable", zap.Error(err))
		return true
	}
	if !res.Allowed {
		s.metrics.RecordRateLimitDenied(c.Request.Context(), "login", "bucket_empty")
		if res.RetryAfter > 0 {
			c.Header("Retry-After", res.RetryAfter.Round(time.Second).String())
		}
		AbortWithError(c, ErrTooManyTries)
		return false
	}
	return true
}

func (s *Server) Logout(c *gin.Context) {
	if err := s.authSvc.Logout(c.Request.Context(), bearerToken(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	c.JSON(http.StatusOK, s.userJSON(s.currentUser(c)))
}
