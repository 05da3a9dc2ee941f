package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	groupdomain "github.com/tabshare/tabshare/internal/group/domain"
	"github.com/tabshare/tabshare/internal/groupctx"
)

type groupResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Currency  string    `json:"currency"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func groupJSON(g *groupdomain.Group) groupResponse {
	return groupResponse{
		ID:        g.ID.String(),
		Name:      g.Name,
		Slug:      g.Slug,
		Currency:  g.Currency,
		CreatedBy: g.CreatedBy.String(),
		CreatedAt: g.CreatedAt,
	}
}

type memberResponse struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (s *Server) CreateGroup(c *gin.Context) {
	var req groupdomain.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid", err.Error()))
		return
	}

	group, err := s.groupSvc.Create(c.Request.Context(), s.currentUser(c).ID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, groupJSON(group))
}

func (s *Server) ListGroups(c *gin.Context) {
	groups, err := s.groupSvc.ListForUser(c.Request.Context(), s.currentUser(c).ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupJSON(g))
	}
	c.JSON(http.StatusOK, gin.H{"groups": out})
}

func (s *Server) GetGroup(c *gin.Context) {
	groupID, _ := groupctx.GroupIDFromContext(c.Request.Context())
	group, err := s.groupSvc.Get(c.Request.Context(), groupID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, groupJSON(group))
}

func (s *Server) ListMembers(c *gin.Context) {
	groupID, _ := groupctx.GroupIDFromContext(c.Request.Context())
	members, err := s.groupSvc.Members(c.Request.Context(), groupID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{UserID: m.UserID.String(), Role: string(m.Role)})
	}
	c.JSON(http.StatusOK, gin.H{"members": out})
}

func (s *Server) AddMember(c *gin.Context) {
	var req groupdomain.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid", err.Error()))
		return
	}

	groupID, _ := groupctx.GroupIDFromContext(c.Request.Context())
	member, err := s.groupSvc.AddMember(c.Request.Context(), s.currentUser(c).ID, groupID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, memberResponse{UserID: member.UserID.String(), Role: string(member.Role)})
}
