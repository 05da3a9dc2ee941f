package server

import (
	"io"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	expensedomain "github.com/tabshare/tabshare/internal/expense/domain"
	"github.com/tabshare/tabshare/internal/groupctx"
	"github.com/tabshare/tabshare/internal/providers/pdf"
	"github.com/tabshare/tabshare/internal/split"
	"github.com/tabshare/tabshare/pkg/db/pagination"
)

type shareResponse struct {
	UserID string `json:"user_id"`
	Amount string `json:"amount"`
}

type expenseResponse struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      string          `json:"amount"`
	Method      string          `json:"method"`
	PaidBy      string          `json:"paid_by"`
	CreatedAt   time.Time       `json:"created_at"`
	Splits      []shareResponse `json:"splits"`
}

func expenseJSON(e *expensedomain.Expense) expenseResponse {
	out := expenseResponse{
		ID:          e.ID.String(),
		Description: e.Description,
		Amount:      e.Amount.String(),
		Method:      string(e.SplitMethod),
		PaidBy:      e.PaidBy.String(),
		CreatedAt:   e.CreatedAt,
	}
	for _, sp := range e.Splits {
		out.Splits = append(out.Splits, shareResponse{UserID: sp.UserID.String(), Amount: sp.Amount.String()})
	}
	return out
}

func previewJSON(result *split.Result) gin.H {
	shares := make([]shareResponse, 0, len(result.Shares))
	for _, share := range result.Shares {
		shares = append(shares, shareResponse{UserID: share.UserID.String(), Amount: share.Amount.String()})
	}
	return gin.H{"total": result.Total.String(), "splits": shares}
}

func (s *Server) CreateExpense(c *gin.Context) {
	var req expensedomain.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid", err.Error()))
		return
	}

	groupID, _ := groupctx.GroupIDFromContext(c.Request.Context())
	expense, err := s.expenseSvc.Create(c.Request.Context(), groupID, s.currentUser(c).ID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.metrics.RecordSplitComputation(c.Request.Context(), string(expense.SplitMethod))
	c.JSON(http.StatusCreated, expenseJSON(expense))
}

func (s *Server) PreviewExpense(c *gin.Context) {
	var req expensedomain.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid", err.Error()))
		return
	}

	groupID, _ := groupctx.GroupIDFromContext(c.Request.Context())
	result, err := s.expenseSvc.Preview(c.Request.Context(), groupID, s.currentUser(c).ID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.metrics.RecordSplitComputation(c.Request.Context(), req.Method)
	c.JSON(http.StatusOK, previewJSON(result))
}

func (s *Server) ListExpenses(c *gin.Context) {
	var p pagination.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		AbortWithError(c, newValidationError("query", "invalid", err.Error()))
		return
	}

	groupID, _ := groupctx.GroupIDFromContext(c.Request.Context())
	expenses, info, err := s.expenseSvc.List(c.Request.Context(), groupID, p)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, expenseJSON(e))
	}
	c.JSON(http.StatusOK, gin.H{"expenses": out, "page_info": info})
}

func (s *Server) GetExpense(c *gin.Context) {
	expenseID, err := snowflake.ParseString(c.Param("expense_id"))
	if err != nil {
		AbortWithError(c, newValidationError("expense_id", "invalid", "invalid expense id"))
		return
	}

	groupID, _ := groupctx.GroupIDFromContext(c.Request.Context())
	expense, err := s.expenseSvc.Get(c.Request.Context(), groupID, expenseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, expenseJSON(expense))
}

func (s *Server) GroupBalances(c *gin.Context) {
	groupID, _ := groupctx.GroupIDFromContext(c.Request.Context())
	sheet, err := s.expenseSvc.Balances(c.Request.Context(), groupID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	balances := make([]gin.H, 0, len(sheet.Balances))
	for _, b := range sheet.Balances {
		balances = append(balances, gin.H{"user_id": b.UserID.String(), "net": b.Net.String()})
	}
	transfers := make([]gin.H, 0, len(sheet.Transfers))
	for _, tr := range sheet.Transfers {
		transfers = append(transfers, gin.H{
			"from":   tr.From.String(),
			"to":     tr.To.String(),
			"amount": tr.Amount.String(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"balances": balances, "transfers": transfers})
}

func (s *Server) ExpenseReceipt(c *gin.Context) {
	expenseID, err := snowflake.ParseString(c.Param("expense_id"))
	if err != nil {
		AbortWithError(c, newValidationError("expense_id", "invalid", "invalid expense id"))
		return
	}

	ctx := c.Request.Context()
	groupID, _ := groupctx.GroupIDFromContext(ctx)
	group, err := s.groupSvc.Get(ctx, groupID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	expense, err := s.expenseSvc.Get(ctx, groupID, expenseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	names := make(map[string]string)
	members, err := s.groupSvc.Members(ctx, groupID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	for _, m := range members {
		if user, err := s.users.FindByID(ctx, s.db, m.UserID); err == nil && user != nil {
			names[m.UserID.String()] = user.Name
		}
	}

	reader, err := s.pdfProvider.GenerateReceipt(ctx, pdf.ReceiptData{
		Group:     group,
		Expense:   expense,
		UserNames: names,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="receipt-`+expense.ID.String()+`.pdf"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}
