package handler

import (
	"context"
	"errors"

	"minibank/internal/model"
	"minibank/internal/service"
	"minibank/pkg/response"

	"github.com/gin-gonic/gin"
)

// Handler bundles the HTTP endpoints over the auth and transaction
// services.
type Handler struct {
	authService        *service.AuthService
	transactionService *service.TransactionService
}

func NewHandler(authService *service.AuthService, transactionService *service.TransactionService) *Handler {
	return &Handler{
		authService:        authService,
		transactionService: transactionService,
	}
}

// ============================================================
// Auth endpoints
// ============================================================

// Register creates a new user and account.
// POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request body: "+err.Error())
		return
	}

	account, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.SuccessMessage(c, "account registered", gin.H{
		"account_number": account.AccountNumber,
		"bank_name":      account.BankName,
		"balance":        account.Balance,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login issues a bearer token.
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// Logout revokes the presented token.
// POST /api/v1/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	claims := ClaimsFromContext(c)
	if claims == nil {
		response.Unauthorized(c, "not authenticated")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		response.ServerError(c, "failed to log out")
		return
	}

	response.SuccessMessage(c, "successfully logged out", nil)
}

// Me returns the acting account.
// GET /api/v1/auth/me
func (h *Handler) Me(c *gin.Context) {
	response.Success(c, AccountFromContext(c))
}

// ============================================================
// Account endpoints
// ============================================================

// GetBalance returns the acting account's current balance.
// GET /api/v1/account/balance
func (h *Handler) GetBalance(c *gin.Context) {
	account := AccountFromContext(c)
	response.Success(c, gin.H{
		"account_number": account.AccountNumber,
		"balance":        account.Balance,
	})
}

// ============================================================
// Transaction endpoints
// ============================================================

// TopUp credits the acting account.
// POST /api/v1/transactions/topup
func (h *Handler) TopUp(c *gin.Context) {
	h.runTransaction(c, h.transactionService.TopUp)
}

// Withdraw debits the acting account.
// POST /api/v1/transactions/withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	h.runTransaction(c, h.transactionService.Withdraw)
}

// Transfer moves money to another registered account.
// POST /api/v1/transactions/transfer
func (h *Handler) Transfer(c *gin.Context) {
	h.runTransaction(c, h.transactionService.Transfer)
}

func (h *Handler) runTransaction(c *gin.Context, op func(ctx context.Context, account *model.Account, req service.TransactionRequest) (*service.TransactionResult, error)) {
	var req service.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request body: "+err.Error())
		return
	}

	result, err := op(c.Request.Context(), AccountFromContext(c), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.SuccessMessage(c, result.Message, result)
}

// GetMutation reports the acting account's ledger entries in a bounded
// date window.
// GET /api/v1/transactions/mutation?start_date=2022-02-05&end_date=2022-03-05
func (h *Handler) GetMutation(c *gin.Context) {
	req := service.MutationReportRequest{
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}

	report, err := h.transactionService.GetMutationReport(c.Request.Context(), AccountFromContext(c), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.SuccessMessage(c, report.Message, report.Entries)
}

// ============================================================
// Error mapping
// ============================================================

// writeServiceError translates the service error taxonomy into the
// response envelope.
func (h *Handler) writeServiceError(c *gin.Context, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		response.ValidationFailed(c, ve.Fields)
		return
	}

	var be *service.BusinessRuleError
	if errors.As(err, &be) {
		switch be.Reason {
		case service.ReasonRangeTooLarge:
			response.Error(c, 422, response.CodeBusinessRule, be.Message)
		case service.ReasonDuplicateEntry:
			response.Error(c, 403, response.CodeDuplicateEntry, be.Message)
		case service.ReasonDestinationNotFound:
			response.BusinessError(c, response.CodeDestinationNotFound, be.Message)
		case service.ReasonInsufficientBalance:
			response.BusinessError(c, response.CodeInsufficientBalance, be.Message)
		default:
			response.BusinessError(c, response.CodeBusinessRule, be.Message)
		}
		return
	}

	var ce *service.ConsistencyError
	if errors.As(err, &ce) {
		response.Error(c, 500, response.CodeInconsistentState, "transaction left an inconsistent state, contact support")
		return
	}

	var pe *service.PersistenceError
	if errors.As(err, &pe) {
		response.Error(c, 500, response.CodeTransactionFailed, "failed to process "+pe.Op)
		return
	}

	if errors.Is(err, service.ErrInvalidCredentials) {
		response.Unauthorized(c, service.ErrInvalidCredentials.Error())
		return
	}

	response.ServerError(c, "internal server error")
}
