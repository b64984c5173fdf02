// internal/handlers/wallet.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chaincert/chaincert-backend/internal/services"
	"github.com/chaincert/chaincert-backend/internal/utils"
)

type WalletHandler struct {
	walletService *services.WalletService
}

func NewWalletHandler(walletService *services.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// GET /wallet/balance
func (h *WalletHandler) GetBalance(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	balance := h.walletService.GetBalance(caller)
	utils.SuccessResponse(c, gin.H{
		"address": caller,
		"balance": balance,
	})
}

// POST /wallet/deposit
func (h *WalletHandler) CreateDeposit(c *gin.Context) {
	accountID, ok := callerAccountID(c)
	if !ok {
		return
	}
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	var req services.CreateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	response, err := h.walletService.CreateDeposit(accountID, caller, &req)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, response)
}

// POST /wallet/deposit/confirm
func (h *WalletHandler) ConfirmDeposit(c *gin.Context) {
	accountID, ok := callerAccountID(c)
	if !ok {
		return
	}
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	var req services.ConfirmDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if err := h.walletService.ConfirmDeposit(accountID, caller, &req); err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"deposit_id": req.DepositID,
		"balance":    h.walletService.GetBalance(caller),
	})
}

// GET /wallet/deposits
func (h *WalletHandler) GetDeposits(c *gin.Context) {
	accountID, ok := callerAccountID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	deposits, total, err := h.walletService.GetDepositHistory(accountID, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(deposits, total, params)
	utils.PaginatedResponse(c, result)
}

func callerAccountID(c *gin.Context) (uuid.UUID, bool) {
	accountIDStr, exists := utils.GetAccountIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}

	accountID, err := uuid.Parse(accountIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid account ID", nil)
		return uuid.Nil, false
	}
	return accountID, true
}
