// internal/handlers/product.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/chaincert/chaincert-backend/internal/registry"
	"github.com/chaincert/chaincert-backend/internal/services"
	"github.com/chaincert/chaincert-backend/internal/utils"
)

type ProductHandler struct {
	registryService *services.RegistryService
}

func NewProductHandler(registryService *services.RegistryService) *ProductHandler {
	return &ProductHandler{registryService: registryService}
}

// POST /products — mint a new product record (authority only)
func (h *ProductHandler) MintProduct(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	var req services.MintProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	tokenID, err := h.registryService.MintProduct(caller, &req)
	if err != nil {
		respondRegistryError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{"token_id": tokenID})
}

// POST /products/claim
func (h *ProductHandler) ClaimProduct(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	var req services.ClaimProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	product, err := h.registryService.ClaimProduct(caller, &req)
	if err != nil {
		respondRegistryError(c, err)
		return
	}

	utils.SuccessResponse(c, product)
}

// POST /products/:id/listing
func (h *ProductHandler) PutForSale(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	var req services.PutForSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if err := h.registryService.PutForSale(caller, tokenID, &req); err != nil {
		respondRegistryError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"token_id": tokenID, "price": req.Price})
}

// POST /products/:id/buy
func (h *ProductHandler) BuyProduct(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	var req services.BuyProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if err := h.registryService.BuyProduct(caller, tokenID, &req); err != nil {
		respondRegistryError(c, err)
		return
	}

	product, err := h.registryService.GetProductByTokenID(tokenID)
	if err != nil {
		respondRegistryError(c, err)
		return
	}

	utils.SuccessResponse(c, product)
}

// POST /products/:id/transfer
func (h *ProductHandler) TransferProduct(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	tokenID, ok := tokenIDParam(c)
	if !ok {
		return
	}

	var req services.TransferProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if err := h.registryService.TransferProduct(caller, tokenID, &req); err != nil {
		respondRegistryError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"token_id": tokenID, "owner": req.To})
}

// GET /products/:id — dual-key lookup: public id first, serial second
func (h *ProductHandler) GetProduct(c *gin.Context) {
	key := c.Param("id")

	product, err := h.registryService.GetProductByKey(key)
	if err != nil {
		respondRegistryError(c, err)
		return
	}

	utils.SuccessResponse(c, product)
}

// GET /products/:id/label — QR label for the public id, as printed on
// packaging
func (h *ProductHandler) GetProductLabel(c *gin.Context) {
	key := c.Param("id")

	product, err := h.registryService.GetProductByKey(key)
	if err != nil {
		respondRegistryError(c, err)
		return
	}

	size, err := strconv.Atoi(c.DefaultQuery("size", "256"))
	if err != nil || size < 64 || size > 1024 {
		size = 256
	}

	png, err := qrcode.Encode(product.PublicID, qrcode.Medium, size)
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to generate label")
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// GET /products/:id/events
func (h *ProductHandler) GetProductEvents(c *gin.Context) {
	key := c.Param("id")

	product, err := h.registryService.GetProductByKey(key)
	if err != nil {
		respondRegistryError(c, err)
		return
	}

	params := utils.GetPaginationParams(c)
	events, total, err := h.registryService.GetProductEvents(product.TokenID, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(events, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /products — catalogue listing from the read model
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	forSaleOnly := false
	if forSaleStr := c.Query("for_sale"); forSaleStr != "" {
		if forSale, err := strconv.ParseBool(forSaleStr); err == nil {
			forSaleOnly = forSale
		}
	}

	records, total, err := h.registryService.SearchProducts(params, forSaleOnly)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(records, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /accounts/:address/products
func (h *ProductHandler) GetProductsByOwner(c *gin.Context) {
	owner := registry.Address(c.Param("address"))

	products := h.registryService.GetProductsByOwner(owner)
	utils.SuccessResponse(c, products)
}

// Helpers

func callerAddress(c *gin.Context) (registry.Address, bool) {
	address, exists := utils.GetAddressFromContext(c)
	if !exists || address == "" {
		utils.UnauthorizedResponse(c, "")
		return "", false
	}
	return registry.Address(address), true
}

func tokenIDParam(c *gin.Context) (uint64, bool) {
	tokenID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid token id", nil)
		return 0, false
	}
	return tokenID, true
}

// respondRegistryError maps a registry rejection onto its HTTP status
// and stable error code. The rejection reason is surfaced verbatim.
func respondRegistryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, registry.ErrProductNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, registry.ErrDuplicateSerialNumber):
		utils.ConflictResponse(c, "DUPLICATE_SERIAL_NUMBER", err.Error())
	case errors.Is(err, registry.ErrDuplicatePublicID):
		utils.ConflictResponse(c, "DUPLICATE_PUBLIC_ID", err.Error())
	case errors.Is(err, registry.ErrAlreadyClaimed):
		utils.ConflictResponse(c, "ALREADY_CLAIMED", err.Error())
	case errors.Is(err, registry.ErrUnauthorized):
		utils.ErrorResponse(c, http.StatusForbidden, "NOT_AUTHORITY", err.Error(), nil)
	case errors.Is(err, registry.ErrNotOwner):
		utils.ErrorResponse(c, http.StatusForbidden, "NOT_OWNER", err.Error(), nil)
	case errors.Is(err, registry.ErrPriceMustBePositive):
		utils.UnprocessableResponse(c, "PRICE_MUST_BE_POSITIVE", err.Error())
	case errors.Is(err, registry.ErrNotForSale):
		utils.UnprocessableResponse(c, "NOT_FOR_SALE", err.Error())
	case errors.Is(err, registry.ErrWrongPaymentAmount):
		utils.UnprocessableResponse(c, "WRONG_PAYMENT_AMOUNT", err.Error())
	case errors.Is(err, registry.ErrBuyerIsOwner):
		utils.UnprocessableResponse(c, "BUYER_IS_OWNER", err.Error())
	case errors.Is(err, registry.ErrValueTransferFailed):
		utils.UnprocessableResponse(c, "VALUE_TRANSFER_FAILED", err.Error())
	case errors.Is(err, registry.ErrInvalidRecipient):
		utils.UnprocessableResponse(c, "INVALID_RECIPIENT", err.Error())
	case strings.Contains(err.Error(), "validation failed"):
		utils.BadRequestResponse(c, err.Error(), nil)
	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}
