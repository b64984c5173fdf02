// internal/handlers/metadata.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/chaincert/chaincert-backend/internal/services"
	"github.com/chaincert/chaincert-backend/internal/utils"
)

type MetadataHandler struct {
	metadataService *services.MetadataService
}

func NewMetadataHandler(metadataService *services.MetadataService) *MetadataHandler {
	return &MetadataHandler{metadataService: metadataService}
}

// POST /metadata — upload a product description document; the returned
// URI is what gets recorded at mint time
func (h *MetadataHandler) UploadMetadata(c *gin.Context) {
	var doc services.ProductMetadata
	if err := c.ShouldBindJSON(&doc); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&doc)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.metadataService.UploadMetadata(&doc)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.CreatedResponse(c, result)
}
