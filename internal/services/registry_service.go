// internal/services/registry_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/chaincert/chaincert-backend/internal/models"
	"github.com/chaincert/chaincert-backend/internal/registry"
	"github.com/chaincert/chaincert-backend/internal/utils"
)

// RegistryService fronts the registry state machine for the HTTP layer.
// The in-memory registry is authoritative; after each successful
// transition the matching product_records row is updated best-effort
// for catalogue queries.
type RegistryService struct {
	reg *registry.Registry
	db  *gorm.DB
}

type MintProductRequest struct {
	Enterprise   string `json:"enterprise" validate:"required"`
	MetadataURI  string `json:"metadata_uri" validate:"required"`
	SerialNumber string `json:"serial_number" validate:"required,product_key"`
	PublicID     string `json:"public_id" validate:"required,product_key"`
}

type ClaimProductRequest struct {
	SerialNumber string `json:"serial_number" validate:"required,product_key"`
}

type PutForSaleRequest struct {
	Price uint64 `json:"price" validate:"required,min=1"`
}

type BuyProductRequest struct {
	PaymentAmount uint64 `json:"payment_amount" validate:"required,min=1"`
}

type TransferProductRequest struct {
	To string `json:"to" validate:"required"`
}

func NewRegistryService(reg *registry.Registry, db *gorm.DB) *RegistryService {
	return &RegistryService{reg: reg, db: db}
}

func (s *RegistryService) MintProduct(caller registry.Address, req *MintProductRequest) (uint64, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return 0, fmt.Errorf("validation failed: %w", err)
	}

	tokenID, err := s.reg.Mint(caller, registry.Address(req.Enterprise), req.MetadataURI, req.SerialNumber, req.PublicID)
	if err != nil {
		return 0, err
	}

	s.syncRecord(tokenID)
	return tokenID, nil
}

func (s *RegistryService) ClaimProduct(caller registry.Address, req *ClaimProductRequest) (registry.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return registry.Product{}, fmt.Errorf("validation failed: %w", err)
	}

	product, err := s.reg.Claim(caller, req.SerialNumber)
	if err != nil {
		return registry.Product{}, err
	}

	s.syncRecord(product.TokenID)
	return product, nil
}

func (s *RegistryService) PutForSale(caller registry.Address, tokenID uint64, req *PutForSaleRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := s.reg.PutForSale(caller, tokenID, req.Price); err != nil {
		return err
	}

	s.syncRecord(tokenID)
	return nil
}

func (s *RegistryService) BuyProduct(caller registry.Address, tokenID uint64, req *BuyProductRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := s.reg.Buy(caller, tokenID, req.PaymentAmount); err != nil {
		return err
	}

	s.syncRecord(tokenID)
	return nil
}

func (s *RegistryService) TransferProduct(caller registry.Address, tokenID uint64, req *TransferProductRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := s.reg.Transfer(caller, registry.Address(req.To), tokenID); err != nil {
		return err
	}

	s.syncRecord(tokenID)
	return nil
}

// GetProductByKey resolves by public id first, then serial number.
func (s *RegistryService) GetProductByKey(key string) (registry.Product, error) {
	return s.reg.ProductByKey(key)
}

func (s *RegistryService) GetProductByTokenID(tokenID uint64) (registry.Product, error) {
	return s.reg.ProductByTokenID(tokenID)
}

// GetProductsByOwner never errors; an address that owns nothing gets an
// empty collection.
func (s *RegistryService) GetProductsByOwner(owner registry.Address) []registry.Product {
	return s.reg.ProductsByOwner(owner)
}

// SearchProducts serves catalogue queries from the read model.
func (s *RegistryService) SearchProducts(params utils.PaginationParams, forSaleOnly bool) ([]models.ProductRecord, int64, error) {
	if s.db == nil {
		return nil, 0, errors.New("catalogue queries require a database")
	}

	query := s.db.Model(&models.ProductRecord{})
	if forSaleOnly {
		query = query.Where("is_for_sale = ?", true)
	}
	if params.Search != "" {
		term := "%" + params.Search + "%"
		query = query.Where("serial_number ILIKE ? OR public_id ILIKE ?", term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "token_id", "price"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var records []models.ProductRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	return records, total, nil
}

// GetProductEvents returns the persisted notification history of one
// token, oldest first.
func (s *RegistryService) GetProductEvents(tokenID uint64, params utils.PaginationParams) ([]models.RegistryEvent, int64, error) {
	if s.db == nil {
		return nil, 0, errors.New("event history requires a database")
	}

	query := s.db.Model(&models.RegistryEvent{}).Where("token_id = ?", tokenID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	query = query.Order("created_at asc")
	query = utils.ApplyPagination(query, params)

	var events []models.RegistryEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch events: %w", err)
	}

	return events, total, nil
}

// syncRecord mirrors the current product state into product_records.
// Asynchronous: the registry has already committed, the read model just
// catches up.
func (s *RegistryService) syncRecord(tokenID uint64) {
	if s.db == nil {
		return
	}

	product, err := s.reg.ProductByTokenID(tokenID)
	if err != nil {
		return
	}

	go func() {
		record := models.ProductRecord{
			TokenID:      product.TokenID,
			Enterprise:   string(product.Enterprise),
			SerialNumber: product.SerialNumber,
			PublicID:     product.PublicID,
			MetadataURI:  product.MetadataURI,
			IsClaimed:    product.IsClaimed,
			Owner:        string(product.Owner),
			IsForSale:    product.IsForSale,
			Price:        product.Price,
		}

		err := s.db.Where("token_id = ?", product.TokenID).
			Assign(map[string]interface{}{
				"is_claimed":  record.IsClaimed,
				"owner":       record.Owner,
				"is_for_sale": record.IsForSale,
				"price":       record.Price,
			}).
			FirstOrCreate(&record).Error
		if err != nil {
			logrus.WithError(err).WithField("token_id", product.TokenID).
				Error("Failed to sync product record")
		}
	}()
}
