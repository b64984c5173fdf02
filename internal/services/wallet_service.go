// internal/services/wallet_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"gorm.io/gorm"

	"github.com/chaincert/chaincert-backend/internal/config"
	"github.com/chaincert/chaincert-backend/internal/ledger"
	"github.com/chaincert/chaincert-backend/internal/models"
	"github.com/chaincert/chaincert-backend/internal/registry"
	"github.com/chaincert/chaincert-backend/internal/utils"
)

// WalletService funds ledger accounts from an external payment
// processor. A deposit goes pending when the payment intent is created
// and credits the ledger once the intent succeeds. Without a Stripe key
// (development) deposits credit immediately.
type WalletService struct {
	db     *gorm.DB
	ledger *ledger.Ledger
	cfg    *config.Config
}

type CreateDepositRequest struct {
	Amount uint64 `json:"amount" validate:"required,min=1"`
}

type DepositResponse struct {
	DepositID    uuid.UUID `json:"deposit_id"`
	ClientSecret string    `json:"client_secret,omitempty"`
	Status       string    `json:"status"`
}

type ConfirmDepositRequest struct {
	DepositID uuid.UUID `json:"deposit_id" validate:"required"`
}

func NewWalletService(db *gorm.DB, l *ledger.Ledger, cfg *config.Config) *WalletService {
	// Initialize Stripe
	stripe.Key = cfg.Payment.StripeSecretKey

	return &WalletService{
		db:     db,
		ledger: l,
		cfg:    cfg,
	}
}

func (s *WalletService) CreateDeposit(accountID uuid.UUID, address registry.Address, req *CreateDepositRequest) (*DepositResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	deposit := &models.Deposit{
		AccountID: accountID,
		Amount:    req.Amount,
		Status:    models.DepositStatusPending,
	}
	deposit.ID = uuid.New()

	// Development mode: no processor configured, credit right away.
	if s.cfg.Payment.StripeSecretKey == "" {
		now := time.Now()
		deposit.Status = models.DepositStatusCompleted
		deposit.ProcessedAt = &now

		if err := s.ledger.Deposit(address, req.Amount); err != nil {
			return nil, fmt.Errorf("failed to credit ledger: %w", err)
		}
		s.saveDeposit(deposit)

		return &DepositResponse{
			DepositID: deposit.ID,
			Status:    string(deposit.Status),
		}, nil
	}

	// Create Stripe PaymentIntent; amounts are already integer units.
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(req.Amount)),
		Currency: stripe.String("usd"),
	}
	params.AddMetadata("account_id", accountID.String())
	params.AddMetadata("deposit_id", deposit.ID.String())

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	deposit.PaymentReference = pi.ID
	s.saveDeposit(deposit)

	return &DepositResponse{
		DepositID:    deposit.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(deposit.Status),
	}, nil
}

func (s *WalletService) ConfirmDeposit(accountID uuid.UUID, address registry.Address, req *ConfirmDepositRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if s.db == nil {
		return errors.New("deposit confirmation requires a database")
	}

	var deposit models.Deposit
	if err := s.db.Where("id = ? AND account_id = ?", req.DepositID, accountID).First(&deposit).Error; err != nil {
		return fmt.Errorf("deposit not found: %w", err)
	}

	if deposit.Status != models.DepositStatusPending {
		return errors.New("deposit is not pending")
	}

	// Check the payment intent state with Stripe
	pi, err := paymentintent.Get(deposit.PaymentReference, nil)
	if err != nil {
		return fmt.Errorf("failed to get payment intent: %w", err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		now := time.Now()
		deposit.Status = models.DepositStatusCompleted
		deposit.ProcessedAt = &now

		if err := s.ledger.Deposit(address, deposit.Amount); err != nil {
			return fmt.Errorf("failed to credit ledger: %w", err)
		}

	case stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresPaymentMethod, stripe.PaymentIntentStatusProcessing:
		return errors.New("payment has not completed yet")

	default:
		deposit.Status = models.DepositStatusFailed
	}

	if err := s.db.Save(&deposit).Error; err != nil {
		return fmt.Errorf("failed to update deposit: %w", err)
	}

	if deposit.Status == models.DepositStatusFailed {
		return errors.New("payment failed")
	}
	return nil
}

func (s *WalletService) GetBalance(address registry.Address) uint64 {
	return s.ledger.BalanceOf(address)
}

func (s *WalletService) GetDepositHistory(accountID uuid.UUID, params utils.PaginationParams) ([]models.Deposit, int64, error) {
	if s.db == nil {
		return nil, 0, errors.New("deposit history requires a database")
	}

	query := s.db.Model(&models.Deposit{}).Where("account_id = ?", accountID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count deposits: %w", err)
	}

	allowedSortFields := []string{"created_at", "amount", "status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var deposits []models.Deposit
	if err := query.Find(&deposits).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch deposits: %w", err)
	}

	return deposits, total, nil
}

func (s *WalletService) saveDeposit(deposit *models.Deposit) {
	if s.db == nil {
		return
	}
	if err := s.db.Create(deposit).Error; err != nil {
		// The ledger credit already happened; the row is bookkeeping.
		fmt.Printf("Warning: failed to save deposit %s: %v\n", deposit.ID, err)
	}
}
