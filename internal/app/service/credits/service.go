package credits

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fstopworks/darkroom/internal/models"
	"github.com/fstopworks/darkroom/pkg/logctx"
	"github.com/fstopworks/darkroom/pkg/tool"
	"github.com/fstopworks/darkroom/pkg/types"
)

var (
	// ErrAlreadyGranted means a grant with the same reference already sits in
	// the ledger. Safe to swallow on webhook replay.
	ErrAlreadyGranted = errors.New("credits already granted for this reference")
	// ErrAlreadyPurchased means the user already owns this image.
	ErrAlreadyPurchased = errors.New("image already purchased")
	ErrInsufficientCredits = errors.New("insufficient credit balance")
	ErrProfileNotFound     = errors.New("profile not found")
)

// Service owns every write to profiles.credit_balance and to the
// credit_transactions ledger. Balance mutations are server-side atomic
// expressions; the ledger's (user_id, type, description) unique index backs
// every idempotency pre-check, so concurrent duplicates fail at insert time
// and roll back the balance write they share a transaction with.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

type GrantParams struct {
	UserID      string
	Credits     int64
	Type        types.CreditTransactionType
	Description string
}

// Grant adds credits to a user's balance and appends the matching ledger
// row in one database transaction.
func (s *Service) Grant(ctx context.Context, params GrantParams) (*models.CreditTransaction, error) {
	if params.Credits <= 0 {
		return nil, fmt.Errorf("grant amount must be positive, got %d", params.Credits)
	}

	var existing models.CreditTransaction
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND description = ?", params.UserID, params.Type, params.Description).
		First(&existing).Error
	if err == nil {
		return nil, ErrAlreadyGranted
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check grant reference: %w", err)
	}

	txn := models.CreditTransaction{
		ID:          tool.GenerateUUIDV7(),
		UserID:      params.UserID,
		Amount:      params.Credits,
		Type:        params.Type,
		Description: params.Description,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Profile{}).
			Where("id = ?", params.UserID).
			UpdateColumn("credit_balance", gorm.Expr("credit_balance + ?", params.Credits))
		if res.Error != nil {
			return fmt.Errorf("failed to update balance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrProfileNotFound
		}

		if err := tx.Create(&txn).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyGranted
			}
			return fmt.Errorf("failed to create credit transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logctx.FromCtx(ctx, s.log).Infow("credits granted",
		"user_id", params.UserID, "credits", params.Credits, "reference", params.Description)
	return &txn, nil
}

// PurchaseImage debits the image price from the user's balance and records
// the purchase, all in one transaction. The debit is a conditional UPDATE
// guarded on the current balance, so two concurrent spends cannot both
// succeed against the same credits.
func (s *Service) PurchaseImage(ctx context.Context, userID string, image *models.Image) (*models.Purchase, error) {
	purchase := models.Purchase{
		ID:           tool.GenerateUUIDV7(),
		UserID:       userID,
		ImageID:      image.ID,
		CreditsSpent: image.PriceCredits,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Profile{}).
			Where("id = ? AND credit_balance >= ?", userID, image.PriceCredits).
			UpdateColumn("credit_balance", gorm.Expr("credit_balance - ?", image.PriceCredits))
		if res.Error != nil {
			return fmt.Errorf("failed to debit balance: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientCredits
		}

		txn := models.CreditTransaction{
			ID:          tool.GenerateUUIDV7(),
			UserID:      userID,
			Amount:      -image.PriceCredits,
			Type:        types.CreditTransactionTypePurchase,
			Description: fmt.Sprintf("image:%s", image.ID),
		}
		if err := tx.Create(&txn).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyPurchased
			}
			return fmt.Errorf("failed to create credit transaction: %w", err)
		}

		if err := tx.Create(&purchase).Error; err != nil {
			return fmt.Errorf("failed to create purchase: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logctx.FromCtx(ctx, s.log).Infow("image purchased",
		"user_id", userID, "image_id", image.ID, "credits", image.PriceCredits)
	return &purchase, nil
}

// GetBalance reads the user's current credit balance.
func (s *Service) GetBalance(ctx context.Context, userID string) (int64, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrProfileNotFound
		}
		return 0, fmt.Errorf("failed to load profile: %w", err)
	}
	return profile.CreditBalance, nil
}

// ListTransactions returns the user's ledger, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID string, limit int) ([]*models.CreditTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []*models.CreditTransaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return rows, nil
}
