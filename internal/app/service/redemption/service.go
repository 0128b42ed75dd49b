package redemption

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fstopworks/darkroom/internal/models"
	"github.com/fstopworks/darkroom/pkg/logctx"
	"github.com/fstopworks/darkroom/pkg/tool"
)

// Business rejections, in the order they are checked. Handlers surface them
// as a success:false envelope, never as an HTTP error.
var (
	ErrInvalidCode     = errors.New("invalid code")
	ErrLookupFailed    = errors.New("unable to look up code")
	ErrCodeDisabled    = errors.New("this code has been disabled")
	ErrCodeExhausted   = errors.New("this code has reached its usage limit")
	ErrCodeExpired     = errors.New("this code has expired")
	ErrAlreadyUnlocked = errors.New("collection already unlocked")
	ErrGrantFailed     = errors.New("failed to unlock collection")
)

// Service redeems unlock codes. The grant insert and the use-count
// increment run inside one database transaction: a grant can never land
// without its increment, and the increment is a conditional UPDATE guarded
// by the use limit, so concurrent redemptions of a nearly exhausted code
// cannot race past max_uses.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// Redeem grants the caller access to the collection behind rawCode and
// returns the collection's display name. At most one unlock row per
// (user, collection) ever exists; a repeat call returns ErrAlreadyUnlocked
// without side effects.
func (s *Service) Redeem(ctx context.Context, userID, rawCode string) (string, error) {
	canonical := models.NormalizeUnlockCode(rawCode)
	if canonical == "" {
		return "", ErrInvalidCode
	}

	var code models.UnlockCode
	err := s.db.WithContext(ctx).Where("code = ?", canonical).First(&code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrInvalidCode
	}
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("unlock code lookup failed", "error", err.Error())
		return "", ErrLookupFailed
	}

	// Validation order is part of the contract: disabled before exhausted
	// before expired.
	if !code.IsActive {
		return "", ErrCodeDisabled
	}
	if code.Exhausted() {
		return "", ErrCodeExhausted
	}
	if code.Expired(time.Now()) {
		return "", ErrCodeExpired
	}

	var existing models.UnlockedCollection
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND collection_id = ?", userID, code.CollectionID).
		First(&existing).Error
	if err == nil {
		return "", ErrAlreadyUnlocked
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logctx.FromCtx(ctx, s.log).Errorw("unlock lookup failed", "error", err.Error())
		return "", ErrLookupFailed
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UnlockCode{}).
			Where("id = ? AND is_active = ? AND (max_uses = 0 OR times_used < max_uses)", code.ID, true).
			UpdateColumn("times_used", gorm.Expr("times_used + 1"))
		if res.Error != nil {
			return fmt.Errorf("failed to increment use count: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// A concurrent redemption consumed the last use between our read
			// and this update.
			return ErrCodeExhausted
		}

		unlock := models.UnlockedCollection{
			ID:           tool.GenerateUUIDV7(),
			UserID:       userID,
			CollectionID: code.CollectionID,
			UnlockCodeID: code.ID,
		}
		if err := tx.Create(&unlock).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyUnlocked
			}
			return fmt.Errorf("failed to create unlock: %w", err)
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrCodeExhausted), errors.Is(err, ErrAlreadyUnlocked):
			return "", err
		default:
			logctx.FromCtx(ctx, s.log).Errorw("unlock grant failed",
				"user_id", userID, "code", canonical, "error", err.Error())
			return "", ErrGrantFailed
		}
	}

	var collection models.Collection
	name := code.CollectionID
	if err := s.db.WithContext(ctx).Where("id = ?", code.CollectionID).First(&collection).Error; err == nil {
		name = collection.Name
	}

	logctx.FromCtx(ctx, s.log).Infow("collection unlocked",
		"user_id", userID, "code", canonical, "collection_id", code.CollectionID)
	return name, nil
}

// ListUnlocked returns the user's unlocked collections.
func (s *Service) ListUnlocked(ctx context.Context, userID string) ([]*models.UnlockedCollection, error) {
	var rows []*models.UnlockedCollection
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unlocked collections: %w", err)
	}
	return rows, nil
}
