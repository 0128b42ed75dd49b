package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fstopworks/darkroom/internal/models"
	"github.com/fstopworks/darkroom/pkg/logctx"
	"github.com/fstopworks/darkroom/pkg/tool"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrImageNotFound      = errors.New("image not found")
	ErrCodeNotFound       = errors.New("unlock code not found")
	ErrDuplicateCode      = errors.New("unlock code already exists")
)

// Service manages the storefront catalog: collections, images, and the
// admin side of unlock codes.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// ListPublishedCollections returns collections visible in the storefront.
func (s *Service) ListPublishedCollections(ctx context.Context) ([]*models.Collection, error) {
	var rows []*models.Collection
	err := s.db.WithContext(ctx).
		Where("is_published = ?", true).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return rows, nil
}

func (s *Service) GetCollection(ctx context.Context, id string) (*models.Collection, error) {
	var collection models.Collection
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&collection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCollectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	return &collection, nil
}

func (s *Service) ListImages(ctx context.Context, collectionID string) ([]*models.Image, error) {
	var rows []*models.Image
	err := s.db.WithContext(ctx).
		Where("collection_id = ?", collectionID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return rows, nil
}

func (s *Service) GetImage(ctx context.Context, id string) (*models.Image, error) {
	var image models.Image
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&image).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	return &image, nil
}

// Admin operations.

func (s *Service) CreateCollection(ctx context.Context, collection *models.Collection) error {
	if collection.ID == "" {
		collection.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Create(collection).Error; err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("collection created", "collection_id", collection.ID)
	return nil
}

func (s *Service) UpdateCollection(ctx context.Context, collection *models.Collection) error {
	res := s.db.WithContext(ctx).
		Model(&models.Collection{}).
		Where("id = ?", collection.ID).
		Updates(map[string]any{
			"name":         collection.Name,
			"slug":         collection.Slug,
			"description":  collection.Description,
			"is_published": collection.IsPublished,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update collection: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrCollectionNotFound
	}
	return nil
}

func (s *Service) DeleteCollection(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Collection{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete collection: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrCollectionNotFound
	}
	return nil
}

func (s *Service) CreateImage(ctx context.Context, image *models.Image) error {
	if image.ID == "" {
		image.ID = tool.GenerateUUIDV7()
	}
	if _, err := s.GetCollection(ctx, image.CollectionID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(image).Error; err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	return nil
}

func (s *Service) DeleteImage(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Image{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete image: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrImageNotFound
	}
	return nil
}

// CreateUnlockCode stores the code in canonical form so redemption lookup
// is a plain unique-index match.
func (s *Service) CreateUnlockCode(ctx context.Context, code *models.UnlockCode) error {
	code.Code = models.NormalizeUnlockCode(code.Code)
	if code.Code == "" {
		return fmt.Errorf("code must not be empty")
	}
	if code.ID == "" {
		code.ID = tool.GenerateUUIDV7()
	}
	if _, err := s.GetCollection(ctx, code.CollectionID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(code).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("failed to create unlock code: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("unlock code created",
		"code", code.Code, "collection_id", code.CollectionID, "max_uses", code.MaxUses)
	return nil
}

func (s *Service) ListUnlockCodes(ctx context.Context, collectionID string) ([]*models.UnlockCode, error) {
	q := s.db.WithContext(ctx).Model(&models.UnlockCode{})
	if collectionID != "" {
		q = q.Where("collection_id = ?", collectionID)
	}
	var rows []*models.UnlockCode
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list unlock codes: %w", err)
	}
	return rows, nil
}

// SetUnlockCodeActive flips is_active; deactivated codes stay in place for
// auditability, they are never deleted automatically.
func (s *Service) SetUnlockCodeActive(ctx context.Context, id string, active bool) error {
	res := s.db.WithContext(ctx).
		Model(&models.UnlockCode{}).
		Where("id = ?", id).
		UpdateColumn("is_active", active)
	if res.Error != nil {
		return fmt.Errorf("failed to update unlock code: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrCodeNotFound
	}
	return nil
}
