package catalog

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fstopworks/darkroom/internal/models"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Collection{},
		&models.Image{},
		&models.UnlockCode{},
	))
	return NewService(db, zap.NewNop().Sugar()), db
}

func TestListPublishedCollections_HidesDrafts(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.CreateCollection(context.Background(), &models.Collection{Name: "Weddings", Slug: "weddings", IsPublished: true}))
	require.NoError(t, svc.CreateCollection(context.Background(), &models.Collection{Name: "Drafts", Slug: "drafts"}))

	rows, err := svc.ListPublishedCollections(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Weddings", rows[0].Name)
}

func TestCreateUnlockCode_StoresCanonicalForm(t *testing.T) {
	svc, db := newTestService(t)
	collection := &models.Collection{Name: "Weddings", Slug: "weddings", IsPublished: true}
	require.NoError(t, svc.CreateCollection(context.Background(), collection))

	code := &models.UnlockCode{Code: " cw-abc12345 ", CollectionID: collection.ID, IsActive: true}
	require.NoError(t, svc.CreateUnlockCode(context.Background(), code))

	var stored models.UnlockCode
	require.NoError(t, db.Where("id = ?", code.ID).First(&stored).Error)
	require.Equal(t, "CW-ABC12345", stored.Code)
}

func TestCreateUnlockCode_DuplicateRejected(t *testing.T) {
	svc, _ := newTestService(t)
	collection := &models.Collection{Name: "Weddings", Slug: "weddings"}
	require.NoError(t, svc.CreateCollection(context.Background(), collection))

	require.NoError(t, svc.CreateUnlockCode(context.Background(), &models.UnlockCode{Code: "CW-ABC12345", CollectionID: collection.ID, IsActive: true}))
	// Same code after normalization.
	err := svc.CreateUnlockCode(context.Background(), &models.UnlockCode{Code: "cw-abc12345", CollectionID: collection.ID, IsActive: true})
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestCreateUnlockCode_UnknownCollection(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.CreateUnlockCode(context.Background(), &models.UnlockCode{Code: "CW-ABC12345", CollectionID: "missing", IsActive: true})
	require.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestSetUnlockCodeActive(t *testing.T) {
	svc, db := newTestService(t)
	collection := &models.Collection{Name: "Weddings", Slug: "weddings"}
	require.NoError(t, svc.CreateCollection(context.Background(), collection))
	code := &models.UnlockCode{Code: "CW-ABC12345", CollectionID: collection.ID, IsActive: true}
	require.NoError(t, svc.CreateUnlockCode(context.Background(), code))

	require.NoError(t, svc.SetUnlockCodeActive(context.Background(), code.ID, false))

	var stored models.UnlockCode
	require.NoError(t, db.Where("id = ?", code.ID).First(&stored).Error)
	require.False(t, stored.IsActive)

	require.ErrorIs(t, svc.SetUnlockCodeActive(context.Background(), "missing", false), ErrCodeNotFound)
}

func TestCreateImage_UnknownCollection(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.CreateImage(context.Background(), &models.Image{CollectionID: "missing", Title: "Dunes", StoragePath: "x.jpg", PriceCredits: 1})
	require.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestListImages_ScopedToCollection(t *testing.T) {
	svc, _ := newTestService(t)
	first := &models.Collection{Name: "Weddings", Slug: "weddings"}
	second := &models.Collection{Name: "Portraits", Slug: "portraits"}
	require.NoError(t, svc.CreateCollection(context.Background(), first))
	require.NoError(t, svc.CreateCollection(context.Background(), second))
	require.NoError(t, svc.CreateImage(context.Background(), &models.Image{CollectionID: first.ID, Title: "A", StoragePath: "a.jpg", PriceCredits: 1}))
	require.NoError(t, svc.CreateImage(context.Background(), &models.Image{CollectionID: second.ID, Title: "B", StoragePath: "b.jpg", PriceCredits: 1}))

	rows, err := svc.ListImages(context.Background(), first.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "A", rows[0].Title)
}
