package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/fstopworks/darkroom/internal/app/service/catalog"
	"github.com/fstopworks/darkroom/internal/app/service/credits"
	"github.com/fstopworks/darkroom/internal/models"
	"github.com/fstopworks/darkroom/pkg/config"
	"github.com/fstopworks/darkroom/pkg/response"
)

type UpsertCollectionRequest struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug" binding:"required"`
	Description string `json:"description"`
	IsPublished bool   `json:"is_published"`
}

type CreateImageRequest struct {
	CollectionID string `json:"collection_id" binding:"required"`
	Title        string `json:"title" binding:"required"`
	StoragePath  string `json:"storage_path" binding:"required"`
	PriceCredits int64  `json:"price_credits"`
}

type CreateUnlockCodeRequest struct {
	Code         string     `json:"code" binding:"required"`
	CollectionID string     `json:"collection_id" binding:"required"`
	MaxUses      int        `json:"max_uses"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

type SetUnlockCodeActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// @Summary      Create collection
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body handlers.UpsertCollectionRequest true "Collection"
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/collections [post]
func ApiAdminCreateCollection(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpsertCollectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		collection := models.Collection{
			Name:        req.Name,
			Slug:        req.Slug,
			Description: req.Description,
			IsPublished: req.IsPublished,
		}
		if err := cat.CreateCollection(c.Request.Context(), &collection); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(&collection))
	}
}

// @Summary      Update collection
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id path string true "Collection id"
// @Param        request body handlers.UpsertCollectionRequest true "Collection"
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/collections/{id} [put]
func ApiAdminUpdateCollection(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpsertCollectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		collection := models.Collection{
			ID:          c.Param("id"),
			Name:        req.Name,
			Slug:        req.Slug,
			Description: req.Description,
			IsPublished: req.IsPublished,
		}
		if err := cat.UpdateCollection(c.Request.Context(), &collection); err != nil {
			code := response.APIResponseCodeError
			if errors.Is(err, catalog.ErrCollectionNotFound) {
				code = response.APIResponseCodeNotFound
			}
			c.JSON(http.StatusOK, response.ErrorT[any](code, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(&collection))
	}
}

// @Summary      Delete collection
// @Tags         Admin
// @Produce      json
// @Param        id path string true "Collection id"
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/collections/{id} [delete]
func ApiAdminDeleteCollection(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := cat.DeleteCollection(c.Request.Context(), c.Param("id")); err != nil {
			code := response.APIResponseCodeError
			if errors.Is(err, catalog.ErrCollectionNotFound) {
				code = response.APIResponseCodeNotFound
			}
			c.JSON(http.StatusOK, response.ErrorT[any](code, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Create image
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body handlers.CreateImageRequest true "Image"
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/images [post]
func ApiAdminCreateImage(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateImageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		image := models.Image{
			CollectionID: req.CollectionID,
			Title:        req.Title,
			StoragePath:  req.StoragePath,
			PriceCredits: lo.Ternary(req.PriceCredits > 0, req.PriceCredits, 1),
		}
		if err := cat.CreateImage(c.Request.Context(), &image); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(&image))
	}
}

// @Summary      Delete image
// @Tags         Admin
// @Produce      json
// @Param        id path string true "Image id"
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/images/{id} [delete]
func ApiAdminDeleteImage(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := cat.DeleteImage(c.Request.Context(), c.Param("id")); err != nil {
			code := response.APIResponseCodeError
			if errors.Is(err, catalog.ErrImageNotFound) {
				code = response.APIResponseCodeNotFound
			}
			c.JSON(http.StatusOK, response.ErrorT[any](code, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Create unlock code
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body handlers.CreateUnlockCodeRequest true "Unlock code"
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/unlock_codes [post]
func ApiAdminCreateUnlockCode(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateUnlockCodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		code := models.UnlockCode{
			Code:         req.Code,
			CollectionID: req.CollectionID,
			MaxUses:      req.MaxUses,
			IsActive:     true,
			ExpiresAt:    req.ExpiresAt,
		}
		if err := cat.CreateUnlockCode(c.Request.Context(), &code); err != nil {
			responseCode := response.APIResponseCodeError
			if errors.Is(err, catalog.ErrDuplicateCode) || errors.Is(err, catalog.ErrCollectionNotFound) {
				responseCode = response.APIResponseCodeBadRequest
			}
			c.JSON(http.StatusOK, response.ErrorT[any](responseCode, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(&code))
	}
}

// @Summary      List unlock codes
// @Tags         Admin
// @Produce      json
// @Param        collection_id query string false "Filter by collection"
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/unlock_codes [get]
func ApiAdminListUnlockCodes(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := cat.ListUnlockCodes(c.Request.Context(), c.Query("collection_id"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Enable or disable unlock code
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id path string true "Unlock code id"
// @Param        request body handlers.SetUnlockCodeActiveRequest true "Active flag"
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/unlock_codes/{id}/active [put]
func ApiAdminSetUnlockCodeActive(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SetUnlockCodeActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "is_active is required"))
			return
		}
		if err := cat.SetUnlockCodeActive(c.Request.Context(), c.Param("id"), *req.IsActive); err != nil {
			code := response.APIResponseCodeError
			if errors.Is(err, catalog.ErrCodeNotFound) {
				code = response.APIResponseCodeNotFound
			}
			c.JSON(http.StatusOK, response.ErrorT[any](code, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      List credit packs
// @Description  Returns the configured price-to-credits table.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/credit_packs [get]
func ApiAdminListCreditPacks(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OKT(cfg.CreditPacks))
	}
}

// @Summary      Scan credit transactions
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body credits.ScanTransactionsRequest true "Scan request"
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/transactions/scan [post]
func ApiAdminScanTransactions(cred *credits.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credits.ScanTransactionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := cred.ScanTransactions(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAdminRoutes(r gin.IRouter, cat *catalog.Service, cred *credits.Service, cfg *config.Config) {
	r.POST("/collections", ApiAdminCreateCollection(cat))
	r.PUT("/collections/:id", ApiAdminUpdateCollection(cat))
	r.DELETE("/collections/:id", ApiAdminDeleteCollection(cat))

	r.POST("/images", ApiAdminCreateImage(cat))
	r.DELETE("/images/:id", ApiAdminDeleteImage(cat))

	r.POST("/unlock_codes", ApiAdminCreateUnlockCode(cat))
	r.GET("/unlock_codes", ApiAdminListUnlockCodes(cat))
	r.PUT("/unlock_codes/:id/active", ApiAdminSetUnlockCodeActive(cat))

	r.GET("/credit_packs", ApiAdminListCreditPacks(cfg))
	r.POST("/transactions/scan", ApiAdminScanTransactions(cred))
}
