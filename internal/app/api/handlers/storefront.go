package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fstopworks/darkroom/internal/app/api/middleware"
	"github.com/fstopworks/darkroom/internal/app/service/billing"
	"github.com/fstopworks/darkroom/internal/app/service/catalog"
	"github.com/fstopworks/darkroom/internal/app/service/credits"
	"github.com/fstopworks/darkroom/internal/app/service/redemption"
	"github.com/fstopworks/darkroom/pkg/response"
)

// @Summary      List collections
// @Description  Returns all published collections.
// @Tags         Storefront
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/collections [get]
func ApiListCollections(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := cat.ListPublishedCollections(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      List collection images
// @Tags         Storefront
// @Produce      json
// @Param        id path string true "Collection id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/collections/{id}/images [get]
func ApiListCollectionImages(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := cat.GetCollection(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, err.Error()))
			return
		}
		rows, err := cat.ListImages(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Current profile
// @Tags         Storefront
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/me [get]
func ApiGetProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OKT(middleware.ProfileFromContext(c)))
	}
}

// @Summary      My unlocked collections
// @Tags         Storefront
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/me/unlocked [get]
func ApiListUnlocked(rdm *redemption.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile := middleware.ProfileFromContext(c)
		rows, err := rdm.ListUnlocked(c.Request.Context(), profile.ID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      My credit ledger
// @Tags         Storefront
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/me/transactions [get]
func ApiListTransactions(cred *credits.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile := middleware.ProfileFromContext(c)
		rows, err := cred.ListTransactions(c.Request.Context(), profile.ID, 0)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

type PurchaseImageRequest struct {
	ImageID string `json:"image_id" binding:"required"`
}

// @Summary      Purchase image
// @Description  Spends credits on an image download. Insufficient balance is a business rejection, not a server error.
// @Tags         Storefront
// @Accept       json
// @Produce      json
// @Param        request body handlers.PurchaseImageRequest true "Purchase request"
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/me/purchases [post]
func ApiPurchaseImage(cat *catalog.Service, cred *credits.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PurchaseImageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		profile := middleware.ProfileFromContext(c)
		image, err := cat.GetImage(c.Request.Context(), req.ImageID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, err.Error()))
			return
		}

		purchase, err := cred.PurchaseImage(c.Request.Context(), profile.ID, image)
		if err != nil {
			switch {
			case errors.Is(err, credits.ErrInsufficientCredits), errors.Is(err, credits.ErrAlreadyPurchased):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			default:
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}
		c.JSON(http.StatusOK, response.OKT(purchase))
	}
}

type StartCheckoutRequest struct {
	PriceID string `json:"price_id" binding:"required"`
}

type StartCheckoutResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// @Summary      Start checkout
// @Description  Creates a Stripe checkout session for a configured credit pack.
// @Tags         Storefront
// @Accept       json
// @Produce      json
// @Param        request body handlers.StartCheckoutRequest true "Checkout request"
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/checkout [post]
func ApiStartCheckout(bil *billing.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StartCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		profile := middleware.ProfileFromContext(c)
		sessionID, url, err := bil.StartCheckout(c.Request.Context(), profile, req.PriceID)
		if err != nil {
			if errors.Is(err, billing.ErrUnknownCreditPack) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(StartCheckoutResponse{SessionID: sessionID, CheckoutURL: url}))
	}
}

func RegisterStorefrontRoutes(public, authed gin.IRouter, cat *catalog.Service, cred *credits.Service, rdm *redemption.Service, bil *billing.Service) {
	public.GET("/collections", ApiListCollections(cat))
	public.GET("/collections/:id/images", ApiListCollectionImages(cat))

	authed.GET("/me", ApiGetProfile())
	authed.GET("/me/unlocked", ApiListUnlocked(rdm))
	authed.GET("/me/transactions", ApiListTransactions(cred))
	authed.POST("/me/purchases", ApiPurchaseImage(cat, cred))
	authed.POST("/checkout", ApiStartCheckout(bil))
}
