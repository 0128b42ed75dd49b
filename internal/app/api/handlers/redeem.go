package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fstopworks/darkroom/internal/app/api/middleware"
	"github.com/fstopworks/darkroom/internal/models"
	"github.com/fstopworks/darkroom/pkg/logctx"
)

// IdentityResolver resolves the caller behind a bearer token.
type IdentityResolver interface {
	ResolveUser(ctx context.Context, token string) (*models.Profile, error)
}

// Redeemer grants collection access for an unlock code.
type Redeemer interface {
	Redeem(ctx context.Context, userID, rawCode string) (string, error)
}

// RedeemResponse is the redemption wire envelope. Every outcome except a
// transport failure is a 200; callers branch on Success, not on the status
// code.
type RedeemResponse struct {
	Success    bool   `json:"success"`
	Collection string `json:"collection,omitempty"`
	Error      string `json:"error,omitempty"`
}

func redeemFailure(c *gin.Context, reason string) {
	c.JSON(http.StatusOK, RedeemResponse{Success: false, Error: reason})
}

// @Summary      Redeem unlock code
// @Description  Redeems an unlock code and grants the caller access to its collection. All outcomes are reported with HTTP 200 and a success discriminator in the body.
// @Tags         Redemption
// @Accept       json
// @Produce      json
// @Param        request body map[string]string true "JSON body with a code field"
// @Security     BearerAuth
// @Success      200  {object}  handlers.RedeemResponse
// @Router       /api/v1/redeem [post]
func ApiRedeemCode(ids IdentityResolver, rdm Redeemer, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := middleware.BearerToken(c)
		if token == "" {
			redeemFailure(c, "not authenticated")
			return
		}

		profile, err := ids.ResolveUser(c.Request.Context(), token)
		if err != nil {
			redeemFailure(c, "invalid or expired session")
			return
		}

		// The code field must be present and a string; decode into a loose
		// map so a numeric or null code is rejected instead of coerced.
		var body map[string]json.RawMessage
		if err := c.ShouldBindJSON(&body); err != nil {
			redeemFailure(c, "code is required")
			return
		}
		var code string
		if raw, ok := body["code"]; !ok || json.Unmarshal(raw, &code) != nil || code == "" {
			redeemFailure(c, "code is required")
			return
		}

		collection, err := rdm.Redeem(c.Request.Context(), profile.ID, code)
		if err != nil {
			// Business rejections carry their own user-facing message.
			logctx.FromGin(c, log).Infow("redeem rejected",
				"user_id", profile.ID, "reason", err.Error())
			redeemFailure(c, err.Error())
			return
		}

		logctx.FromGin(c, log).Infow("redeem succeeded",
			"user_id", profile.ID, "collection", collection)
		c.JSON(http.StatusOK, RedeemResponse{Success: true, Collection: collection})
	}
}

func RegisterRedeemRoutes(r gin.IRouter, ids IdentityResolver, rdm Redeemer, log *zap.SugaredLogger) {
	r.POST("/redeem", ApiRedeemCode(ids, rdm, log))
}
