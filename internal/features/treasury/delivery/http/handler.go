package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gaming-rewards-backend/internal/common/errors"
	"gaming-rewards-backend/internal/common/middleware"
	"gaming-rewards-backend/internal/features/treasury/service"
)

type TreasuryHandler struct {
	service *service.Service
}

func NewTreasuryHandler(svc *service.Service) *TreasuryHandler {
	return &TreasuryHandler{service: svc}
}

func (h *TreasuryHandler) RegisterRoutes(router *gin.RouterGroup) {
	t := router.Group("/treasury")
	{
		t.POST("/harvest", h.harvest)
		t.GET("/status", h.status)
		t.POST("/claims/:identity", h.claim)
		t.GET("/accounts/:identity", h.userAccount)
	}
}

type harvestRequest struct {
	Amount uint64 `json:"amount" binding:"required"`
}

// @Summary Harvest yield into the treasury
// @Description Splits the harvested amount between the user-reward pool and the reserve. Limited to one harvest per interval.
// @Tags treasury
// @Accept json
// @Produce json
// @Param request body harvestRequest true "Yield amount"
// @Success 200 {object} models.HarvestEvent "Harvest recorded"
// @Failure 400 {object} middleware.ErrorResponse "Amount out of range"
// @Failure 429 {object} middleware.ErrorResponse "Harvest too frequent"
// @Router /treasury/harvest [post]
func (h *TreasuryHandler) harvest(c *gin.Context) {
	var req harvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, errors.Wrap(err, errors.ErrCodeValidation, "invalid request body"))
		return
	}

	ev, err := h.service.AddYield(c.Request.Context(), req.Amount)
	if err != nil {
		middleware.SendError(c, err)
		return
	}

	c.JSON(http.StatusOK, ev)
}

// @Summary Get treasury balances
// @Tags treasury
// @Produce json
// @Success 200 {object} models.TreasuryAccount "Treasury state"
// @Router /treasury/status [get]
func (h *TreasuryHandler) status(c *gin.Context) {
	acc, err := h.service.Status(c.Request.Context())
	if err != nil {
		middleware.SendError(c, err)
		return
	}

	c.JSON(http.StatusOK, acc)
}

type claimRequest struct {
	Amount uint64 `json:"amount" binding:"required"`
}

// @Summary Claim rewards
// @Description Releases funds from the user-reward pool to the identity's linked account. The identity must pass verification first.
// @Tags treasury
// @Accept json
// @Produce json
// @Param identity path string true "Identity ID"
// @Param request body claimRequest true "Claim amount"
// @Success 200 {object} models.ClaimEvent "Claim fulfilled"
// @Failure 403 {object} middleware.ErrorResponse "Verification below threshold or fraud flagged"
// @Failure 422 {object} middleware.ErrorResponse "Insufficient pool"
// @Failure 429 {object} middleware.ErrorResponse "Claim too frequent"
// @Router /treasury/claims/{identity} [post]
func (h *TreasuryHandler) claim(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, errors.Wrap(err, errors.ErrCodeValidation, "invalid request body"))
		return
	}

	ev, err := h.service.Claim(c.Request.Context(), c.Param("identity"), req.Amount)
	if err != nil {
		// The ledger may have committed before the transfer failed; the
		// event is returned alongside the error so the caller can see it.
		if ev != nil {
			if appErr, ok := errors.AsAppError(err); ok {
				appErr.WithDetail("claim_event", ev)
			}
		}
		middleware.SendError(c, err)
		return
	}

	c.JSON(http.StatusOK, ev)
}

// @Summary Get a per-identity reward account
// @Tags treasury
// @Produce json
// @Param identity path string true "Identity ID"
// @Success 200 {object} models.UserRewardAccount "Reward account"
// @Failure 404 {object} middleware.ErrorResponse "No claims on record"
// @Router /treasury/accounts/{identity} [get]
func (h *TreasuryHandler) userAccount(c *gin.Context) {
	acc, err := h.service.UserAccount(c.Request.Context(), c.Param("identity"))
	if err != nil {
		middleware.SendError(c, err)
		return
	}
	if acc == nil {
		middleware.SendError(c, errors.New(errors.ErrCodeNotFound, "no reward account for identity"))
		return
	}

	c.JSON(http.StatusOK, acc)
}
