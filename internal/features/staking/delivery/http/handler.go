package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gaming-rewards-backend/internal/common/errors"
	"gaming-rewards-backend/internal/common/middleware"
	"gaming-rewards-backend/internal/features/staking/service"
)

type StakingHandler struct {
	service *service.Service
}

func NewStakingHandler(svc *service.Service) *StakingHandler {
	return &StakingHandler{service: svc}
}

func (h *StakingHandler) RegisterRoutes(router *gin.RouterGroup) {
	s := router.Group("/staking/:identity")
	{
		s.POST("", h.stake)
		s.DELETE("", h.unstake)
		s.GET("", h.position)
	}
}

type stakeRequest struct {
	Amount       uint64 `json:"amount" binding:"required"`
	LockDuration string `json:"lock_duration,omitempty"` // e.g. "720h"
}

// @Summary Open a staking position
// @Description Locks an amount for the identity. One active position per identity; the intended lock duration selects the tier.
// @Tags staking
// @Accept json
// @Produce json
// @Param identity path string true "Identity ID"
// @Param request body stakeRequest true "Stake parameters"
// @Success 200 {object} models.Position "Position opened"
// @Failure 409 {object} middleware.ErrorResponse "Position already open"
// @Router /staking/{identity} [post]
func (h *StakingHandler) stake(c *gin.Context) {
	var req stakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, errors.Wrap(err, errors.ErrCodeValidation, "invalid request body"))
		return
	}

	var intended time.Duration
	if req.LockDuration != "" {
		d, err := time.ParseDuration(req.LockDuration)
		if err != nil {
			middleware.SendError(c, errors.Wrap(err, errors.ErrCodeValidation, "invalid lock_duration"))
			return
		}
		intended = d
	}

	pos, err := h.service.StartStaking(c.Request.Context(), c.Param("identity"), req.Amount, intended)
	if err != nil {
		middleware.SendError(c, err)
		return
	}

	c.JSON(http.StatusOK, pos)
}

// @Summary Close a staking position
// @Description Releases the position and pays out the principal scaled by the elapsed-time multiplier.
// @Tags staking
// @Produce json
// @Param identity path string true "Identity ID"
// @Success 200 {object} models.UnstakeResult "Payout"
// @Failure 404 {object} middleware.ErrorResponse "No active position"
// @Router /staking/{identity} [delete]
func (h *StakingHandler) unstake(c *gin.Context) {
	res, err := h.service.Unstake(c.Request.Context(), c.Param("identity"))
	if err != nil {
		middleware.SendError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// @Summary Get the active staking position
// @Tags staking
// @Produce json
// @Param identity path string true "Identity ID"
// @Success 200 {object} models.Position "Active position"
// @Failure 404 {object} middleware.ErrorResponse "No active position"
// @Router /staking/{identity} [get]
func (h *StakingHandler) position(c *gin.Context) {
	pos, err := h.service.Position(c.Request.Context(), c.Param("identity"))
	if err != nil {
		middleware.SendError(c, err)
		return
	}
	if pos == nil {
		middleware.SendError(c, errors.New(errors.ErrCodeNoActivePosition, "no active staking position"))
		return
	}

	c.JSON(http.StatusOK, pos)
}
