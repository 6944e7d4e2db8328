package http

import (
	"crypto/ed25519"
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	go_redis "github.com/redis/go-redis/v9"

	"gaming-rewards-backend/internal/common/errors"
	"gaming-rewards-backend/internal/common/middleware"
	"gaming-rewards-backend/internal/features/oracle/service"
	"gaming-rewards-backend/internal/platform/redis"
)

type OracleHandler struct {
	service *service.Service
	rdb     *redis.Client
}

func NewOracleHandler(svc *service.Service, rdb *redis.Client) *OracleHandler {
	return &OracleHandler{service: svc, rdb: rdb}
}

func (h *OracleHandler) RegisterRoutes(router *gin.RouterGroup) {
	o := router.Group("/oracles")
	{
		o.POST("", h.register)
		o.GET("/:id", h.get)
		o.POST("/:id/slash", h.slash)
	}

	router.POST("/fraud/reports", h.reportFraud)
}

type registerRequest struct {
	AttestorID string `json:"attestor_id" binding:"required"`
	PublicKey  string `json:"public_key" binding:"required"` // base64 ed25519
	Stake      uint64 `json:"stake" binding:"required"`
}

// @Summary Register an attestor
// @Description Registers an attestor with its signing key and stake. The stake must fall in the allowed band.
// @Tags oracles
// @Accept json
// @Produce json
// @Param request body registerRequest true "Attestor registration"
// @Success 200 {object} models.Account "Registered attestor"
// @Failure 422 {object} middleware.ErrorResponse "Stake outside the allowed band"
// @Router /oracles [post]
func (h *OracleHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, errors.Wrap(err, errors.ErrCodeValidation, "invalid request body"))
		return
	}

	key, err := base64.StdEncoding.DecodeString(req.PublicKey)
	if err != nil {
		middleware.SendError(c, errors.Wrap(err, errors.ErrCodeValidation, "public_key must be base64"))
		return
	}

	acc, err := h.service.Register(c.Request.Context(), req.AttestorID, ed25519.PublicKey(key), req.Stake)
	if err != nil {
		middleware.SendError(c, err)
		return
	}

	c.JSON(http.StatusOK, acc)
}

// @Summary Get an attestor
// @Tags oracles
// @Produce json
// @Param id path string true "Attestor ID"
// @Success 200 {object} models.Account "Attestor"
// @Failure 404 {object} middleware.ErrorResponse "Unknown attestor"
// @Router /oracles/{id} [get]
func (h *OracleHandler) get(c *gin.Context) {
	acc, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.SendError(c, err)
		return
	}

	c.JSON(http.StatusOK, acc)
}

type slashRequest struct {
	Amount uint64 `json:"amount" binding:"required"`
}

// @Summary Slash an attestor's stake
// @Description Deducts the amount from the attestor's stake. Falling below the minimum deactivates the attestor permanently.
// @Tags oracles
// @Accept json
// @Produce json
// @Param id path string true "Attestor ID"
// @Param request body slashRequest true "Slash amount"
// @Success 200 {object} map[string]interface{} "Remaining stake"
// @Failure 422 {object} middleware.ErrorResponse "Amount exceeds stake"
// @Router /oracles/{id}/slash [post]
func (h *OracleHandler) slash(c *gin.Context) {
	var req slashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, errors.Wrap(err, errors.ErrCodeValidation, "invalid request body"))
		return
	}

	remaining, err := h.service.Slash(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		middleware.SendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attestor_id": c.Param("id"), "remaining_stake": remaining})
}

type fraudReportRequest struct {
	AttestorID  string `json:"attestor_id"`
	Identity    string `json:"identity"`
	Fingerprint string `json:"fingerprint"`
	SlashAmount uint64 `json:"slash_amount,omitempty"`
}

// @Summary File a verified fraud report
// @Description Queues a fraud report for asynchronous processing: the attestor is slashed and the identity flagged.
// @Tags oracles
// @Accept json
// @Produce json
// @Param request body fraudReportRequest true "Fraud report"
// @Success 202 {object} map[string]interface{} "Report queued"
// @Router /fraud/reports [post]
func (h *OracleHandler) reportFraud(c *gin.Context) {
	var req fraudReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, errors.Wrap(err, errors.ErrCodeValidation, "invalid request body"))
		return
	}
	if req.AttestorID == "" && req.Identity == "" {
		middleware.SendError(c, errors.New(errors.ErrCodeValidation, "report must name an attestor or an identity"))
		return
	}

	values := map[string]interface{}{
		"attestor_id": req.AttestorID,
		"identity":    req.Identity,
		"fingerprint": req.Fingerprint,
	}
	if req.SlashAmount > 0 {
		values["slash_amount"] = req.SlashAmount
	}

	id, err := h.rdb.XAdd(c.Request.Context(), &go_redis.XAddArgs{
		Stream: "fraud:reports",
		Values: values,
	}).Result()
	if err != nil {
		middleware.SendError(c, errors.Wrap(err, errors.ErrCodeInternal, "queue fraud report"))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"success": true, "report_id": id})
}
