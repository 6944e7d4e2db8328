package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gaming-rewards-backend/internal/common/errors"
	"gaming-rewards-backend/internal/common/middleware"
	"gaming-rewards-backend/internal/features/verification/models"
	"gaming-rewards-backend/internal/features/verification/service"
	walletmodels "gaming-rewards-backend/internal/features/walletproof/models"
	walletservice "gaming-rewards-backend/internal/features/walletproof/service"
)

type VerificationHandler struct {
	service *service.Service
	wallets *walletservice.Service
}

func NewVerificationHandler(svc *service.Service, wallets *walletservice.Service) *VerificationHandler {
	return &VerificationHandler{service: svc, wallets: wallets}
}

func (h *VerificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	v := router.Group("/verification/:identity")
	{
		v.POST("/session", h.verifySession)
		v.GET("/wallet/challenge", h.walletChallenge)
		v.POST("/wallet", h.verifyWallet)
		v.POST("/attestations", h.submitAttestation)
		v.POST("/multifactor", h.verifyMultiFactor)
		v.GET("/score", h.score)
		v.GET("/profile", h.profile)
	}
}

type sessionRequest struct {
	Ticket string `json:"ticket" binding:"required"`
}

// @Summary Verify a session ticket
// @Description Validates a signed session ticket against the registered attestor and marks the session pillar verified.
// @Tags verification
// @Accept json
// @Produce json
// @Param identity path string true "Identity ID"
// @Param request body sessionRequest true "Session ticket"
// @Success 200 {object} map[string]interface{} "Pillar verified"
// @Failure 401 {object} middleware.ErrorResponse "Expired or invalid ticket"
// @Failure 429 {object} middleware.ErrorResponse "Rate limited"
// @Router /verification/{identity}/session [post]
func (h *VerificationHandler) verifySession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, errors.Wrap(err, errors.ErrCodeValidation, "invalid request body"))
		return
	}

	if err := h.service.VerifySession(c.Request.Context(), c.Param("identity"), req.Ticket); err != nil {
		middleware.SendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "pillar": "session"})
}

// @Summary Issue a wallet-link challenge
// @Description Returns a one-time payload the wallet must sign to prove ownership.
// @Tags verification
// @Produce json
// @Param identity path string true "Identity ID"
// @Success 200 {object} walletmodels.Challenge "Challenge payload"
// @Router /verification/{identity}/wallet/challenge [get]
func (h *VerificationHandler) walletChallenge(c *gin.Context) {
	ch, err := h.wallets.GenerateChallenge(c.Request.Context(), c.Param("identity"))
	if err != nil {
		middleware.SendError(c, err)
		return
	}

	c.JSON(http.StatusOK, ch)
}

// @Summary Verify a wallet-link proof
// @Description Checks the signed challenge and links the on-chain account to the identity.
// @Tags verification
// @Accept json
// @Produce json
// @Param identity path string true "Identity ID"
// @Param request body walletmodels.ProofRequest true "Signed challenge"
// @Success 200 {object} map[string]interface{} "Pillar verified"
// @Failure 401 {object} middleware.ErrorResponse "Signature mismatch"
// @Router /verification/{identity}/wallet [post]
func (h *VerificationHandler) verifyWallet(c *gin.Context) {
	var req walletmodels.ProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, errors.Wrap(err, errors.ErrCodeValidation, "invalid request body"))
		return
	}

	if err := h.service.VerifyWalletLink(c.Request.Context(), c.Param("identity"), &req); err != nil {
		middleware.SendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "pillar": "wallet_link", "address": req.Address})
}

// @Summary Submit a ZKP attestation
// @Description Verifies the proof with the external verifier and records the attestation. Duplicate attestations are rejected.
// @Tags verification
// @Accept json
// @Produce json
// @Param identity path string true "Identity ID"
// @Param request body models.AttestationRequest true "Attestation"
// @Success 200 {object} map[string]interface{} "Attestation accepted"
// @Failure 400 {object} middleware.ErrorResponse "Malformed proof or duplicate"
// @Failure 504 {object} middleware.ErrorResponse "Verifier timeout"
// @Router /verification/{identity}/attestations [post]
func (h *VerificationHandler) submitAttestation(c *gin.Context) {
	var req models.AttestationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, errors.Wrap(err, errors.ErrCodeValidation, "invalid request body"))
		return
	}

	if err := h.service.SubmitAttestation(c.Request.Context(), c.Param("identity"), &req); err != nil {
		middleware.SendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "pillar": "attestation", "attestation_id": req.AttestationID})
}

// @Summary Run multi-factor verification
// @Description Gathers behavioral signals from the achievement provider and the chain. Requires the session and wallet pillars first.
// @Tags verification
// @Produce json
// @Param identity path string true "Identity ID"
// @Success 200 {object} map[string]interface{} "Multi-factor score"
// @Failure 403 {object} middleware.ErrorResponse "Prerequisite pillars missing"
// @Router /verification/{identity}/multifactor [post]
func (h *VerificationHandler) verifyMultiFactor(c *gin.Context) {
	score, err := h.service.VerifyMultiFactor(c.Request.Context(), c.Param("identity"))
	if err != nil {
		middleware.SendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "pillar": "multi_factor", "score": score})
}

// @Summary Get consolidated verification score
// @Tags verification
// @Produce json
// @Param identity path string true "Identity ID"
// @Success 200 {object} map[string]interface{} "Score 0-100"
// @Router /verification/{identity}/score [get]
func (h *VerificationHandler) score(c *gin.Context) {
	score, err := h.service.ConsolidatedScore(c.Request.Context(), c.Param("identity"))
	if err != nil {
		middleware.SendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"identity": c.Param("identity"), "score": score})
}

// @Summary Get verification profile
// @Tags verification
// @Produce json
// @Param identity path string true "Identity ID"
// @Success 200 {object} models.Profile "Profile"
// @Failure 404 {object} middleware.ErrorResponse "Identity never seen"
// @Router /verification/{identity}/profile [get]
func (h *VerificationHandler) profile(c *gin.Context) {
	p, err := h.service.Profile(c.Request.Context(), c.Param("identity"))
	if err != nil {
		middleware.SendError(c, err)
		return
	}
	if p == nil {
		middleware.SendError(c, errors.New(errors.ErrCodeNotFound, "identity not found"))
		return
	}

	c.JSON(http.StatusOK, p)
}
