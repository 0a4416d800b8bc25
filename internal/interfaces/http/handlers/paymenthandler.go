package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/payhole/payments/internal/application/payment/usecases"
	"github.com/payhole/payments/internal/domain/unlock"
	"github.com/payhole/payments/internal/shared/errors"
	"github.com/payhole/payments/internal/shared/logger"
	"github.com/payhole/payments/internal/shared/utils"
)

type PaymentHandler struct {
	verifyPaymentUC verifyPaymentUseCase
	unlockStatusUC  getUnlockStatusUseCase
	listUnlocksUC   listUnlocksUseCase
	logger          logger.Interface
}

func NewPaymentHandler(
	verifyPaymentUC verifyPaymentUseCase,
	unlockStatusUC getUnlockStatusUseCase,
	listUnlocksUC listUnlocksUseCase,
	logger logger.Interface,
) *PaymentHandler {
	return &PaymentHandler{
		verifyPaymentUC: verifyPaymentUC,
		unlockStatusUC:  unlockStatusUC,
		listUnlocksUC:   listUnlocksUC,
		logger:          logger,
	}
}

// PayRequest is decoded leniently: any field that is missing or not a string
// is reported as the same validation error.
type PayRequest struct {
	Wallet    any `json:"wallet"`
	Signature any `json:"signature"`
}

type UnlocksResponse struct {
	Records []*unlock.UnlockRecord `json:"records"`
}

// @Summary		Verify payment
// @Description	Verify a USDC transfer into the treasury and issue an unlock token
// @Tags			payments
// @Accept			json
// @Produce		json
// @Param			payment	body		PayRequest						true	"Wallet and transaction signature"
// @Success		200		{object}	usecases.VerifyPaymentResult	"Payment verified"
// @Failure		400		{object}	utils.ErrorBody					"Missing fields or verification failed"
// @Failure		429		{object}	utils.ErrorBody					"Rate limited"
// @Failure		500		{object}	utils.ErrorBody					"Internal server error"
// @Router			/pay [post]
func (h *PaymentHandler) Pay(c *gin.Context) {
	var req PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debugw("failed to bind pay request", "error", err)
	}

	wallet, _ := req.Wallet.(string)
	signature, _ := req.Signature.(string)

	result, err := h.verifyPaymentUC.Execute(c.Request.Context(), usecases.VerifyPaymentCommand{
		Wallet:    wallet,
		Signature: signature,
		ClientIP:  c.ClientIP(),
	})
	if err != nil {
		_ = c.Error(err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, result)
}

// @Summary		Unlock status
// @Description	Report the ledger state of the wallet an unlock token was issued to
// @Tags			payments
// @Produce		json
// @Security		Bearer
// @Success		200	{object}	usecases.UnlockStatusResult	"Unlock status"
// @Failure		401	{object}	utils.ErrorBody				"Missing, malformed, invalid or expired token"
// @Failure		404	{object}	utils.ErrorBody				"Unlock record not found"
// @Router			/status [get]
func (h *PaymentHandler) Status(c *gin.Context) {
	token, err := utils.ExtractBearerToken(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.unlockStatusUC.Execute(c.Request.Context(), token)
	if err != nil {
		if errors.IsUnauthorizedError(err) {
			h.logger.Debugw("status rejected credential", "token", utils.MaskToken(token))
		}
		_ = c.Error(err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, result)
}

// @Summary		List unlocks
// @Description	Return one wallet's unlock record, or every record newest first
// @Tags			payments
// @Produce		json
// @Param			wallet	query		string			false	"Wallet address"
// @Success		200		{object}	UnlocksResponse	"Unlock records"
// @Failure		404		{object}	utils.ErrorBody	"Unlock record not found"
// @Router			/unlocks [get]
func (h *PaymentHandler) Unlocks(c *gin.Context) {
	records, err := h.listUnlocksUC.Execute(c.Request.Context(), c.Query("wallet"))
	if err != nil {
		_ = c.Error(err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	if records == nil {
		records = []*unlock.UnlockRecord{}
	}
	utils.SuccessResponse(c, http.StatusOK, UnlocksResponse{Records: records})
}

// Health is a liveness check.
func (h *PaymentHandler) Health(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, gin.H{"status": "ok"})
}
