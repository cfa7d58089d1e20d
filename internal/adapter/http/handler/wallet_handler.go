package handler

import (
	"storefront/internal/adapter/http/dto"
	"storefront/internal/adapter/http/middleware"
	"storefront/internal/core/ports"
	"storefront/pkg/apperror"
	"storefront/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// WalletHandler handles seller wallet endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// GetWallet handles GET /api/v1/wallet.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, err := userIDFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	view, err := h.walletSvc.GetWallet(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"wallet": dto.WalletResponse{
		SellerID:     view.Seller.ID.String(),
		StoreName:    view.Seller.StoreName,
		Balance:      view.Seller.WalletBalance,
		HouseAccount: view.Seller.HouseAccount,
		Ledger:       view.Ledger,
		Billing:      view.Billing,
	}})
}

// Topup handles POST /api/v1/wallet/topup.
func (h *WalletHandler) Topup(c *gin.Context) {
	userID, err := userIDFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	body, err := readBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.TopupRequest
	if err := dto.DecodeStrict(body, &req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	entry, err := h.walletSvc.Topup(c.Request.Context(), ports.TopupRequest{
		UserID:    userID,
		Amount:    decimal.RequireFromString(req.Amount),
		Reference: req.Reference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, entry.SellerID.String())
	response.Created(c, gin.H{"entry": entry})
}
