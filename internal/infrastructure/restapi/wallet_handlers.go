package restapi

import (
	"github.com/gin-gonic/gin"
)

// SwitchChainRequest is the body of POST /wallet/chain.
type SwitchChainRequest struct {
	ChainID uint64 `json:"chainId" binding:"required"`
}

// GetWalletHandler returns the current connection context.
func (h *Handler) GetWalletHandler(c *gin.Context) {
	cc := h.wallet.Context()
	respondOK(c, cc, "Wallet is "+string(cc.State)+".")
}

// ConnectWalletHandler asks the wallet for account access.
func (h *Handler) ConnectWalletHandler(c *gin.Context) {
	cc, err := h.wallet.Connect(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, cc, "Wallet connected.")
}

// DisconnectWalletHandler clears the connection.
func (h *Handler) DisconnectWalletHandler(c *gin.Context) {
	h.wallet.Disconnect()
	respondOK(c, h.wallet.Context(), "Wallet disconnected.")
}

// SwitchChainHandler asks the wallet to change networks.
func (h *Handler) SwitchChainHandler(c *gin.Context) {
	var req SwitchChainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest("chainId is required"))
		return
	}
	cc, err := h.wallet.SwitchChain(c.Request.Context(), req.ChainID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, cc, "Wallet chain switched.")
}
