package restapi

import (
	"fmt"
	"strings"

	"airdrop_multisend/internal/app/service"
	"airdrop_multisend/internal/domain/entity"
	"airdrop_multisend/internal/infrastructure/recipientloader"

	"github.com/gin-gonic/gin"
)

// BalancesRequest is the body of POST /balances. Without chainId the connected
// wallet's network is used.
type BalancesRequest struct {
	ChainID       uint64   `json:"chainId"`
	Addresses     []string `json:"addresses"`
	Text          string   `json:"text"`
	TokenContract string   `json:"tokenContract"`
}

// CheckBalancesHandler обрабатывает запрос на проверку балансов списка адресов.
func (h *Handler) CheckBalancesHandler(c *gin.Context) {
	var req BalancesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest("invalid JSON body: "+err.Error()))
		return
	}
	addresses := req.Addresses
	if len(addresses) == 0 {
		addresses = recipientloader.ParseAddressList(req.Text)
	}
	if len(addresses) == 0 {
		respondError(c, badRequest("no addresses given"))
		return
	}

	ctx := c.Request.Context()
	var (
		report service.BalanceReport
		err    error
	)
	if req.ChainID != 0 {
		report, err = h.balances.ReadOnNetwork(ctx, req.ChainID, addresses, req.TokenContract)
	} else {
		report, err = h.readWithSession(c, addresses, req.TokenContract)
	}
	if err != nil && len(report.Entries) == len(addresses) {
		respondPartial(c, report, err)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	failed := 0
	for _, e := range report.Entries {
		if !e.OK() {
			failed++
		}
	}
	msg := "Balances retrieved successfully."
	if failed > 0 {
		msg = fmt.Sprintf("Balances retrieved. %d of %d addresses are invalid or failed.", failed, len(report.Entries))
	}
	respondOK(c, report, msg)
}

func (h *Handler) readWithSession(c *gin.Context, addresses []string, tokenContract string) (service.BalanceReport, error) {
	session, err := h.wallet.Session()
	if err != nil {
		return service.BalanceReport{}, err
	}
	if session.Network == nil {
		return service.BalanceReport{}, &entity.UnsupportedNetworkError{ChainID: session.ChainID}
	}
	if session.Reader == nil {
		return service.BalanceReport{}, fmt.Errorf("%w: %s", entity.ErrRPCUnavailable, session.Network.Name)
	}

	report := service.BalanceReport{Network: *session.Network}
	ctx := c.Request.Context()
	if strings.TrimSpace(tokenContract) == "" {
		report.Entries, err = h.balances.ReadNativeBalances(ctx, session.Reader, addresses)
		return report, err
	}
	entries, info, err := h.balances.ReadTokenBalances(ctx, session.Reader, addresses, tokenContract)
	if entries != nil {
		report.Token = &info
		report.Entries = entries
	}
	return report, err
}

// GetTokenHandler resolves symbol and decimals of a token contract.
// GET /api/v1/tokens/:address?chainId=1
func (h *Handler) GetTokenHandler(c *gin.Context) {
	chainID, err := parseChainID(c.Query("chainId"))
	if err != nil {
		respondError(c, err)
		return
	}
	if chainID == 0 {
		session, err := h.wallet.Session()
		if err != nil {
			respondError(c, badRequest("chainId is required when no wallet is connected"))
			return
		}
		chainID = session.ChainID
	}

	def, err := h.registry.Lookup(chainID)
	if err != nil {
		respondError(c, err)
		return
	}
	reader, err := h.clients.GetClient(def)
	if err != nil {
		respondError(c, fmt.Errorf("%w: %v", entity.ErrRPCUnavailable, err))
		return
	}
	info, err := h.tokens.Resolve(c.Request.Context(), c.Param("address"), reader)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, info, "Token resolved.")
}
