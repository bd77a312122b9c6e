package restapi

import (
	"fmt"
	"strconv"
	"strings"

	"airdrop_multisend/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// ListNetworksHandler returns every supported network.
func (h *Handler) ListNetworksHandler(c *gin.Context) {
	networks := h.registry.All()
	respondOK(c, gin.H{"networks": networks}, fmt.Sprintf("%d networks supported.", len(networks)))
}

// GetNetworkHandler returns one network by chain id or identifier.
func (h *Handler) GetNetworkHandler(c *gin.Context) {
	param := strings.TrimSpace(c.Param("chainId"))
	var (
		def entity.NetworkDefinition
		err error
	)
	if chainID, parseErr := strconv.ParseUint(param, 10, 64); parseErr == nil {
		def, err = h.registry.Lookup(chainID)
	} else {
		def, err = h.registry.LookupByIdentifier(param)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, def, "Network found.")
}

func parseChainID(raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, badRequest(fmt.Sprintf("chainId %q is not a number", raw))
	}
	return id, nil
}
