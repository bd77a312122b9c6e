package restapi

import (
	"fmt"

	"airdrop_multisend/internal/domain/entity"
	"airdrop_multisend/internal/infrastructure/recipientloader"

	"github.com/gin-gonic/gin"
)

// ParseRecipientsRequest is the body of POST /recipients/parse.
type ParseRecipientsRequest struct {
	Text string `json:"text"`
}

// ParseRecipientsResponse reports the accepted recipients of a pasted list.
type ParseRecipientsResponse struct {
	Recipients []entity.Recipient `json:"recipients"`
	Valid      int                `json:"valid"`
	Skipped    int                `json:"skipped"`
	Total      string             `json:"total"`
}

// ParseRecipientsHandler validates an "address,amount" list without sending anything.
func (h *Handler) ParseRecipientsHandler(c *gin.Context) {
	var req ParseRecipientsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest("invalid JSON body: "+err.Error()))
		return
	}
	res := h.recipients.Parse(req.Text)
	recipients := res.Recipients
	if recipients == nil {
		recipients = []entity.Recipient{}
	}
	respondOK(c, ParseRecipientsResponse{
		Recipients: recipients,
		Valid:      len(recipients),
		Skipped:    res.Skipped,
		Total:      recipientloader.TotalAmount(recipients),
	}, fmt.Sprintf("%d valid recipients, %d lines skipped.", len(recipients), res.Skipped))
}
