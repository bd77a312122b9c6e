package restapi

import (
	"fmt"
	"io"
	"net/http"

	"airdrop_multisend/internal/app/service"
	"airdrop_multisend/internal/domain/entity"
	"airdrop_multisend/internal/infrastructure/recipientloader"

	"github.com/gin-gonic/gin"
)

// MultisendRequest is the body of POST /multisend. Recipients may be given as
// pasted text or as a list; both go through the same validation.
type MultisendRequest struct {
	Mode          entity.TransferMode `json:"mode"`
	Text          string              `json:"text"`
	Recipients    []entity.Recipient  `json:"recipients"`
	TokenContract string              `json:"tokenContract"`
}

// MultisendHandler runs a batch. With ?stream=true every status change is pushed as a
// "result" server-sent event, followed by one "report" event.
func (h *Handler) MultisendHandler(c *gin.Context) {
	var req MultisendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest("invalid JSON body: "+err.Error()))
		return
	}

	text := req.Text
	if len(req.Recipients) > 0 {
		text = recipientloader.Serialize(req.Recipients)
	}
	parsed := h.recipients.Parse(text)
	batch := service.BatchRequest{Mode: req.Mode, Recipients: parsed.Recipients, TokenContract: req.TokenContract}

	if c.Query("stream") == "true" {
		h.streamBatch(c, batch)
		return
	}

	report, err := h.executor.Execute(c.Request.Context(), batch, nil)
	if err != nil && report == nil {
		respondError(c, err)
		return
	}
	if err != nil {
		_, code := classify(err)
		c.JSON(http.StatusOK, APIResponse{
			Data:          report,
			Error:         &APIError{Code: code, Message: err.Error()},
			StatusMessage: "Batch aborted: " + report.AbortReason,
		})
		return
	}
	respondOK(c, report, fmt.Sprintf("Batch finished: %d succeeded, %d failed, %d lines skipped.",
		report.Succeeded, report.Failed, parsed.Skipped))
}

type batchOutcome struct {
	report *entity.BatchReport
	err    error
}

func (h *Handler) streamBatch(c *gin.Context, batch service.BatchRequest) {
	events := make(chan entity.TransferResult, 8)
	done := make(chan batchOutcome, 1)

	ctx := c.Request.Context()
	go func() {
		report, err := h.executor.Execute(ctx, batch, func(r entity.TransferResult) {
			select {
			case events <- r:
			case <-ctx.Done():
			}
		})
		close(events)
		done <- batchOutcome{report: report, err: err}
	}()

	c.Stream(func(w io.Writer) bool {
		if r, ok := <-events; ok {
			c.SSEvent("result", r)
			return true
		}
		out := <-done
		if out.err != nil {
			status, code := classify(out.err)
			if out.report == nil {
				c.SSEvent("error", APIResponse{Error: &APIError{Code: code, Message: out.err.Error()}, StatusMessage: http.StatusText(status)})
				return false
			}
			c.SSEvent("report", APIResponse{Data: out.report, Error: &APIError{Code: code, Message: out.err.Error()}, StatusMessage: "Batch aborted: " + out.report.AbortReason})
			return false
		}
		c.SSEvent("report", APIResponse{Data: out.report, StatusMessage: "Batch finished."})
		return false
	})
}
