package restapi

import (
	"airdrop_multisend/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// DailyRequest is the body of PUT /projects/:name/daily.
type DailyRequest struct {
	Value string `json:"value" binding:"required"`
}

// ListProjectsHandler returns the tracker rows.
func (h *Handler) ListProjectsHandler(c *gin.Context) {
	projects, err := h.projects.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"projects": projects}, "Projects retrieved successfully.")
}

// AddProjectHandler appends a project.
func (h *Handler) AddProjectHandler(c *gin.Context) {
	var project entity.Project
	if err := c.ShouldBindJSON(&project); err != nil {
		respondError(c, badRequest("invalid JSON body: "+err.Error()))
		return
	}
	res, err := h.projects.Add(c.Request.Context(), project)
	h.respondStore(c, res, err, "Project added.")
}

// UpdateDailyHandler sets the daily check flag.
func (h *Handler) UpdateDailyHandler(c *gin.Context) {
	var req DailyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest("value is required"))
		return
	}
	res, err := h.projects.UpdateDaily(c.Request.Context(), c.Param("name"), req.Value)
	h.respondStore(c, res, err, "Daily check updated.")
}

// DeleteProjectHandler removes a project.
func (h *Handler) DeleteProjectHandler(c *gin.Context) {
	res, err := h.projects.Delete(c.Request.Context(), c.Param("name"))
	h.respondStore(c, res, err, "Project deleted.")
}

func (h *Handler) respondStore(c *gin.Context, res entity.StoreResult, err error, okMessage string) {
	if err != nil {
		respondError(c, err)
		return
	}
	if !res.OK {
		respondOK(c, res, "Project store rejected the request: "+res.Reason)
		return
	}
	respondOK(c, res, okMessage)
}
