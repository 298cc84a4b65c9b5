package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/auth"
	"github.com/GoSim-25-26J-441/grant-registry-backend/internal/grants/domain"
)

// CreateGrant creates a new grant
func (h *Handler) CreateGrant(c *gin.Context) {
	caller, _ := auth.IdentityFrom(c)

	var body createGrantRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	funder, err := domain.ParseIdentity(body.Funder)
	if err != nil {
		h.fail(c, err)
		return
	}

	id, rcpt, err := h.registry.CreateGrant(c.Request.Context(), caller, funder, *body.Amount, body.Info)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"grant_id": id, "receipt": rcpt})
}

// ListGrants returns one page of grants in id order
func (h *Handler) ListGrants(c *gin.Context) {
	page, err := pageQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	grants, err := h.registry.ListGrants(c.Request.Context(), page)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"grants": grants, "offset": page.Offset, "limit": page.Limit})
}

func (h *Handler) GrantListLength(c *gin.Context) {
	n, err := h.registry.GrantListLength(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *Handler) GetGrant(c *gin.Context) {
	grantID, err := pathID(c, "grant_id")
	if err != nil {
		h.fail(c, err)
		return
	}

	g, err := h.registry.GetGrant(c.Request.Context(), grantID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"grant": g})
}

// RegisterApplication registers a project application against a grant
func (h *Handler) RegisterApplication(c *gin.Context) {
	caller, _ := auth.IdentityFrom(c)

	grantID, err := pathID(c, "grant_id")
	if err != nil {
		h.fail(c, err)
		return
	}

	var body registerApplicationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	applicant, err := domain.ParseIdentity(body.Applicant)
	if err != nil {
		h.fail(c, err)
		return
	}

	id, rcpt, err := h.registry.RegisterApplication(c.Request.Context(), caller, grantID, applicant, body.Data)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"project_id": id, "receipt": rcpt})
}

func (h *Handler) ListProjects(c *gin.Context) {
	grantID, err := pathID(c, "grant_id")
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := pageQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	projects, err := h.registry.ListProjects(c.Request.Context(), grantID, page)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects, "offset": page.Offset, "limit": page.Limit})
}

func (h *Handler) ProjectListLength(c *gin.Context) {
	grantID, err := pathID(c, "grant_id")
	if err != nil {
		h.fail(c, err)
		return
	}

	n, err := h.registry.ProjectListLength(c.Request.Context(), grantID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// ApproveApplication accepts a batch of projects in one call
func (h *Handler) ApproveApplication(c *gin.Context) {
	caller, _ := auth.IdentityFrom(c)

	grantID, err := pathID(c, "grant_id")
	if err != nil {
		h.fail(c, err)
		return
	}

	var body approveApplicationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}

	rcpt, err := h.registry.ApproveApplication(c.Request.Context(), caller, grantID, body.ProjectIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receipt": rcpt})
}

func (h *Handler) DenyApplication(c *gin.Context) {
	caller, _ := auth.IdentityFrom(c)

	grantID, projectID, ok := h.projectPath(c)
	if !ok {
		return
	}

	rcpt, err := h.registry.DenyApplication(c.Request.Context(), caller, grantID, projectID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receipt": rcpt})
}

func (h *Handler) GetProjectDetail(c *gin.Context) {
	grantID, projectID, ok := h.projectPath(c)
	if !ok {
		return
	}

	p, err := h.registry.GetProjectDetail(c.Request.Context(), grantID, projectID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

// Vote appends a vote cast by the authenticated caller
func (h *Handler) Vote(c *gin.Context) {
	caller, _ := auth.IdentityFrom(c)

	grantID, projectID, ok := h.projectPath(c)
	if !ok {
		return
	}

	var body voteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}

	rcpt, err := h.registry.Vote(c.Request.Context(), caller, grantID, projectID, body.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"receipt": rcpt})
}

func (h *Handler) GetVote(c *gin.Context) {
	grantID, projectID, ok := h.projectPath(c)
	if !ok {
		return
	}

	votes, err := h.registry.GetVote(c.Request.Context(), grantID, projectID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"votes": votes})
}

func (h *Handler) ProjectCard(c *gin.Context) {
	grantID, projectID, ok := h.projectPath(c)
	if !ok {
		return
	}

	card, err := h.registry.ProjectCard(c.Request.Context(), grantID, projectID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"card": card})
}

func (h *Handler) projectPath(c *gin.Context) (uint64, uint64, bool) {
	grantID, err := pathID(c, "grant_id")
	if err != nil {
		h.fail(c, err)
		return 0, 0, false
	}
	projectID, err := pathID(c, "project_id")
	if err != nil {
		h.fail(c, err)
		return 0, 0, false
	}
	return grantID, projectID, true
}
