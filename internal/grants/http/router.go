package http

import "github.com/gin-gonic/gin"

// Register registers the grant routes. write runs in front of every
// mutating route, typically the identity requirement and the rate limiter.
func (h *Handler) Register(rg *gin.RouterGroup, write ...gin.HandlerFunc) {
	w := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, write...), handler)
	}

	rg.GET("", h.ListGrants)
	rg.POST("", w(h.CreateGrant)...)
	rg.GET("/count", h.GrantListLength)
	rg.GET("/events", h.StreamEvents)
	rg.GET("/:grant_id", h.GetGrant)

	apps := rg.Group("/:grant_id/applications")
	apps.GET("", h.ListProjects)
	apps.POST("", w(h.RegisterApplication)...)
	apps.GET("/count", h.ProjectListLength)
	apps.POST("/approve", w(h.ApproveApplication)...)
	apps.GET("/:project_id", h.GetProjectDetail)
	apps.POST("/:project_id/deny", w(h.DenyApplication)...)
	apps.GET("/:project_id/votes", h.GetVote)
	apps.POST("/:project_id/votes", w(h.Vote)...)
	apps.GET("/:project_id/card", h.ProjectCard)
}
