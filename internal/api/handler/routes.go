package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts every endpoint under the configured API prefix.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(h.CORS())

	api := r.Group(h.opts.APIPrefix)
	api.GET("/health", h.Health)
	api.GET("/events", h.ServeEvents)

	public := api.Group("/public", h.RequireAPIKey())
	public.POST("/feedback", h.Throttle(), h.SubmitFeedback)
	public.GET("/feedback/:id", h.PublicFeedbackStatus)
	public.GET("/feedback/:id/comments", h.ListComments)
	public.GET("/categories", h.PublicCategories)

	dashboard := api.Group("", h.RequireAuth())
	dashboard.GET("/auth/me", h.Me)

	dashboard.GET("/applications", h.ListApplications)
	dashboard.POST("/applications", RequireOperator(), h.CreateApplication)
	dashboard.GET("/applications/:id", h.GetApplication)
	dashboard.PATCH("/applications/:id", RequireOperator(), h.UpdateApplication)
	dashboard.DELETE("/applications/:id", RequireOperator(), h.DeleteApplication)
	dashboard.POST("/applications/:id/regenerate-key", RequireOperator(), h.RegenerateAPIKey)
	dashboard.GET("/applications/:id/categories", h.ListCategories)
	dashboard.POST("/applications/:id/categories", RequireOperator(), h.CreateCategory)

	dashboard.GET("/feedback", h.ListFeedback)
	dashboard.GET("/feedback/:id", h.GetFeedback)
	dashboard.PATCH("/feedback/:id", RequireOperator(), h.UpdateFeedback)
	dashboard.DELETE("/feedback/:id", RequireOperator(), h.DeleteFeedback)
	dashboard.GET("/feedback/:id/comments", h.ListComments)
	dashboard.POST("/feedback/:id/comments", RequireOperator(), h.CreateComment)
	dashboard.PATCH("/feedback/:id/comments/:commentId", RequireOperator(), h.UpdateComment)
	dashboard.DELETE("/feedback/:id/comments/:commentId", RequireOperator(), h.DeleteComment)
}
