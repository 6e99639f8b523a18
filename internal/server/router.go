// Package server provides the HTTP surface the chat shell drives: the
// platform menu, the privileged login conversation and batch scraping.
package server

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(api *API) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/platforms", api.Platforms)
	r.POST("/scrape", api.Scrape)

	// Privileged login conversation, one endpoint per state input.
	login := r.Group("/login")
	{
		login.POST("/phone", api.LoginPhone)
		login.POST("/code", api.LoginCode)
		login.POST("/password", api.LoginPassword)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
