package restapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RouterConfig holds the outer surface settings of the router.
type RouterConfig struct {
	AllowedOrigins []string
	Metrics        http.Handler // served at /metrics when set
	OpenAPISpec    []byte       // served at /docs/swagger.yaml when set
}

// SetupRouter настраивает и возвращает экземпляр Gin роутера.
func SetupRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.MaxAge = 12 * time.Hour
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}
	if len(cfg.OpenAPISpec) > 0 {
		router.GET("/docs/swagger.yaml", func(c *gin.Context) {
			c.Data(http.StatusOK, "application/yaml", cfg.OpenAPISpec)
		})
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.yaml")))
	}

	// Группа для API v1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/networks", h.ListNetworksHandler)
		v1.GET("/networks/:chainId", h.GetNetworkHandler)

		v1.POST("/recipients/parse", h.ParseRecipientsHandler)
		v1.POST("/balances", h.CheckBalancesHandler)
		v1.GET("/tokens/:address", h.GetTokenHandler)

		v1.GET("/wallet", h.GetWalletHandler)
		v1.POST("/wallet/connect", h.ConnectWalletHandler)
		v1.POST("/wallet/disconnect", h.DisconnectWalletHandler)
		v1.POST("/wallet/chain", h.SwitchChainHandler)

		v1.POST("/multisend", h.MultisendHandler)

		v1.GET("/projects", h.ListProjectsHandler)
		v1.POST("/projects", h.AddProjectHandler)
		v1.PUT("/projects/:name/daily", h.UpdateDailyHandler)
		v1.DELETE("/projects/:name", h.DeleteProjectHandler)
	}

	return router
}
