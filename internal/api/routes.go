// internal/api/routes.go
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/srl-labs/access-gateway/docs" // swagger docs
	"github.com/srl-labs/access-gateway/internal/config"
	"github.com/srl-labs/access-gateway/internal/probe"
	"github.com/srl-labs/access-gateway/internal/ssh"
	"github.com/srl-labs/access-gateway/internal/vpn"
)

// Services are the long-lived components the handlers operate on.
type Services struct {
	SSH       *ssh.SSHManager
	VPN       *vpn.Supervisor
	Prober    *probe.Prober
	Version   string
	StartTime time.Time
}

var svc Services

func SetupRoutes(router *gin.Engine, services Services) {
	svc = services
	if svc.StartTime.IsZero() {
		svc.StartTime = time.Now()
	}

	// --- Public Routes ---

	router.GET("/health", HealthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger documentation route
	// Access it at /swagger/index.html
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	// --- Optionally authenticated routes ---

	protected := router.Group("")
	if config.AppConfig.AuthEnabled {
		protected.Use(AuthMiddleware())
	}

	// Websocket terminal bridge
	protected.GET("/ws/ssh", WebSocketSSHHandler)

	apiGroup := protected.Group("/api")
	{
		vpnGroup := apiGroup.Group("/vpn")
		{
			vpnGroup.POST("/connect", VPNConnectHandler)
			vpnGroup.POST("/disconnect", VPNDisconnectHandler)
			vpnGroup.GET("/status", VPNStatusHandler)
			vpnGroup.GET("/logs", VPNLogsHandler)
		}

		network := apiGroup.Group("/network")
		{
			network.POST("/ping", PingHandler)
			network.POST("/port-check", PortCheckHandler)
		}

		apiGroup.GET("/ssh/sessions", ListSSHSessionsHandler)
	}
}
