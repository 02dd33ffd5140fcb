// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/kballard/go-shellquote"

	"github.com/srl-labs/access-gateway/internal/api"
	"github.com/srl-labs/access-gateway/internal/config"
	"github.com/srl-labs/access-gateway/internal/probe"
	"github.com/srl-labs/access-gateway/internal/ssh"
	"github.com/srl-labs/access-gateway/internal/vpn"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 15 * time.Second

// @title Access Gateway API
// @version 1.0
// @description Bridges browser terminals to remote SSH hosts, supervises an OpenVPN client and runs network reachability probes.

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token. Example: "Bearer eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."
func main() {
	// Export .env to the process environment so the VPN client inherits it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.New(os.Stderr).Warnf("Could not load .env: %v", err)
	}

	// --- Load configuration First ---
	if err := config.LoadConfig(); err != nil {
		// Use a basic logger here as the configured one isn't ready yet
		log.New(os.Stderr).Fatalf("Failed to load configuration: %v", err)
	}

	// --- Initialize Logger Based on Config ---
	log.SetOutput(os.Stderr)
	log.SetTimeFormat("2006-01-02 15:04:05")

	switch strings.ToLower(config.AppConfig.LogLevel) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	case "fatal":
		log.SetLevel(log.FatalLevel)
	default:
		log.Warnf("Invalid LOG_LEVEL '%s' specified in config, defaulting to 'info'", config.AppConfig.LogLevel)
		log.SetLevel(log.InfoLevel)
	}

	log.Infof("Configuration loaded successfully. Log level set to '%s'.", config.AppConfig.LogLevel)

	log.Debugf("API Port: %s", config.AppConfig.APIPort)
	log.Debugf("Auth Enabled: %t", config.AppConfig.AuthEnabled)
	log.Debugf("Allowed Origins: %v", config.AppConfig.Origins())
	log.Debugf("TLS Enabled: %t", config.AppConfig.TLSEnable)
	if config.AppConfig.AuthEnabled && config.AppConfig.JWTSecret == config.DefaultJWTSecret {
		log.Warn("Using default JWT secret. Change JWT_SECRET environment variable for production!")
	}

	// --- Check dependencies ---
	if _, err := exec.LookPath(config.AppConfig.VPNBinary); err != nil {
		log.Warnf("VPN client '%s' not found in PATH; VPN connect requests will fail.", config.AppConfig.VPNBinary)
	}
	if _, err := exec.LookPath(config.AppConfig.PingBinary); err != nil {
		log.Warnf("'%s' not found in PATH; ping probes will report hosts as unreachable.", config.AppConfig.PingBinary)
	}

	extraArgs, err := shellquote.Split(config.AppConfig.VPNExtraArgs)
	if err != nil {
		log.Fatalf("Invalid VPN_EXTRA_ARGS: %v", err)
	}

	// --- Build services ---
	supervisor := vpn.NewSupervisor(vpn.Options{
		Binary:    config.AppConfig.VPNBinary,
		ExtraArgs: extraArgs,
		WorkDir:   config.AppConfig.VPNWorkDir,
		StopGrace: config.AppConfig.VPNStopGrace,
		Resolver:  vpn.NewSystemResolver(config.AppConfig.VPNIPCheckURL),
	})
	sshManager := ssh.NewSSHManager(&ssh.ClientDialer{
		Timeout:        config.AppConfig.SSHConnectTimeout,
		KnownHostsFile: config.AppConfig.SSHKnownHosts,
	})
	prober := probe.New(probe.WithPingBinary(config.AppConfig.PingBinary))

	// --- Initialize Gin router ---
	switch strings.ToLower(config.AppConfig.GinMode) {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
	log.Infof("Gin running in '%s' mode", config.AppConfig.GinMode)

	router := gin.Default()

	// Configure trusted proxies
	if config.AppConfig.TrustedProxies == "nil" {
		log.Info("Proxy trust disabled (TRUSTED_PROXIES=nil)")
		router.SetTrustedProxies(nil)
	} else if config.AppConfig.TrustedProxies != "" {
		proxyList := strings.Split(config.AppConfig.TrustedProxies, ",")
		for i, proxy := range proxyList {
			proxyList[i] = strings.TrimSpace(proxy)
		}
		log.Infof("Setting trusted proxies: %v", proxyList)
		if err := router.SetTrustedProxies(proxyList); err != nil {
			log.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
		}
	} else {
		log.Warn("All proxies are trusted (default). Set TRUSTED_PROXIES=nil to disable proxy trust or provide a comma-separated list of trusted proxy IPs.")
	}

	api.SetupRoutes(router, api.Services{
		SSH:       sshManager,
		VPN:       supervisor,
		Prober:    prober,
		Version:   version,
		StartTime: time.Now(),
	})

	router.GET("/", func(c *gin.Context) {
		protocol := "http"
		if config.AppConfig.TLSEnable || c.Request.Header.Get("X-Forwarded-Proto") == "https" {
			protocol = "https"
		}
		baseURL := fmt.Sprintf("%s://%s", protocol, c.Request.Host)
		wsProtocol := "ws"
		if protocol == "https" {
			wsProtocol = "wss"
		}

		c.JSON(http.StatusOK, gin.H{
			"message":       fmt.Sprintf("Access gateway is running (%s).", protocol),
			"version":       version,
			"documentation": fmt.Sprintf("%s/swagger/index.html", baseURL),
			"ssh_websocket": fmt.Sprintf("%s://%s/ws/ssh", wsProtocol, c.Request.Host),
			"api_base_path": fmt.Sprintf("%s/api", baseURL),
		})
	})

	// --- Start the server ---
	listenAddr := fmt.Sprintf(":%s", config.AppConfig.APIPort)
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		if config.AppConfig.TLSEnable {
			if config.AppConfig.TLSCertFile == "" || config.AppConfig.TLSKeyFile == "" {
				serveErr <- errors.New("TLS is enabled but TLS_CERT_FILE or TLS_KEY_FILE is not set in config")
				return
			}
			log.Infof("Starting HTTPS server, accessible locally at https://localhost:%s", config.AppConfig.APIPort)
			serveErr <- srv.ListenAndServeTLS(config.AppConfig.TLSCertFile, config.AppConfig.TLSKeyFile)
			return
		}
		log.Infof("Starting HTTP server, accessible locally at http://localhost:%s", config.AppConfig.APIPort)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			supervisor.Shutdown()
			log.Fatalf("Failed to start server: %v", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by http.Server; close
	// them through the manager.
	sshManager.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown: %v", err)
	}
	supervisor.Shutdown()

	log.Info("Access gateway stopped")
}
