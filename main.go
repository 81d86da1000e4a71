package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/shopaudit/backend/config"
	"github.com/shopaudit/backend/middleware"
	"github.com/shopaudit/backend/scan"
	"github.com/shopaudit/backend/shopify"
	"github.com/shopaudit/backend/stats"
	"github.com/shopaudit/backend/storefront"
	"github.com/shopaudit/backend/usage"
)

var (
	runner     *scan.Runner
	store      *scan.Store
	probe      *storefront.Probe
	usageStats *usage.Statistics
)

func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		log.Fatal("failed to load configuration", "err", err)
	}

	gin.SetMode(cfg.GinMode)

	statsStorage, err := stats.NewStorage(cfg.DataDir)
	if err != nil {
		log.Fatal("failed to initialize stats storage", "err", err)
	}

	store, err = scan.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal("failed to open scan store", "err", err)
	}

	client := shopify.New()
	client.SetAPIVersion(cfg.ShopifyAPIVersion)

	runner = scan.NewRunner(client, store, statsStorage)
	runner.SetCacheTTL(cfg.CacheTTL())

	probe = storefront.New()
	usageStats = usage.Initialize()
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(rateLimiter.RateLimit())
	r.Use(corsMiddleware())

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.POST("/audit", runAudit)
		api.GET("/scans/:shop", scanHistory)
		api.GET("/scans/:shop/latest", latestScan)
		api.POST("/storefront/probe", probePage)

		api.GET("/statistics", func(c *gin.Context) {
			c.JSON(http.StatusOK, usageStats.Snapshot())
		})
		api.GET("/cache/stats", func(c *gin.Context) {
			c.JSON(http.StatusOK, runner.GetCacheStats())
		})
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown", "err", err)
	}

	runner.Shutdown()
	if err := statsStorage.Shutdown(); err != nil {
		log.Error("stats shutdown", "err", err)
	}
	if err := store.Close(); err != nil {
		log.Error("store close", "err", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func runAudit(c *gin.Context) {
	var request struct {
		Shop  string `json:"shop" binding:"required"`
		Token string `json:"token" binding:"required"`
		Force bool   `json:"force"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "shop and token are required",
		})
		return
	}

	creds := shopify.Credentials{
		Shop:  strings.TrimSpace(request.Shop),
		Token: request.Token,
	}

	start := time.Now()
	result, err := runner.Run(c.Request.Context(), creds, request.Force)
	usageStats.TrackAudit(creds.Shop, float64(time.Since(start).Milliseconds()), err != nil)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Failed to audit store: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

func scanHistory(c *gin.Context) {
	shop := c.Param("shop")
	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	scans, err := store.History(c.Request.Context(), shop, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"shop":   shop,
		"limit":  limit,
		"offset": offset,
		"items":  scans,
	})
}

func latestScan(c *gin.Context) {
	shop := c.Param("shop")

	latest, err := store.Latest(c.Request.Context(), shop)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if latest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "shop has never been scanned"})
		return
	}

	c.JSON(http.StatusOK, latest)
}

func probePage(c *gin.Context) {
	var request struct {
		URL string `json:"url" binding:"required,url"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL provided"})
		return
	}

	report, err := probe.Check(c.Request.Context(), request.URL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to probe page: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
