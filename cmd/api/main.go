package main

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ritz541/iamwheel/internal/config"
	"github.com/ritz541/iamwheel/internal/handlers"
	"github.com/ritz541/iamwheel/internal/logger"
	"github.com/ritz541/iamwheel/internal/middleware"
	"github.com/ritz541/iamwheel/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("failed to load config: %v", err)
		return
	}

	db, err := config.SetupDatabase(cfg)
	if err != nil {
		logger.Errorf("failed to connect to database: %v", err)
		return
	}

	redisClient, err := services.NewRedisClient(cfg)
	if err != nil {
		logger.Errorf("failed to connect to redis: %v", err)
		return
	}
	defer redisClient.Close()

	ledger := services.NewLedger(db)
	roundStore := services.NewPgRoundStore(db, redisClient, ledger, cfg)
	joinLimiter := services.NewRedisRateLimiter(redisClient, cfg.JoinRateLimit, cfg.JoinRateWindow)
	sessions := services.NewSessionStore(redisClient)
	jwtService := services.NewJWTService(cfg)
	accounts := services.NewAccountService(db)

	hub := handlers.NewHub()
	engine := services.NewEngine(roundStore, joinLimiter, hub, cfg)
	if !engine.Start(context.Background()) {
		logger.Errorf("round driver already running, refusing to start twice")
		return
	}

	authHandler := handlers.NewAuthHandler(accounts, sessions, jwtService)
	walletHandler := handlers.NewWalletHandler(accounts, ledger)
	adminHandler := handlers.NewAdminHandler(accounts, ledger)
	gameHandler := handlers.NewGameHandler(roundStore)
	wsHandler := handlers.NewWebSocketHandler(engine, hub)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/register", authHandler.Register)
	router.POST("/login", authHandler.Login)
	router.GET("/api/games/recent", gameHandler.RecentGames)

	authed := middleware.AuthMiddleware(jwtService, sessions)

	router.POST("/logout", authed, authHandler.Logout)
	router.GET("/ws", authed, wsHandler.HandleWebSocket)

	api := router.Group("/api")
	api.Use(authed)
	{
		api.GET("/me", authHandler.Me)
		api.GET("/user/games", gameHandler.UserGames)

		wallet := api.Group("/wallet")
		wallet.Use(middleware.RateLimitMiddleware(joinLimiter))
		{
			wallet.GET("", walletHandler.GetWallet)
			wallet.POST("/deposit", walletHandler.RequestDeposit)
			wallet.POST("/withdraw", walletHandler.RequestWithdrawal)
		}
	}

	admin := router.Group("/admin")
	admin.Use(authed, middleware.AdminMiddleware())
	{
		admin.GET("/transactions", adminHandler.ListTransactions)
		admin.POST("/transactions/:id/approve", adminHandler.ApproveTransaction)
		admin.POST("/transactions/:id/reject", adminHandler.RejectTransaction)
		admin.POST("/users/:id/block", adminHandler.BlockUser)
		admin.POST("/users/:id/unblock", adminHandler.UnblockUser)
	}

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	logger.Infof("server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		logger.Errorf("server stopped: %v", err)
	}
}
