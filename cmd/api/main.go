package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sudo-init-do/questhub/internal/alerts"
	"github.com/sudo-init-do/questhub/internal/db"
	"github.com/sudo-init-do/questhub/internal/ledger"
	appmw "github.com/sudo-init-do/questhub/internal/middleware"
	// handlers
	admin "github.com/sudo-init-do/questhub/internal/admin"
	auth "github.com/sudo-init-do/questhub/internal/auth"
	board "github.com/sudo-init-do/questhub/internal/questboard"
	user "github.com/sudo-init-do/questhub/internal/user"
	w "github.com/sudo-init-do/questhub/internal/wallet"
)

func main() {
	_ = godotenv.Load()

	// Init subsystems
	db.Init()
	alerts.Init()
	defer alerts.Close()

	store := ledger.NewPGStore(db.Conn)
	w.Init(store)
	admin.Init(store)
	qb := board.NewHandler(store)

	board.StartDeadlineScanner(context.Background())

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Health
	e.GET("/health", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// Public auth routes, rate limited
	authGroup := e.Group("")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	authGroup.POST("/signup", auth.Signup)
	authGroup.POST("/login", auth.Login)
	authGroup.POST("/auth/password/request", auth.RequestPasswordReset)
	authGroup.POST("/auth/password/reset", auth.ResetPassword)
	authGroup.POST("/auth/bootstrap_guildmaster", auth.BootstrapGuildMaster)
	e.GET("/user/:id/profile", user.GetPublicProfile)

	// Authenticated group
	g := e.Group("")
	g.Use(appmw.JWTMiddleware)

	// Me and profile update
	g.GET("/me", auth.Me)
	g.PATCH("/user/profile", user.UpdateProfile)

	// Wallet
	g.GET("/wallet/balance", w.Balance)
	g.POST("/wallet/topups/init", w.TopupInit)
	g.POST("/wallet/topups/confirm", w.TopupConfirm)
	g.GET("/wallet/topups", w.TopupsHandler)
	g.POST("/wallet/transfer", w.Transfer)
	g.GET("/wallet/transactions", w.TransactionsHandler)

	// Quest board
	e.GET("/quests", qb.Browse) // public board
	g.POST("/quests", qb.PostQuest, appmw.RequireRoles("npc"))
	g.GET("/quests/mine", qb.MyQuests)
	g.GET("/quests/affordability", qb.Affordability)
	g.GET("/quests/:id", qb.GetQuest)
	g.POST("/quests/:id/accept", qb.AcceptQuest, appmw.RequireRoles("adventurer"))
	g.POST("/quests/:id/complete", qb.CompleteQuest, appmw.RequireRoles("adventurer"))
	g.POST("/quests/:id/pay", qb.PayQuest, appmw.RequireRoles("npc"))
	g.POST("/quests/:id/cancel", qb.CancelQuest, appmw.RequireRoles("npc"))
	g.GET("/quests/:id/escrow", qb.QuestEscrow)
	g.GET("/quests/:id/transactions", qb.QuestTransactions)
	g.GET("/quests/:id/balance", qb.QuestBalance)
	g.POST("/quests/:id/conflict", qb.ReportConflict)
	g.GET("/quests/:id/conflict", qb.QuestConflict)
	g.POST("/conflicts/:id/withdraw", qb.WithdrawConflict)

	// Escrow views
	g.GET("/escrows", qb.MyEscrows)
	g.GET("/escrows/stats", qb.MyEscrowStats)

	// Notifications
	g.GET("/notifications", alerts.ListNotifications)
	g.POST("/notifications/:id/read", alerts.MarkNotificationRead)

	// Guild Master routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(appmw.JWTMiddleware)
	adminGroup.Use(appmw.GuildMasterGuard)
	adminGroup.GET("/stats", admin.Stats)
	adminGroup.GET("/quests", admin.ListQuests)
	adminGroup.GET("/wallets", admin.ListWallets)
	adminGroup.GET("/transactions", w.AdminGetAllTransactions)
	adminGroup.GET("/users/:id/transactions", w.AdminGetUserTransactions)
	adminGroup.GET("/users", admin.ListUsers)
	adminGroup.POST("/users/:id/suspend", admin.SuspendUser)
	adminGroup.POST("/users/:id/activate", admin.ActivateUser)
	adminGroup.POST("/users/:id/promote_guildmaster", admin.PromoteGuildMaster)
	adminGroup.GET("/conflicts", admin.ListOpenConflicts)
	adminGroup.POST("/conflicts/:id/resolve", admin.ResolveConflict)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("QuestHub API listening on :%s", port)
	if err := e.Start(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
