package web

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/pkbhaiya/ytbulk/ytbulk/database/repositories"
	"github.com/pkbhaiya/ytbulk/ytbulk/services"
)

// Server wires repositories and services into the HTTP API. Worker routes
// identify the caller by the X-User-ID header set by the auth proxy; admin
// and cron routes are guarded by shared secrets.
type Server struct {
	app *fiber.App

	adminToken string
	cronSecret string

	Batches     repositories.BatchRepository
	Works       repositories.WorkRepository
	Claims      repositories.ClaimRepository
	Wallets     repositories.WalletRepository
	Withdrawals repositories.WithdrawalRepository
	Milestones  repositories.MilestoneRepository

	BatchSvc   *services.BatchService
	SweepSvc   *services.SweepService
	RefreshSvc *services.RefreshService
	Spaces     *services.SpacesService

	MinWithdraw int64
}

type ServerDeps struct {
	AdminToken string
	CronSecret string

	Batches     repositories.BatchRepository
	Works       repositories.WorkRepository
	Claims      repositories.ClaimRepository
	Wallets     repositories.WalletRepository
	Withdrawals repositories.WithdrawalRepository
	Milestones  repositories.MilestoneRepository

	BatchSvc   *services.BatchService
	SweepSvc   *services.SweepService
	RefreshSvc *services.RefreshService
	Spaces     *services.SpacesService

	MinWithdraw int64
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		adminToken:  deps.AdminToken,
		cronSecret:  deps.CronSecret,
		Batches:     deps.Batches,
		Works:       deps.Works,
		Claims:      deps.Claims,
		Wallets:     deps.Wallets,
		Withdrawals: deps.Withdrawals,
		Milestones:  deps.Milestones,
		BatchSvc:    deps.BatchSvc,
		SweepSvc:    deps.SweepSvc,
		RefreshSvc:  deps.RefreshSvc,
		Spaces:      deps.Spaces,
		MinWithdraw: deps.MinWithdraw,
	}

	app := fiber.New(fiber.Config{
		AppName:      "YTBulk API",
		ServerHeader: "YTBulk",
		ErrorHandler: CustomErrorHandler,
	})

	app.Use(recover.New())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-User-ID,X-Cron-Secret",
	}))
	app.Use(LoggingMiddleware())

	s.app = app
	s.setupRoutes()
	return s
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) setupRoutes() {
	app := s.app

	app.Get("/health", s.HealthCheck)

	// Worker-facing routes
	api := app.Group("/api")
	api.Use(RequireUser())
	api.Get("/works", s.ListOpenWorks)
	api.Get("/works/:id", s.GetWork)
	api.Post("/works/:id/claim", s.ClaimWork)
	api.Get("/claims", s.ListMyClaims)
	api.Get("/claims/active", s.GetActiveClaim)
	api.Get("/claims/:id", s.GetMyClaim)
	api.Post("/claims/:id/submit", s.SubmitClaim)
	api.Get("/milestones/rules", s.ListActiveMilestoneRules)
	api.Get("/wallet", s.GetWallet)
	api.Get("/wallet/withdrawals", s.ListMyWithdrawals)
	api.Post("/wallet/withdrawals", s.CreateWithdrawal)

	// Admin routes
	admin := app.Group("/admin")
	admin.Use(RequireAdmin(s.adminToken))
	admin.Post("/batches", s.GenerateBatch)
	admin.Get("/batches", s.ListBatches)
	admin.Get("/batches/:id", s.GetBatch)
	admin.Post("/works", s.CreateWork)
	admin.Get("/works", s.ListAllWorks)
	admin.Post("/works/:id/video", s.UploadWorkVideo)
	admin.Post("/works/:id/sweep", s.SweepWork)
	admin.Get("/submissions", s.ListSubmissions)
	admin.Post("/claims/:id/approve", s.ApproveClaim)
	admin.Post("/claims/:id/reject", s.RejectClaim)
	admin.Post("/wallets/:user_id/adjust", s.AdjustWallet)
	admin.Get("/withdrawals", s.ListWithdrawals)
	admin.Post("/withdrawals/:id/approve", s.ApproveWithdrawal)
	admin.Post("/withdrawals/:id/reject", s.RejectWithdrawal)
	admin.Get("/milestones/rules", s.ListMilestoneRules)
	admin.Post("/milestones/rules", s.CreateMilestoneRule)
	admin.Put("/milestones/rules/:id", s.UpdateMilestoneRule)
	admin.Get("/milestones/payouts", s.ListMilestonePayouts)
	admin.Post("/milestones/payouts/:id/approve", s.ApproveMilestonePayout)
	admin.Post("/milestones/payouts/:id/reject", s.RejectMilestonePayout)

	// External scheduler triggers
	cron := app.Group("/cron")
	cron.Use(RequireCronSecret(s.cronSecret))
	cron.Post("/sweep", s.RunSweep)
	cron.Post("/refresh", s.RunRefresh)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested endpoint does not exist",
		})
	})
}
