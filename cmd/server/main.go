package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"ticketing-engine/internal/config"
	"ticketing-engine/internal/database"
	"ticketing-engine/internal/handlers"
	"ticketing-engine/internal/repositories"
	"ticketing-engine/internal/services"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	if cfg.Server.Env == "development" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		log.SetLevel(logrus.DebugLevel)
	}

	db, err := database.NewConnection(database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	// Repositories
	ticketTypeRepo := repositories.NewTicketTypeRepository(db.DB)
	inventoryRepo := repositories.NewInventoryRepository(db.DB)
	bookingRepo := repositories.NewBookingRepository(db.DB)
	paymentRepo := repositories.NewPaymentRepository(db.DB)
	couponRepo := repositories.NewCouponRepository(db.DB)
	ticketRepo := repositories.NewTicketRepository(db.DB)

	// Services
	pricing := services.NewPricingService()
	coupons := services.NewCouponService()
	verification := services.NewVerificationService(
		cfg.Verification.Secret, cfg.Verification.TokenTTL, cfg.Verification.BaseURL)

	var notifier services.NotificationDispatcher
	if cfg.Resend.APIKey != "" {
		notifier = services.NewResendDispatcher(cfg.Resend.APIKey, cfg.Resend.FromEmail, cfg.Resend.FromName)
	} else {
		notifier = services.NewLogDispatcher(log)
	}

	var gateway services.CheckoutGateway
	if cfg.Checkout.SecretKey != "" {
		gateway = services.NewHostedCheckoutClient(
			cfg.Checkout.SecretKey, cfg.Checkout.Environment, cfg.Checkout.SessionTTL)
	} else {
		log.Warn("checkout secret key not set, using mock gateway")
		gateway = services.NewMockCheckoutGateway("mock-secret", cfg.Checkout.SessionTTL)
	}

	issuer := services.NewTicketIssuer(
		bookingRepo, ticketTypeRepo, ticketRepo, pricing, coupons, verification, notifier, log)
	bookingService := services.NewBookingService(
		bookingRepo, ticketTypeRepo, couponRepo, paymentRepo, ticketRepo,
		pricing, coupons, issuer, gateway, notifier, cfg.Checkout.CallbackURL, log)
	reconciler := services.NewPaymentReconciler(gateway, paymentRepo, issuer, log)
	ticketService := services.NewTicketService(ticketRepo, verification)
	sweeper := services.NewExpirySweeper(
		bookingRepo, paymentRepo, notifier, cfg.Checkout.SessionTTL, time.Minute, log)

	router := &handlers.Router{
		Bookings:     handlers.NewBookingHandler(bookingService),
		Webhooks:     handlers.NewWebhookHandler(reconciler),
		Admin:        handlers.NewAdminHandler(ticketTypeRepo, couponRepo, inventoryRepo, issuer, sweeper),
		Verification: handlers.NewVerificationHandler(ticketService),
		TicketTypes:  ticketTypeRepo,
		Log:          log,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(ctx)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router.Setup(),
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
}
