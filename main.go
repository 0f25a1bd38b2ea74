package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rideka/config"
	"rideka/cron"
	"rideka/database"
	bookingRepoPkg "rideka/database/repository/booking"
	paymentRepoPkg "rideka/database/repository/payment"
	payoutRepoPkg "rideka/database/repository/payout"
	receiptRepoPkg "rideka/database/repository/receipt"
	refundRepoPkg "rideka/database/repository/refund"
	rideRepoPkg "rideka/database/repository/ride"
	userRepoPkg "rideka/database/repository/user"
	"rideka/handlers"
	"rideka/routes"
	"rideka/services/booking"
	"rideka/services/gateway"
	"rideka/services/notification"
	"rideka/services/orchestration"
	"rideka/services/payment"
	"rideka/services/payout"
	"rideka/services/reconcile"
	"rideka/services/refund"
	"rideka/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitCodeCache()
	utils.FirebaseInit()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	// repositories.
	rideRepo := rideRepoPkg.NewMongoRideRepo()
	bookingRepo := bookingRepoPkg.NewMongoBookingRepo()
	userRepo := userRepoPkg.NewMongoUserRepo()
	paymentRepo := paymentRepoPkg.NewMongoPaymentRepo()
	payoutRepo := payoutRepoPkg.NewMongoPayoutRepo()
	refundRepo := refundRepoPkg.NewMongoRefundRepo()
	receiptRepo := receiptRepoPkg.NewMongoReceiptRepo()

	paymentRepo.EnsureIndexes()
	payoutRepo.EnsureIndexes()
	receiptRepo.EnsureIndexes()

	// services.
	gateways := gateway.DefaultRegistry()

	notificationService, err := notification.NewDefaultNotificationService(userRepo)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize notification service: %v", err)
	}

	paymentService := &payment.DefaultPaymentService{
		Repo:   paymentRepo,
		Logger: logger,
	}

	orchestrator := &orchestration.DefaultOrchestrator{
		Payments:     paymentService,
		Bookings:     bookingRepo,
		Rides:        rideRepo,
		Receipts:     receiptRepo,
		Notification: notificationService,
		Logger:       logger,
		CodeTTL:      config.AppConfig.VerificationCodeTTL,
		CacheCode:    utils.CacheVerificationCode,
	}

	refundService := &refund.DefaultRefundService{
		Bookings:     bookingRepo,
		Rides:        rideRepo,
		Payments:     paymentService,
		Refunds:      refundRepo,
		Gateways:     gateways,
		Notification: notificationService,
		Logger:       logger,
	}

	payoutService := &payout.DefaultPayoutService{
		Bookings:           bookingRepo,
		Rides:              rideRepo,
		Users:              userRepo,
		Payments:           paymentService,
		Payouts:            payoutRepo,
		Gateways:           gateways,
		Notification:       notificationService,
		Logger:             logger,
		TransactionFeeRate: config.AppConfig.TransactionFeeRate,
		CommissionRate:     config.AppConfig.CommissionRate,
		MaxRetries:         config.AppConfig.MaxPayoutRetries,
		RetryBackoff:       config.AppConfig.PayoutRetryBackoff,
		DropCode: func(ctx context.Context, bookingID string) error {
			utils.DropCachedVerificationCode(ctx, bookingID)
			return nil
		},
	}

	bookingService := &booking.DefaultBookingService{
		Bookings:     bookingRepo,
		Rides:        rideRepo,
		Payments:     paymentService,
		Orchestrator: orchestrator,
		Refunds:      refundService,
		Logger:       logger,
	}

	queueClient := cron.NewQueueClient()
	sweeper := &reconcile.Sweeper{
		Payments:          paymentService,
		Payouts:           payoutRepo,
		Refunds:           refundRepo,
		PayoutSvc:         payoutService,
		RefundSvc:         refundService,
		Orchestrator:      orchestrator,
		Gateways:          gateways,
		Logger:            logger,
		StaleAfter:        config.AppConfig.ReconcileStaleAfter,
		ExclusiveProvider: config.AppConfig.ExclusiveProvider,
		EnqueueRetry:      cron.NewPayoutRetryEnqueuer(queueClient),
	}
	cron.InitReconcileWorker(sweeper, payoutService)

	// handlers.
	rideHandler := handlers.NewRideHandler(rideRepo, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, refundService, payoutService, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, gateways, orchestrator, logger)
	webhookHandler := handlers.NewWebhookHandler(paymentService, orchestrator, logger)

	handlerBundle := &handlers.HandlerBundle{
		CreateRideHandler: rideHandler.CreateRideHandler,
		GetRideHandler:    rideHandler.GetRideHandler,
		CancelRideHandler: rideHandler.CancelRideHandler,

		CreateBookingHandler: bookingHandler.CreateBookingHandler,
		GetBookingHandler:    bookingHandler.GetBookingHandler,
		CancelBookingHandler: bookingHandler.CancelBookingHandler,
		ChangeSeatsHandler:   bookingHandler.ChangeSeatsHandler,
		VerifyCodeHandler:    bookingHandler.VerifyCodeHandler,

		CreatePaymentHandler: paymentHandler.CreatePaymentHandler,
		GetPaymentHandler:    paymentHandler.GetPaymentHandler,

		MTNWebhookHandler:     webhookHandler.MTNWebhookHandler,
		OrangeWebhookHandler:  webhookHandler.OrangeWebhookHandler,
		PawaPayWebhookHandler: webhookHandler.PawaPayWebhookHandler,
	}

	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
