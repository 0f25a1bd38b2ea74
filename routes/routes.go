package routes

import (
	"net/http"
	"time"

	"rideka/handlers"
	"rideka/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRideRoutes registers ride publishing endpoints.
func RegisterRideRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/rides")
	{
		api.Use(middleware.RateLimitMiddleware())
		api.GET("/:id", hb.GetRideHandler)

		api.Use(middleware.JWTAuthMiddleware())
		api.POST("", hb.CreateRideHandler)
		api.POST("/:id/cancel", hb.CancelRideHandler)
	}
}

// RegisterBookingRoutes registers the booking lifecycle endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		api.Use(middleware.RateLimitMiddleware(), middleware.JWTAuthMiddleware())
		api.POST("", hb.CreateBookingHandler)
		api.GET("/:id", hb.GetBookingHandler)
		api.POST("/:id/cancel", hb.CancelBookingHandler)
		api.POST("/:id/seats", hb.ChangeSeatsHandler)
		api.POST("/:id/verify", hb.VerifyCodeHandler)
	}
}

// RegisterPaymentRoutes registers payment initiation and lookup.
func RegisterPaymentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/payments")
	{
		api.Use(middleware.RateLimitMiddleware(), middleware.JWTAuthMiddleware())
		api.POST("", hb.CreatePaymentHandler)
		api.GET("/:id", hb.GetPaymentHandler)
	}
}

// RegisterWebhookRoutes registers the provider callback endpoints. No auth
// middleware and no rate limiting here: providers sign nothing useful and
// redeliver in bursts.
func RegisterWebhookRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	hooks := r.Group("/webhooks")
	{
		hooks.POST("/mtn", hb.MTNWebhookHandler)
		hooks.POST("/orange", hb.OrangeWebhookHandler)
		hooks.POST("/pawapay", hb.PawaPayWebhookHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterWebhookRoutes(r, hb)
	RegisterRideRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterPaymentRoutes(r, hb)
}
