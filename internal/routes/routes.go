package routes

import (
	"resto_back_end/internal/handlers"
	payhandlers "resto_back_end/internal/handlers/payement"
	"resto_back_end/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")

	// Auth
	api.POST("/auth/register", handlers.Register)
	api.POST("/auth/login", middleware.LoginRateLimit(), handlers.Login)
	api.GET("/auth/me", middleware.AuthRequired(), handlers.Me)
	api.GET("/auth/:provider", handlers.BeginAuth)
	api.GET("/auth/:provider/callback", handlers.CallbackAuth)

	// Catalogue public
	api.GET("/menu", handlers.GetMenu)
	api.GET("/menu/search", handlers.SearchMenu)
	api.GET("/menu/:id", handlers.GetMenuItem)

	// Catalogue admin
	menuAdmin := api.Group("/menu", middleware.AuthRequired(), middleware.RequireAdmin)
	menuAdmin.POST("", handlers.CreateMenuItem)
	menuAdmin.PUT("/:id", handlers.UpdateMenuItem)
	menuAdmin.DELETE("/:id", handlers.DeleteMenuItem)
	menuAdmin.POST("/image", handlers.UploadMenuImage)

	// Commandes
	auth := api.Group("", middleware.AuthRequired())
	auth.POST("/orders", handlers.CreateOrder)
	auth.GET("/orders/mine", handlers.GetMyOrders)
	auth.GET("/orders/:id", handlers.GetOrder)
	auth.GET("/orders/:id/track", handlers.TrackOrder)
	auth.POST("/orders/:id/cancel", handlers.CancelOrder)
	auth.DELETE("/orders/:id", handlers.DeleteOrder)

	admin := api.Group("", middleware.AuthRequired(), middleware.RequireAdmin)
	admin.GET("/orders", handlers.GetAllOrders)
	admin.PATCH("/orders/:id/status", handlers.UpdateOrderStatus)

	// Paiement : sessions et vérification (authentifié)
	auth.POST("/payment/stripe/session", payhandlers.CreateStripeSession)
	auth.POST("/payment/stripe/verify", payhandlers.VerifyStripePayment)
	auth.POST("/payment/sslcz/session", payhandlers.CreateSSLCommerzSession)

	// Paiement : callbacks externes (pas d'auth : webhook signé côté Stripe,
	// validation serveur-à-serveur côté SSLCommerz)
	api.POST("/payment/stripe/webhook", payhandlers.StripeWebhook)
	api.POST("/payment/sslcz/success", payhandlers.SSLCommerzSuccess)
	api.POST("/payment/sslcz/fail", payhandlers.SSLCommerzFail)
	api.POST("/payment/sslcz/cancel", payhandlers.SSLCommerzCancel)
	api.POST("/payment/sslcz/ipn", payhandlers.SSLCommerzIPN)

	// Réservations
	auth.POST("/reservations", handlers.CreateReservation)
	auth.GET("/reservations/mine", handlers.GetMyReservations)
	auth.POST("/reservations/:id/cancel", handlers.CancelReservation)
	admin.GET("/reservations", handlers.GetAllReservations)
}
