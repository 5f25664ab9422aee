package routes

import (
	"net/http"

	"food-order-service/handlers"
	"food-order-service/metrics"
	"food-order-service/middleware"

	"github.com/gin-gonic/gin"
)

type Deps struct {
	Handler     *handlers.Handler
	Auth        middleware.TokenAuthenticator
	AuthLimiter *middleware.RateLimiter
	// OrderFeed serves the realtime websocket. Optional.
	OrderFeed gin.HandlerFunc
}

func SetupRoutes(r *gin.Engine, d Deps) {
	h := d.Handler

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Food Order Service",
			"docs":    "/api/state-machine",
			"health":  "/health",
		})
	})

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		authRoutes := public.Group("/auth")
		if d.AuthLimiter != nil {
			authRoutes.Use(d.AuthLimiter.Handler())
		}
		authRoutes.POST("/register", h.Register)
		authRoutes.POST("/login", h.Login)
		authRoutes.POST("/admin/login", h.AdminLogin)

		// Catalog reads
		public.GET("/restaurants", h.ListRestaurants)
		public.GET("/restaurants/:id", h.GetRestaurant)
		public.GET("/menu/:restaurantId", h.GetMenu)

		public.GET("/state-machine", h.GetStateMachineInfo)
	}

	// ── Authenticated routes ───────────────────────────────────────
	authed := r.Group("/api")
	authed.Use(middleware.AuthRequired(d.Auth))
	{
		authed.GET("/profile", h.GetProfile)

		authed.GET("/orders", h.GetMyOrders)
		authed.POST("/orders", h.PlaceOrder)
		authed.GET("/orders/:id", h.GetOrderDetail)
		if d.OrderFeed != nil {
			authed.GET("/orders/ws", d.OrderFeed)
		}
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api")
	admin.Use(middleware.AuthRequired(d.Auth), middleware.AdminRequired())
	{
		admin.GET("/orders/all", h.AdminGetAllOrders)
		admin.PUT("/orders/:id/status", h.UpdateOrderStatus)

		admin.POST("/restaurants", h.CreateRestaurant)
		admin.PUT("/restaurants/:id", h.UpdateRestaurant)
		admin.DELETE("/restaurants/:id", h.DeleteRestaurant)

		admin.POST("/menu", h.AddMenuItem)
		admin.PUT("/menu/:id", h.UpdateMenuItem)
		admin.DELETE("/menu/:id", h.DeleteMenuItem)

		admin.GET("/users", h.AdminGetAllUsers)
		admin.GET("/users/:id", h.AdminGetUser)
		admin.PUT("/users/:id/status", h.AdminSetUserStatus)
		admin.DELETE("/users/:id", h.AdminDeleteUser)
	}
}
