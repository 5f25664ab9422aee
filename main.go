package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-order-service/config"
	"food-order-service/handlers"
	"food-order-service/middleware"
	"food-order-service/realtime"
	"food-order-service/routes"
	"food-order-service/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := config.NewLogger(cfg)
	gin.SetMode(cfg.GinMode)

	db, err := config.OpenStore(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auth := service.NewAuthService(db, []byte(cfg.JWTSecret), cfg.TokenTTL)
	created, err := auth.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		log.WithError(err).Fatal("failed to create bootstrap admin")
	}
	if created {
		log.WithField("email", cfg.AdminEmail).Info("bootstrap admin created")
	}

	hub := realtime.NewHub(auth, log)
	defer hub.Close()

	h := handlers.New(
		auth,
		service.NewOrderService(db, db, hub),
		service.NewCatalogService(db),
		service.NewUserService(db, hub),
		db,
		log,
	)

	limiter := middleware.NewRateLimiter(cfg.AuthRatePerSec, cfg.AuthRateBurst, log)
	limiter.StartCleanup(ctx, 10*time.Minute)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(log), middleware.Metrics())
	r.Use(cors.New(corsConfig(cfg)))

	routes.SetupRoutes(r, routes.Deps{
		Handler:     h,
		Auth:        auth,
		AuthLimiter: limiter,
		OrderFeed:   hub.ServeWS,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	origins := cfg.AllowedOrigins()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return c
}
