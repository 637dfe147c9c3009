package main

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	config "github.com/phillip/eventfund-go/config"
	middleware "github.com/phillip/eventfund-go/middleware"
	routes "github.com/phillip/eventfund-go/routes"
	service "github.com/phillip/eventfund-go/service"
	"github.com/phillip/eventfund-go/store/mongostore"
	utils "github.com/phillip/eventfund-go/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	defer cfg.Log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := mongostore.EnsureIndexes(ctx, cfg.MongoClient, cfg.DBName); err != nil {
		cfg.Log.Fatal("index setup failed", zap.Error(err))
	}

	st := mongostore.New(cfg.MongoClient, cfg.DBName)
	notifier := &utils.EmailNotifier{To: cfg.NotifyEmail, Log: cfg.Log}
	svc := service.New(st, notifier, cfg.Log)

	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "If-None-Match"},
		ExposeHeaders:    []string{"ETag", "Last-Modified", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// credentials cannot be combined with a wildcard origin
	if len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*" {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}

	r := gin.Default()
	r.Use(middleware.RequestID())
	r.Use(cors.New(corsCfg))

	routes.SetupRoutes(r, cfg, svc)

	cfg.Log.Info("server starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		cfg.Log.Fatal("server exited", zap.Error(err))
	}
}
