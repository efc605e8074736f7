package http

import (
	"context"
	"errors"
	nethttp "net/http"

	"github.com/gin-gonic/gin"

	"litqa/internal/bootstrap"
	"litqa/internal/transport/http/handler"
	"litqa/internal/transport/http/middleware"
	"litqa/internal/transport/http/response"
)

func NewRouter(app *bootstrap.App, limiter *middleware.RateLimiter) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logger(app.Logger.Named("http")),
		middleware.Recovery(app.Logger),
		app.Metrics.Middleware(),
	)
	router.NoRoute(func(c *gin.Context) {
		response.Error(c, nethttp.StatusNotFound, response.CodeNotFound, "route not found")
	})

	healthHandler := handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, healthChecks(app))
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", app.Metrics.Handler())

	authHandler := handler.NewAuthHandler(app.AuthService)
	documentHandler := handler.NewDocumentHandler(app.DocumentService)
	qaHandler := handler.NewQAHandler(app.QAService)
	requireAuth := middleware.AuthJWT(app.Config.Auth.JWTSecret)

	v1 := router.Group("/api/v1")
	v1.Use(limiter.Middleware())

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", requireAuth, authHandler.Me)

	knowledge := v1.Group("/knowledge", requireAuth)
	knowledge.GET("/documents", documentHandler.List)
	knowledge.GET("/documents/:name", documentHandler.Get)
	knowledge.DELETE("/documents/:name", documentHandler.Delete)
	knowledge.POST("/upload/text", documentHandler.UploadText)
	knowledge.POST("/upload/pdf", documentHandler.UploadPDF)
	knowledge.POST("/upload/data", documentHandler.UploadData)

	qa := v1.Group("/qa", requireAuth)
	qa.POST("/ask", qaHandler.Ask)
	qa.POST("/ask/:name", qaHandler.AskAboutDocument)
	qa.GET("/history", qaHandler.History)

	return router
}

func healthChecks(app *bootstrap.App) map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{}
	if app.MySQL != nil {
		checks["mysql"] = func(ctx context.Context) error {
			sqlDB, err := app.MySQL.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}
	}
	if app.MQConn != nil {
		checks["rabbitmq"] = func(ctx context.Context) error {
			if app.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	if app.Minio != nil {
		bucket := app.Config.Storage.MinioBucket
		checks["minio"] = func(ctx context.Context) error {
			_, err := app.Minio.BucketExists(ctx, bucket)
			return err
		}
	}
	return checks
}
