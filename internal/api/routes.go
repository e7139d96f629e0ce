package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"certengine/internal/api/middleware"
	"certengine/internal/auth"
	"certengine/internal/dispatch"
	"certengine/internal/render"
	"certengine/internal/storage"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
	compositor *render.Compositor,
	mailer *dispatch.Mailer,
	clamdAddr string,
	allowedOrigins []string,
) {
	templateHandler := NewTemplateHandler(db, storageClient, logger)
	generateHandler := NewGenerateHandler(db, asynqClient, storageClient, compositor, logger)
	historyHandler := NewHistoryHandler(db, storageClient, mailer, compositor, logger)
	verifyHandler := NewVerifyHandler(db, logger)
	authHandler := NewAuthHandler(db, authService, redisClient, logger)
	wsHandler := NewWsHandler(redisClient, authService, logger, allowedOrigins)
	assetHandler := NewAssetHandler(storageClient, logger, clamdAddr)
	authMiddleware := middleware.AuthMiddleware(authService)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)
		v1.GET("/verify/:id", verifyHandler.Verify)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		templateGroup := v1.Group("/templates")
		templateGroup.Use(authMiddleware)
		{
			templateGroup.POST("", templateHandler.CreateTemplate)
			templateGroup.GET("", templateHandler.ListTemplates)
			templateGroup.GET("/:id", templateHandler.GetTemplate)
			templateGroup.PUT("/:id/fields", templateHandler.SaveFields)
			templateGroup.DELETE("/:id", templateHandler.DeleteTemplate)
			templateGroup.POST("/:id/fields", templateHandler.AddField)
			templateGroup.POST("/:id/asset-fields", templateHandler.AddAssetField)
			templateGroup.PATCH("/:id/fields/:fieldID", templateHandler.PatchField)
			templateGroup.POST("/:id/fields/:fieldID/move", templateHandler.MoveField)
			templateGroup.POST("/:id/fields/:fieldID/resize", templateHandler.ResizeField)
			templateGroup.DELETE("/:id/fields/:fieldID", templateHandler.RemoveField)
		}

		generateGroup := v1.Group("/generate")
		generateGroup.Use(authMiddleware)
		{
			generateGroup.POST("", generateHandler.GenerateSingle)
			generateGroup.POST("/batch", generateHandler.GenerateBatch)
			generateGroup.POST("/preview", generateHandler.Preview)
		}

		historyGroup := v1.Group("/certificates")
		historyGroup.Use(authMiddleware)
		{
			historyGroup.GET("", historyHandler.ListCertificates)
			historyGroup.DELETE("/:id", historyHandler.DeleteCertificate)
			historyGroup.GET("/:id/whatsapp-link", historyHandler.WhatsAppLink)
			historyGroup.POST("/:id/email", historyHandler.SendEmail)
			historyGroup.GET("/:id/download-link", historyHandler.DownloadLink)
		}

		assetGroup := v1.Group("/assets")
		assetGroup.Use(authMiddleware)
		{
			assetGroup.POST("/upload", assetHandler.UploadAsset)
		}
	}
}
