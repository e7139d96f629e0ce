package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"certengine/internal/api"
	"certengine/internal/auth"
	"certengine/internal/config"
	"certengine/internal/database"
	"certengine/internal/dispatch"
	"certengine/internal/render"
	"certengine/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Printf("database connection ready")

	if err := db.AutoMigrate(&database.User{}, &database.Template{}, &database.Certificate{}); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	log.Printf("database migrated")

	if err := seedAdminUser(db); err != nil {
		log.Fatalf("seed admin user: %v", err)
	}

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	authService, err := newAuthService(cfg)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	compositor, err := render.NewCompositor(cfg.Render.VerifyBaseURL, cfg.Render.QRServiceURL)
	if err != nil {
		log.Fatalf("init compositor: %v", err)
	}

	mailer := dispatch.NewMailer(cfg.SMTP)

	router := api.NewRouter(logger)
	api.RegisterRoutes(
		router,
		db,
		asynqClient,
		authService,
		redisClient,
		logger,
		storageClient,
		compositor,
		mailer,
		cfg.API.ClamdAddr,
		cfg.API.AllowedOrigins,
	)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	log.Printf("api listening on %s", address)
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}

// seedAdminUser 保证存在一个可登录的管理员账号。
// 初始口令来自 ADMIN_PASSWORD，未设置时拒绝自动种子化。
func seedAdminUser(db *gorm.DB) error {
	var existing database.User
	switch err := db.Where("username = ?", "admin").First(&existing).Error; {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return fmt.Errorf("query admin user: %w", err)
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		return errors.New("ADMIN_PASSWORD must be set to seed the admin account")
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := database.User{Username: "admin", PasswordHash: hashed}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	log.Printf("seeded admin user")
	return nil
}

func newAuthService(cfg *config.Config) (*auth.AuthService, error) {
	privateKey, err := os.ReadFile(cfg.Auth.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	publicKey, err := os.ReadFile(cfg.Auth.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return auth.NewAuthService(
		privateKey,
		publicKey,
		cfg.Auth.AccessTTL(),
		cfg.Auth.RefreshTTL(),
	)
}
