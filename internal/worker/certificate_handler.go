package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"certengine/internal/certificate"
	"certengine/internal/database"
	"certengine/internal/errcode"
	"certengine/internal/metrics"
	"certengine/internal/render"
	"certengine/internal/tasks"
)

// GenerateTaskHandler 负责消费证书生成任务（单张与批量共用依赖）。
type GenerateTaskHandler struct {
	db          *gorm.DB
	storage     ObjectStore
	redisClient *redis.Client
	logger      *slog.Logger
	compositor  *render.Compositor
	renderer    Renderer
	exporter    *Exporter
}

// NewGenerateTaskHandler 创建任务处理器。
func NewGenerateTaskHandler(
	db *gorm.DB,
	storage ObjectStore,
	redisClient *redis.Client,
	logger *slog.Logger,
	compositor *render.Compositor,
	renderer Renderer,
) *GenerateTaskHandler {
	return &GenerateTaskHandler{
		db:          db,
		storage:     storage,
		redisClient: redisClient,
		logger:      logger,
		compositor:  compositor,
		renderer:    renderer,
		exporter:    NewExporter(db, storage),
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *GenerateTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.CertificateGeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("template_id", int(payload.TemplateID)),
	)
	log.Info("Starting certificate generation task...")

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		notify := GenerationNotifyMessage{
			Status:        "error",
			TemplateID:    payload.TemplateID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.publishNotify(ctx, payload.RequestedBy, notify); err != nil {
			log.Error("publish generation error notification failed", slog.Any("error", err))
		}
	}()

	job, err := h.buildJob(ctx, payload)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("template not found, skipping task")
			notify := GenerationNotifyMessage{
				Status:        "error",
				TemplateID:    payload.TemplateID,
				CorrelationID: payload.CorrelationID,
				ErrorCode:     errcode.ResourceMissing,
				ErrorMessage:  "template no longer exists",
			}
			if pubErr := h.publishNotify(ctx, payload.RequestedBy, notify); pubErr != nil {
				log.Error("publish generation error notification failed", slog.Any("error", pubErr))
			}
			return nil
		}
		log.Error("build render job failed", slog.Any("error", err))
		return err
	}

	cert, err := h.generate(ctx, job)
	if err != nil {
		log.Error("generate certificate failed", slog.Any("error", err))
		return err
	}
	metrics.CountGenerated("single")

	notify := GenerationNotifyMessage{
		Status:        "completed",
		CertificateID: cert.ID,
		TemplateID:    payload.TemplateID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if err := h.publishNotify(ctx, payload.RequestedBy, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("Certificate generation task completed successfully.",
		slog.String("certificate_id", cert.ID))
	return nil
}

// buildJob 加载模板并装配采集模式的渲染任务。
// 校验 ID 在此刻分配，二维码载荷因此在截图时就指向最终校验页。
func (h *GenerateTaskHandler) buildJob(ctx context.Context, payload tasks.CertificateGeneratePayload) (render.Job, error) {
	var tpl database.Template
	if err := h.db.WithContext(ctx).First(&tpl, payload.TemplateID).Error; err != nil {
		return render.Job{}, err
	}

	fields, err := certificate.ParseFieldList(tpl.Fields)
	if err != nil {
		return render.Job{}, fmt.Errorf("parse template fields: %w", err)
	}

	return render.Job{
		TemplateID:     tpl.ID,
		TemplateName:   tpl.Name,
		BackgroundURL:  tpl.ImageURL,
		Fields:         fields,
		Values:         payload.Values,
		VerificationID: uuid.NewString(),
		Contact: render.Contact{
			Email: payload.RecipientEmail,
			Phone: payload.RecipientPhone,
		},
		Mode: render.ModeCapture,
	}, nil
}

// generate 执行合成、栅格化与归档。
func (h *GenerateTaskHandler) generate(ctx context.Context, job render.Job) (*database.Certificate, error) {
	html, err := h.compositor.BuildHTML(job)
	if err != nil {
		return nil, fmt.Errorf("compose certificate page: %w", err)
	}

	pngData, err := h.renderer.RenderPNG(html)
	if err != nil {
		return nil, fmt.Errorf("rasterize certificate page: %w", err)
	}

	return h.exporter.Export(ctx, job, pngData)
}

func (h *GenerateTaskHandler) publishNotify(ctx context.Context, userID uint, notify GenerationNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := fmt.Sprintf("user_notify:%d", userID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
