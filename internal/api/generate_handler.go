package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"certengine/internal/api/middleware"
	"certengine/internal/certificate"
	"certengine/internal/database"
	"certengine/internal/render"
	"certengine/internal/storage"
	"certengine/internal/tasks"
)

// GenerateHandler 接收生成请求并入队，渲染由 worker 串行消费。
type GenerateHandler struct {
	db          *gorm.DB
	asynqClient *asynq.Client
	storage     *storage.Client
	compositor  *render.Compositor
	logger      *slog.Logger
}

// NewGenerateHandler 返回 GenerateHandler 实例。
func NewGenerateHandler(db *gorm.DB, asynqClient *asynq.Client, storageClient *storage.Client, compositor *render.Compositor, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{
		db:          db,
		asynqClient: asynqClient,
		storage:     storageClient,
		compositor:  compositor,
		logger:      logger,
	}
}

type generateRequest struct {
	TemplateID     uint              `json:"templateId" binding:"required"`
	Values         map[string]string `json:"values"`
	RecipientEmail string            `json:"recipientEmail"`
	RecipientPhone string            `json:"recipientPhone"`
}

// GenerateSingle 入队一张证书的生成任务。
func (h *GenerateHandler) GenerateSingle(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	logger := middleware.LoggerFromContext(c)

	if !h.templateExists(c, req.TemplateID) {
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewCertificateGenerateTask(tasks.CertificateGeneratePayload{
		TemplateID:     req.TemplateID,
		Values:         req.Values,
		RecipientEmail: req.RecipientEmail,
		RecipientPhone: req.RecipientPhone,
		RequestedBy:    userID,
		CorrelationID:  correlationID,
	})
	if err != nil {
		logger.Error("build generate task failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	info, err := h.asynqClient.Enqueue(task)
	if err != nil {
		logger.Error("enqueue generate task failed", slog.Any("error", err))
		Internal(c, "failed to enqueue generation")
		return
	}

	logger.Info("certificate generation enqueued",
		slog.String("task_id", info.ID),
		slog.Uint64("template_id", uint64(req.TemplateID)),
	)
	c.JSON(http.StatusAccepted, gin.H{
		"taskId":        info.ID,
		"correlationId": correlationID,
	})
}

// GenerateBatch 接收 xlsx 名单，归档到对象存储后入队批量任务。
// 工作表本身先落盘再入队，任务重启后仍可重读名单。
func (h *GenerateHandler) GenerateBatch(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	templateID, ok := h.parseTemplateID(c, c.PostForm("templateId"))
	if !ok {
		return
	}
	if !h.templateExists(c, templateID) {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing spreadsheet file")
		return
	}
	if ext := strings.ToLower(path.Ext(file.Filename)); ext != ".xlsx" {
		BadRequest(c, "spreadsheet must be an .xlsx workbook")
		return
	}

	logger := middleware.LoggerFromContext(c)

	reader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open spreadsheet")
		return
	}
	defer reader.Close()

	objectKey := fmt.Sprintf("batch-uploads/%d/%s.xlsx", templateID, uuid.NewString())
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if _, err := h.storage.UploadFile(c.Request.Context(), objectKey, reader, file.Size, contentType); err != nil {
		logger.Error("upload batch spreadsheet failed", slog.Any("error", err))
		Internal(c, "failed to store spreadsheet")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewBatchGenerateTask(tasks.BatchGeneratePayload{
		TemplateID:     templateID,
		SpreadsheetKey: objectKey,
		RequestedBy:    userID,
		CorrelationID:  correlationID,
	})
	if err != nil {
		logger.Error("build batch task failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	info, err := h.asynqClient.Enqueue(task)
	if err != nil {
		logger.Error("enqueue batch task failed", slog.Any("error", err))
		Internal(c, "failed to enqueue batch generation")
		return
	}

	logger.Info("batch generation enqueued",
		slog.String("task_id", info.ID),
		slog.Uint64("template_id", uint64(templateID)),
		slog.String("spreadsheet_key", objectKey),
	)
	c.JSON(http.StatusAccepted, gin.H{
		"taskId":        info.ID,
		"correlationId": correlationID,
	})
}

// Preview 即时合成预览页，不入队也不落库。
// 缺值字段以标签占位，二维码使用占位载荷。
func (h *GenerateHandler) Preview(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	var tpl database.Template
	if err := h.db.WithContext(c.Request.Context()).First(&tpl, req.TemplateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "template not found")
			return
		}
		Internal(c, "internal error")
		return
	}

	fields, err := certificate.ParseFieldList(tpl.Fields)
	if err != nil {
		Internal(c, "internal error")
		return
	}

	html, err := h.compositor.BuildHTML(render.Job{
		TemplateID:    tpl.ID,
		TemplateName:  tpl.Name,
		BackgroundURL: tpl.ImageURL,
		Fields:        fields,
		Values:        req.Values,
		Mode:          render.ModePreview,
	})
	if err != nil {
		middleware.LoggerFromContext(c).Error("compose preview failed", slog.Any("error", err))
		Internal(c, "failed to compose preview")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (h *GenerateHandler) parseTemplateID(c *gin.Context, raw string) (uint, bool) {
	var id uint
	if _, err := fmt.Sscanf(strings.TrimSpace(raw), "%d", &id); err != nil || id == 0 {
		BadRequest(c, "invalid template id")
		return 0, false
	}
	return id, true
}

func (h *GenerateHandler) templateExists(c *gin.Context, templateID uint) bool {
	var tpl database.Template
	if err := h.db.WithContext(c.Request.Context()).Select("id").First(&tpl, templateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "template not found")
			return false
		}
		middleware.LoggerFromContext(c).Error("query template failed", slog.Any("error", err))
		Internal(c, "internal error")
		return false
	}
	return true
}
