package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"certengine/internal/api/middleware"
	"certengine/internal/database"
	"certengine/internal/dispatch"
	"certengine/internal/render"
	"certengine/internal/storage"
)

// HistoryHandler 负责生成记录的查询、删除与派发。
type HistoryHandler struct {
	db         *gorm.DB
	storage    *storage.Client
	mailer     *dispatch.Mailer
	compositor *render.Compositor
	logger     *slog.Logger
}

// NewHistoryHandler 返回 HistoryHandler 实例。
func NewHistoryHandler(db *gorm.DB, storageClient *storage.Client, mailer *dispatch.Mailer, compositor *render.Compositor, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		db:         db,
		storage:    storageClient,
		mailer:     mailer,
		compositor: compositor,
		logger:     logger,
	}
}

type certificateSummary struct {
	ID             string    `json:"id"`
	RecipientName  string    `json:"recipientName"`
	RecipientEmail string    `json:"recipientEmail,omitempty"`
	RecipientPhone string    `json:"recipientPhone,omitempty"`
	TemplateID     uint      `json:"templateId"`
	Category       string    `json:"category"`
	FileURL        string    `json:"fileUrl"`
	VerifyURL      string    `json:"verifyUrl"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (h *HistoryHandler) summarize(cert database.Certificate) certificateSummary {
	return certificateSummary{
		ID:             cert.ID,
		RecipientName:  cert.RecipientName,
		RecipientEmail: cert.RecipientEmail,
		RecipientPhone: cert.RecipientPhone,
		TemplateID:     cert.TemplateID,
		Category:       cert.Category,
		FileURL:        cert.FileURL,
		VerifyURL:      h.compositor.VerifyURL(cert.ID),
		CreatedAt:      cert.CreatedAt,
	}
}

// ListCertificates 返回生成记录，按生成时间倒序，支持按模板与收件人过滤。
func (h *HistoryHandler) ListCertificates(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).
		Model(&database.Certificate{}).
		Order("created_at DESC")

	if templateID := c.Query("templateId"); templateID != "" {
		id, err := strconv.ParseUint(templateID, 10, 64)
		if err != nil {
			BadRequest(c, "invalid template id")
			return
		}
		query = query.Where("template_id = ?", uint(id))
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("LOWER(recipient_name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	var certs []database.Certificate
	if err := query.Limit(limit).Find(&certs).Error; err != nil {
		middleware.LoggerFromContext(c).Error("list certificates failed", slog.Any("error", err))
		Internal(c, "failed to list certificates")
		return
	}

	items := make([]certificateSummary, 0, len(certs))
	for _, cert := range certs {
		items = append(items, h.summarize(cert))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// DeleteCertificate 删除生成记录。
// 已归档文档保留在对象存储中，二维码落地页据此继续返回文件（记录删除后校验失败是预期行为）。
func (h *HistoryHandler) DeleteCertificate(c *gin.Context) {
	cert, ok := h.loadCertificate(c)
	if !ok {
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Delete(&cert).Error; err != nil {
		middleware.LoggerFromContext(c).Error("delete certificate failed", slog.Any("error", err))
		Internal(c, "failed to delete certificate")
		return
	}

	middleware.LoggerFromContext(c).Info("certificate record deleted",
		slog.String("certificate_id", cert.ID))
	c.Status(http.StatusNoContent)
}

// WhatsAppLink 返回带预填消息的 wa.me 派发链接。
func (h *HistoryHandler) WhatsAppLink(c *gin.Context) {
	cert, ok := h.loadCertificate(c)
	if !ok {
		return
	}

	link, err := dispatch.WhatsAppShareLink(cert.RecipientPhone, cert.RecipientName, cert.Category, h.compositor.VerifyURL(cert.ID))
	if err != nil {
		if errors.Is(err, dispatch.ErrNoPhone) {
			BadRequest(c, "certificate has no phone number on record")
			return
		}
		Internal(c, "failed to build share link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"link": link})
}

// SendEmail 通过 SMTP 发送证书邮件，正文按类别措辞。
func (h *HistoryHandler) SendEmail(c *gin.Context) {
	cert, ok := h.loadCertificate(c)
	if !ok {
		return
	}

	logger := middleware.LoggerFromContext(c).With(
		slog.String("certificate_id", cert.ID),
	)

	err := h.mailer.SendCertificate(cert.RecipientEmail, cert.RecipientName, h.compositor.VerifyURL(cert.ID), cert.Category)
	if err != nil {
		if errors.Is(err, dispatch.ErrNoEmail) {
			BadRequest(c, "certificate has no email address on record")
			return
		}
		logger.Error("send certificate email failed", slog.Any("error", err))
		Internal(c, "failed to send email")
		return
	}

	logger.Info("certificate email sent")
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// DownloadLink 返回归档文档的限时下载链接。
func (h *HistoryHandler) DownloadLink(c *gin.Context) {
	cert, ok := h.loadCertificate(c)
	if !ok {
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), cert.FileKey, 15*time.Minute)
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate download link failed", slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

func (h *HistoryHandler) loadCertificate(c *gin.Context) (database.Certificate, bool) {
	id := c.Param("id")
	if id == "" {
		BadRequest(c, "missing certificate id")
		return database.Certificate{}, false
	}

	var cert database.Certificate
	if err := h.db.WithContext(c.Request.Context()).First(&cert, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "certificate not found")
			return database.Certificate{}, false
		}
		middleware.LoggerFromContext(c).Error("query certificate failed", slog.Any("error", err))
		Internal(c, "internal error")
		return database.Certificate{}, false
	}
	return cert, true
}
