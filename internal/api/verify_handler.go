package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"certengine/internal/api/middleware"
	"certengine/internal/database"
)

// VerifyHandler 服务公开的证书校验端点，无需认证。
type VerifyHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewVerifyHandler 返回 VerifyHandler 实例。
func NewVerifyHandler(db *gorm.DB, logger *slog.Logger) *VerifyHandler {
	return &VerifyHandler{db: db, logger: logger}
}

// Verify 按校验 ID 查询生成记录。
// 兼容历史二维码里带 "VERIFY-" 前缀的载荷。
func (h *VerifyHandler) Verify(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	id = strings.TrimPrefix(id, "VERIFY-")
	if id == "" {
		BadRequest(c, "missing verification id")
		return
	}

	var cert database.Certificate
	if err := h.db.WithContext(c.Request.Context()).First(&cert, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"valid": false,
				"error": "certificate not found",
			})
			return
		}
		middleware.LoggerFromContext(c).Error("verify lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":         true,
		"id":            cert.ID,
		"recipientName": cert.RecipientName,
		"category":      cert.Category,
		"issuedAt":      cert.CreatedAt,
		"fileUrl":       cert.FileURL,
	})
}
