package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"certengine/internal/api/middleware"
	"certengine/internal/certificate"
	"certengine/internal/database"
	"certengine/internal/editor"
	"certengine/internal/storage"
)

// TemplateHandler 负责证书模板的增删改查与字段编辑。
type TemplateHandler struct {
	db      *gorm.DB
	storage *storage.Client
	logger  *slog.Logger
}

// NewTemplateHandler 返回 TemplateHandler 实例。
func NewTemplateHandler(db *gorm.DB, storageClient *storage.Client, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{db: db, storage: storageClient, logger: logger}
}

type templateSummary struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

type templateDetail struct {
	ID       uint                  `json:"id"`
	Name     string                `json:"name"`
	ImageURL string                `json:"imageUrl"`
	Fields   certificate.FieldList `json:"fields"`
}

// CreateTemplate 创建模板。背景图已通过资产接口上传，这里只登记元数据。
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required,max=255"`
		ImageKey string `json:"imageKey"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	logger := middleware.LoggerFromContext(c)

	emptyFields, err := certificate.FieldList{}.MarshalJSONB()
	if err != nil {
		logger.Error("marshal empty field list failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	tpl := database.Template{
		Name:   req.Name,
		Fields: emptyFields,
	}
	if req.ImageKey != "" {
		tpl.ImageKey = req.ImageKey
		tpl.ImageURL = h.storage.PublicURL(req.ImageKey)
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&tpl).Error; err != nil {
		logger.Error("create template failed", slog.Any("error", err))
		Internal(c, "failed to create template")
		return
	}

	logger.Info("template created", slog.Uint64("template_id", uint64(tpl.ID)))
	c.JSON(http.StatusCreated, templateSummary{ID: tpl.ID, Name: tpl.Name, ImageURL: tpl.ImageURL})
}

// ListTemplates 返回全部模板摘要，按创建时间倒序。
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	var templates []database.Template
	if err := h.db.WithContext(c.Request.Context()).
		Order("created_at DESC").
		Find(&templates).Error; err != nil {
		middleware.LoggerFromContext(c).Error("list templates failed", slog.Any("error", err))
		Internal(c, "failed to list templates")
		return
	}

	items := make([]templateSummary, 0, len(templates))
	for _, tpl := range templates {
		items = append(items, templateSummary{ID: tpl.ID, Name: tpl.Name, ImageURL: tpl.ImageURL})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetTemplate 返回模板详情（含字段布局）。
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	tpl, fields, ok := h.loadTemplate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, templateDetail{
		ID:       tpl.ID,
		Name:     tpl.Name,
		ImageURL: tpl.ImageURL,
		Fields:   fields,
	})
}

// SaveFields 全量替换模板的字段布局（last writer wins）。
func (h *TemplateHandler) SaveFields(c *gin.Context) {
	tpl, _, ok := h.loadTemplate(c)
	if !ok {
		return
	}

	var req struct {
		Fields certificate.FieldList `json:"fields"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	for i := range req.Fields {
		if !req.Fields[i].Kind.Valid() {
			BadRequest(c, fmt.Sprintf("field %q has invalid kind %q", req.Fields[i].ID, req.Fields[i].Kind))
			return
		}
		req.Fields[i].X = certificate.ClampPercent(req.Fields[i].X)
		req.Fields[i].Y = certificate.ClampPercent(req.Fields[i].Y)
		req.Fields[i].FontSize = certificate.ClampFontSize(req.Fields[i].FontSize)
	}

	if !h.persistFields(c, tpl, req.Fields) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": req.Fields})
}

// DeleteTemplate 删除模板。历史生成记录与已归档文件保持不动。
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	tpl, _, ok := h.loadTemplate(c)
	if !ok {
		return
	}

	logger := middleware.LoggerFromContext(c)
	if err := h.db.WithContext(c.Request.Context()).Delete(&tpl).Error; err != nil {
		logger.Error("delete template failed", slog.Any("error", err))
		Internal(c, "failed to delete template")
		return
	}

	if tpl.ImageKey != "" {
		if err := h.storage.DeleteObject(c.Request.Context(), tpl.ImageKey); err != nil {
			logger.Warn("delete template background failed", slog.Any("error", err))
		}
	}

	logger.Info("template deleted", slog.Uint64("template_id", uint64(tpl.ID)))
	c.Status(http.StatusNoContent)
}

// AddField 按标签新增文本或二维码字段，标签重复返回 409。
func (h *TemplateHandler) AddField(c *gin.Context) {
	tpl, fields, ok := h.loadTemplate(c)
	if !ok {
		return
	}

	var req struct {
		Label string `json:"label" binding:"required,max=128"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	updated, field, err := fields.Add(tpl.Name, req.Label)
	if err != nil {
		if errors.Is(err, certificate.ErrDuplicateLabel) {
			Conflict(c, "field label already exists")
			return
		}
		Internal(c, "failed to add field")
		return
	}

	if !h.persistFields(c, tpl, updated) {
		return
	}
	c.JSON(http.StatusCreated, field)
}

// AddAssetField 新增签名或 Logo 字段，资产需已上传。
func (h *TemplateHandler) AddAssetField(c *gin.Context) {
	tpl, fields, ok := h.loadTemplate(c)
	if !ok {
		return
	}

	var req struct {
		Kind     string `json:"kind" binding:"required"`
		AssetKey string `json:"assetKey" binding:"required,max=512"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	assetURL := h.storage.PublicURL(req.AssetKey)
	updated, field, err := fields.AddAsset(tpl.Name, certificate.FieldKind(req.Kind), req.AssetKey, assetURL)
	if err != nil {
		if errors.Is(err, certificate.ErrInvalidKind) {
			BadRequest(c, "kind must be signature or logo")
			return
		}
		Internal(c, "failed to add asset field")
		return
	}

	if !h.persistFields(c, tpl, updated) {
		return
	}
	c.JSON(http.StatusCreated, field)
}

// PatchField 更新单个字段的位置或样式。
func (h *TemplateHandler) PatchField(c *gin.Context) {
	tpl, fields, ok := h.loadTemplate(c)
	if !ok {
		return
	}

	var patch certificate.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, err.Error())
		return
	}

	fieldID := c.Param("fieldID")
	if err := fields.Update(fieldID, patch); err != nil {
		if errors.Is(err, certificate.ErrFieldNotFound) {
			NotFound(c, "field not found")
			return
		}
		Internal(c, "failed to update field")
		return
	}

	if !h.persistFields(c, tpl, fields) {
		return
	}

	field, _ := fields.ByID(fieldID)
	c.JSON(http.StatusOK, field)
}

// MoveField 结算一次拖拽：按画布尺寸换算指针增量，吸附后落库。
// 吸附在服务端做，前端画布只负责回显。
func (h *TemplateHandler) MoveField(c *gin.Context) {
	tpl, fields, ok := h.loadTemplate(c)
	if !ok {
		return
	}

	var req struct {
		CanvasWidth  float64 `json:"canvasWidth" binding:"required,gt=0"`
		CanvasHeight float64 `json:"canvasHeight" binding:"required,gt=0"`
		StartX       float64 `json:"startX"`
		StartY       float64 `json:"startY"`
		PointerX     float64 `json:"pointerX"`
		PointerY     float64 `json:"pointerY"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	fieldID := c.Param("fieldID")
	canvas := editor.Canvas{Width: req.CanvasWidth, Height: req.CanvasHeight}
	sess := editor.NewSession(tpl.Name, fields)
	if !sess.PointerDown(canvas, fieldID, req.StartX, req.StartY) {
		NotFound(c, "field not found")
		return
	}
	sess.PointerMove(req.PointerX, req.PointerY)
	sess.PointerUp()

	if !h.persistFields(c, tpl, sess.Fields) {
		return
	}

	field, _ := sess.Fields.ByID(fieldID)
	c.JSON(http.StatusOK, field)
}

// ResizeField 结算一次缩放手柄拖动：垂直增量按 2px/pt 映射到字号。
func (h *TemplateHandler) ResizeField(c *gin.Context) {
	tpl, fields, ok := h.loadTemplate(c)
	if !ok {
		return
	}

	var req struct {
		StartY   float64 `json:"startY"`
		PointerY float64 `json:"pointerY"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	fieldID := c.Param("fieldID")
	sess := editor.NewSession(tpl.Name, fields)
	if !sess.ResizeDown(fieldID, req.StartY) {
		NotFound(c, "field not found")
		return
	}
	sess.ResizeMove(req.PointerY)
	sess.ResizeUp()

	if !h.persistFields(c, tpl, sess.Fields) {
		return
	}

	field, _ := sess.Fields.ByID(fieldID)
	c.JSON(http.StatusOK, field)
}

// RemoveField 删除单个字段。
func (h *TemplateHandler) RemoveField(c *gin.Context) {
	tpl, fields, ok := h.loadTemplate(c)
	if !ok {
		return
	}

	updated, err := fields.Remove(c.Param("fieldID"))
	if err != nil {
		if errors.Is(err, certificate.ErrFieldNotFound) {
			NotFound(c, "field not found")
			return
		}
		Internal(c, "failed to remove field")
		return
	}

	if !h.persistFields(c, tpl, updated) {
		return
	}
	c.Status(http.StatusNoContent)
}

// loadTemplate 解析路径参数并加载模板及其字段布局。
// 出错时已写好响应，调用方直接返回即可。
func (h *TemplateHandler) loadTemplate(c *gin.Context) (database.Template, certificate.FieldList, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid template id")
		return database.Template{}, nil, false
	}

	var tpl database.Template
	if err := h.db.WithContext(c.Request.Context()).First(&tpl, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "template not found")
			return database.Template{}, nil, false
		}
		middleware.LoggerFromContext(c).Error("query template failed", slog.Any("error", err))
		Internal(c, "internal error")
		return database.Template{}, nil, false
	}

	fields, err := certificate.ParseFieldList(tpl.Fields)
	if err != nil {
		middleware.LoggerFromContext(c).Error("parse template fields failed", slog.Any("error", err))
		Internal(c, "internal error")
		return database.Template{}, nil, false
	}
	return tpl, fields, true
}

func (h *TemplateHandler) persistFields(c *gin.Context, tpl database.Template, fields certificate.FieldList) bool {
	data, err := fields.MarshalJSONB()
	if err != nil {
		middleware.LoggerFromContext(c).Error("marshal field list failed", slog.Any("error", err))
		Internal(c, "internal error")
		return false
	}
	if err := h.db.WithContext(c.Request.Context()).
		Model(&tpl).
		Update("fields", data).Error; err != nil {
		middleware.LoggerFromContext(c).Error("persist field list failed", slog.Any("error", err))
		Internal(c, "failed to save fields")
		return false
	}
	return true
}
