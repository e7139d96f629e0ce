package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"certengine/internal/certificate"
	"certengine/internal/database"
	"certengine/internal/errcode"
	"certengine/internal/metrics"
	"certengine/internal/render"
	"certengine/internal/tasks"
)

// BatchRecord 是批量生成中单行的结果。
type BatchRecord struct {
	Row           int    `json:"row"`
	RecipientName string `json:"recipient_name"`
	CertificateID string `json:"certificate_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

// BatchResult 汇总一次批量生成。
type BatchResult struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Records   []BatchRecord `json:"records"`
}

// BatchTaskHandler 消费批量生成任务：下载电子表格并逐行生成。
// 行间串行，单行失败记录后继续，整批只在表格本身不可用时失败。
type BatchTaskHandler struct {
	gen    *GenerateTaskHandler
	logger *slog.Logger
}

func NewBatchTaskHandler(gen *GenerateTaskHandler, logger *slog.Logger) *BatchTaskHandler {
	return &BatchTaskHandler{gen: gen, logger: logger}
}

// ProcessTask 实现 asynq.Handler。
func (h *BatchTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.BatchGeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal batch payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("template_id", int(payload.TemplateID)),
	)
	log.Info("Starting batch certificate generation...",
		slog.String("spreadsheet_key", payload.SpreadsheetKey))

	defer func() {
		if retErr == nil {
			return
		}
		notify := GenerationNotifyMessage{
			Status:        "error",
			TemplateID:    payload.TemplateID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.gen.publishNotify(ctx, payload.RequestedBy, notify); err != nil {
			log.Error("publish batch error notification failed", slog.Any("error", err))
		}
	}()

	rows, err := h.loadRows(ctx, payload.SpreadsheetKey)
	if err != nil {
		log.Error("load batch spreadsheet failed", slog.Any("error", err))
		return err
	}

	var tpl database.Template
	if err := h.gen.db.WithContext(ctx).First(&tpl, payload.TemplateID).Error; err != nil {
		log.Error("query template failed", slog.Any("error", err))
		return err
	}
	fields, err := certificate.ParseFieldList(tpl.Fields)
	if err != nil {
		return fmt.Errorf("parse template fields: %w", err)
	}

	result := h.run(ctx, tpl, fields, rows, payload)

	notify := GenerationNotifyMessage{
		Status:        "completed",
		TemplateID:    payload.TemplateID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
		Processed:     len(rows),
		Total:         len(rows),
		Succeeded:     result.Succeeded,
		Failed:        result.Failed,
	}
	if result.Failed > 0 {
		notify.ErrorCode = errcode.PartialFailure
		notify.ErrorMessage = fmt.Sprintf("%d of %d rows failed", result.Failed, len(rows))
	}
	if err := h.gen.publishNotify(ctx, payload.RequestedBy, notify); err != nil {
		log.Error("publish batch completion notification failed", slog.Any("error", err))
		return err
	}

	log.Info("Batch generation finished.",
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
	)
	return nil
}

func (h *BatchTaskHandler) loadRows(ctx context.Context, spreadsheetKey string) ([]SpreadsheetRow, error) {
	obj, err := h.gen.storage.FetchObject(ctx, spreadsheetKey)
	if err != nil {
		return nil, fmt.Errorf("fetch spreadsheet %q: %w", spreadsheetKey, err)
	}
	defer func() {
		_ = obj.Close()
	}()
	return ParseSpreadsheet(obj)
}

// run 逐行生成。行号从 2 起算（表头占第 1 行），便于对照原表定位失败行。
func (h *BatchTaskHandler) run(
	ctx context.Context,
	tpl database.Template,
	fields certificate.FieldList,
	rows []SpreadsheetRow,
	payload tasks.BatchGeneratePayload,
) BatchResult {
	var result BatchResult

	for i, row := range rows {
		values, contact := MapRow(fields, row)
		job := render.Job{
			TemplateID:     tpl.ID,
			TemplateName:   tpl.Name,
			BackgroundURL:  tpl.ImageURL,
			Fields:         fields,
			Values:         values,
			VerificationID: uuid.NewString(),
			Contact:        contact,
			Mode:           render.ModeCapture,
		}
		record := BatchRecord{
			Row:           i + 2,
			RecipientName: job.RecipientName(),
		}

		cert, err := h.gen.generate(ctx, job)
		if err != nil {
			record.Error = err.Error()
			result.Failed++
			h.logger.Warn("batch row failed, continuing",
				slog.Int("row", record.Row),
				slog.String("recipient", record.RecipientName),
				slog.Any("error", err),
			)
		} else {
			record.CertificateID = cert.ID
			result.Succeeded++
			metrics.CountGenerated("batch")
		}
		result.Records = append(result.Records, record)

		progress := GenerationNotifyMessage{
			Status:        "progress",
			TemplateID:    payload.TemplateID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.OK,
			Processed:     i + 1,
			Total:         len(rows),
			Succeeded:     result.Succeeded,
			Failed:        result.Failed,
		}
		if err := h.gen.publishNotify(ctx, payload.RequestedBy, progress); err != nil {
			h.logger.Warn("publish batch progress failed", slog.Any("error", err))
		}
	}

	return result
}

// MapRow 把一行表格数据映射到字段取值与联系方式。
// 表头与字段标签按大小写和空白不敏感匹配，联系方式识别常见别名列。
func MapRow(fields certificate.FieldList, row SpreadsheetRow) (map[string]string, render.Contact) {
	byHeader := make(map[string]string, len(row))
	var contact render.Contact
	for header, value := range row {
		if isEmailHeader(header) {
			contact.Email = value
			continue
		}
		if isPhoneHeader(header) {
			contact.Phone = value
			continue
		}
		byHeader[normalizeHeader(header)] = value
	}

	values := make(map[string]string, len(fields))
	for _, f := range fields {
		if f.Kind != certificate.KindText {
			continue
		}
		if v, ok := byHeader[normalizeHeader(f.Label)]; ok && v != "" {
			values[f.ID] = v
		}
	}
	return values, contact
}
