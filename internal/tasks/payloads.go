package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeCertificateGenerate = "certificate:generate"
	TypeBatchGenerate       = "certificate:batch"
)

// QueueCertificates 是证书渲染专用队列。
// 渲染一次占用一个无头浏览器实例，队列并发固定为 1，保证批内行与单次生成互不交叠。
const QueueCertificates = "certificates"

// CertificateGeneratePayload 描述单张证书生成所需的最小信息。
type CertificateGeneratePayload struct {
	TemplateID     uint              `json:"template_id"`
	Values         map[string]string `json:"values"` // fieldID → 取值
	RecipientEmail string            `json:"recipient_email,omitempty"`
	RecipientPhone string            `json:"recipient_phone,omitempty"`
	RequestedBy    uint              `json:"requested_by"`
	CorrelationID  string            `json:"correlation_id"`
}

// BatchGeneratePayload 描述一次批量生成：电子表格已上传到对象存储。
type BatchGeneratePayload struct {
	TemplateID     uint   `json:"template_id"`
	SpreadsheetKey string `json:"spreadsheet_key"`
	RequestedBy    uint   `json:"requested_by"`
	CorrelationID  string `json:"correlation_id"`
}

// NewCertificateGenerateTask 构造单张证书生成任务。
func NewCertificateGenerateTask(p CertificateGeneratePayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCertificateGenerate, payload, asynq.Queue(QueueCertificates)), nil
}

// NewBatchGenerateTask 构造批量生成任务。
func NewBatchGenerateTask(p BatchGeneratePayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeBatchGenerate, payload, asynq.Queue(QueueCertificates), asynq.MaxRetry(0)), nil
}
