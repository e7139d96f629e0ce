package worker

// 统一的 WebSocket 消息协议（通过 Redis Pub/Sub 转发给前端）。
// 注意：这里的字段名与前端解析保持一致。
type GenerationNotifyMessage struct {
	Status        string `json:"status"`
	CertificateID string `json:"certificate_id,omitempty"`
	TemplateID    uint   `json:"template_id"`
	CorrelationID string `json:"correlation_id"`
	ErrorCode     int    `json:"error_code"`
	ErrorMessage  string `json:"error_message"`

	// 批量进度，仅批量任务填写。
	Processed int `json:"processed,omitempty"`
	Total     int `json:"total,omitempty"`
	Succeeded int `json:"succeeded,omitempty"`
	Failed    int `json:"failed,omitempty"`
}
