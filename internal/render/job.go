package render

import "certengine/internal/certificate"

// 画布契约：离屏合成缓冲恒为 1200×848 逻辑像素，
// 位图采集倍率仅放大分辨率，最终文档尺寸换算回设计画布。
const (
	CanvasWidth  = 1200
	CanvasHeight = 848
	CaptureScale = 4
	// 画布坐标系下 1pt 字号对应 1.25px。
	pxPerPt = 1.25
)

// Mode 区分预览与采集两种渲染目标。
type Mode int

const (
	// ModePreview 缺值时以字段标签占位。
	ModePreview Mode = iota
	// ModeCapture 缺值时以 {Label} 括号记号占位，让缺数据可见而不是悄悄留白。
	ModeCapture
)

// Contact 是随生成记录归档的联系方式。
type Contact struct {
	Email string
	Phone string
}

// Job 是一次渲染所需的全部输入，作为值对象贯穿合成与导出链路。
// 校验 ID 与字段取值都在 Job 内，不存在共享的进程级缓冲或当前 ID。
type Job struct {
	TemplateID     uint
	TemplateName   string
	BackgroundURL  string
	Fields         certificate.FieldList
	Values         map[string]string // fieldID → 取值
	VerificationID string            // 为空表示预览，二维码载荷使用占位
	Contact        Contact
	Mode           Mode
}

// RecipientName 返回按标签启发式定位的收件人姓名。
func (j Job) RecipientName() string {
	return certificate.RecipientName(j.Fields, j.Values)
}

// Category 返回按标签启发式定位的类别。
func (j Job) Category() string {
	return certificate.Category(j.Fields, j.Values)
}
