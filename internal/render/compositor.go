package render

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

// pendingQRPayload 是校验 ID 尚不存在时（预览）二维码的占位载荷。
const pendingQRPayload = "PENDING"

// Compositor 把模板与字段取值合成为 1200×848 的渲染页。
// 同一份合成逻辑服务于交互式预览与离屏采集，保证所见即所得。
type Compositor struct {
	verifyBaseURL string
	qrServiceURL  string
	tmpl          *template.Template
}

// NewCompositor 构造合成器。
func NewCompositor(verifyBaseURL, qrServiceURL string) (*Compositor, error) {
	tmpl, err := template.New("certificate").Parse(certificateTemplateString)
	if err != nil {
		return nil, fmt.Errorf("parse certificate template: %w", err)
	}
	return &Compositor{
		verifyBaseURL: strings.TrimRight(verifyBaseURL, "/"),
		qrServiceURL:  strings.TrimRight(qrServiceURL, "/"),
		tmpl:          tmpl,
	}, nil
}

// VerifyURL 返回校验 ID 对应的落地页地址，即二维码载荷。
func (c *Compositor) VerifyURL(verificationID string) string {
	if verificationID == "" {
		verificationID = pendingQRPayload
	}
	return fmt.Sprintf("%s/verify/%s", c.verifyBaseURL, verificationID)
}

// qrImageURL 构造无状态二维码图片服务的请求地址。
func (c *Compositor) qrImageURL(payload string) string {
	q := url.Values{}
	q.Set("size", "300x300")
	q.Set("data", payload)
	return fmt.Sprintf("%s?%s", c.qrServiceURL, q.Encode())
}

type fieldView struct {
	X          float64
	Y          float64
	FontPx     float64
	FontWeight string
	Color      string
	FontFamily string
	Text       string
	ImageURL   template.URL
	QRURL      template.URL
}

type pageView struct {
	Width         int
	Height        int
	BackgroundURL template.URL
	Fields        []fieldView
}

// BuildHTML 按数组顺序合成字段（后者绘制在上层），返回完整页面。
func (c *Compositor) BuildHTML(job Job) (string, error) {
	page := pageView{
		Width:         CanvasWidth,
		Height:        CanvasHeight,
		BackgroundURL: template.URL(job.BackgroundURL),
	}

	for _, f := range job.Fields {
		view := fieldView{
			X:          f.X,
			Y:          f.Y,
			FontPx:     float64(f.FontSize) * pxPerPt,
			FontWeight: f.FontWeight,
			Color:      f.Color,
			FontFamily: f.FontFamily,
		}
		switch {
		case f.Kind.IsImage():
			view.ImageURL = template.URL(f.AssetURL)
		case f.Kind.IsQR():
			view.QRURL = template.URL(c.qrImageURL(c.VerifyURL(job.VerificationID)))
		default:
			view.Text = c.textValue(job, f.ID, f.Label)
		}
		page.Fields = append(page.Fields, view)
	}

	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("execute certificate template: %w", err)
	}
	return buf.String(), nil
}

func (c *Compositor) textValue(job Job, fieldID, label string) string {
	if v := job.Values[fieldID]; v != "" {
		return v
	}
	if job.Mode == ModeCapture {
		return fmt.Sprintf("{%s}", label)
	}
	return label
}
