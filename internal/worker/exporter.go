package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"certengine/internal/database"
	"certengine/internal/render"
)

// ObjectStore 是导出与批量链路依赖的对象存储操作子集。
// *storage.Client 实现该接口，测试中用内存替身。
type ObjectStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	FetchObject(ctx context.Context, objectKey string) (io.ReadCloser, error)
	PublicURL(objectKey string) string
}

// PDF 页面尺寸（pt）。1200×848px 设计画布按 96dpi 换算，
// 4 倍采集的位图嵌入时缩回设计尺寸，只提高打印分辨率。
const (
	pdfPageWidthPt  = 900
	pdfPageHeightPt = 636
)

// Exporter 把栅格化位图封装为单页 PDF，归档到对象存储并落库。
type Exporter struct {
	db      *gorm.DB
	storage ObjectStore
}

func NewExporter(db *gorm.DB, storage ObjectStore) *Exporter {
	return &Exporter{db: db, storage: storage}
}

// Export 归档一张证书。先上传文档，成功后才写生成记录，
// 保证每条记录指向的文件一定存在。
func (e *Exporter) Export(ctx context.Context, job render.Job, pngData []byte) (*database.Certificate, error) {
	pdfBytes, err := buildPDF(pngData)
	if err != nil {
		return nil, err
	}

	objectKey := fmt.Sprintf("generated-certificates/%d/%s.pdf", job.TemplateID, job.VerificationID)
	reader := bytes.NewReader(pdfBytes)
	if _, err := e.storage.UploadFile(ctx, objectKey, reader, int64(len(pdfBytes)), "application/pdf"); err != nil {
		return nil, fmt.Errorf("upload certificate pdf: %w", err)
	}

	metadata, err := json.Marshal(job.Values)
	if err != nil {
		return nil, fmt.Errorf("marshal certificate metadata: %w", err)
	}

	cert := database.Certificate{
		ID:             job.VerificationID,
		RecipientName:  job.RecipientName(),
		RecipientEmail: job.Contact.Email,
		RecipientPhone: job.Contact.Phone,
		TemplateID:     job.TemplateID,
		Category:       job.Category(),
		FileURL:        e.storage.PublicURL(objectKey),
		FileKey:        objectKey,
		Metadata:       metadata,
		CreatedAt:      time.Now(),
	}
	if err := e.db.WithContext(ctx).Create(&cert).Error; err != nil {
		return nil, fmt.Errorf("create certificate record: %w", err)
	}
	return &cert, nil
}

func buildPDF(pngData []byte) ([]byte, error) {
	doc := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pdfPageWidthPt, Ht: pdfPageHeightPt},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader("certificate", opts, bytes.NewReader(pngData))
	doc.ImageOptions("certificate", 0, 0, pdfPageWidthPt, pdfPageHeightPt, false, opts, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
