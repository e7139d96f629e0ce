package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/minio/minio-go/v7"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"certengine/internal/certificate"
	"certengine/internal/database"
	"certengine/internal/render"
)

type fakeObjectStore struct {
	objects    map[string][]byte
	failUpload bool
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (f *fakeObjectStore) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) (*minio.UploadInfo, error) {
	if f.failUpload {
		return nil, errors.New("upload rejected")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	f.objects[objectName] = data
	return &minio.UploadInfo{Key: objectName, Size: int64(len(data))}, nil
}

func (f *fakeObjectStore) FetchObject(_ context.Context, objectKey string) (io.ReadCloser, error) {
	data, ok := f.objects[objectKey]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjectStore) PublicURL(objectKey string) string {
	return "http://minio.local/certificates/" + objectKey
}

var testDBSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:workertest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.Template{}, &database.Certificate{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 240, G: 240, B: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func testJob() render.Job {
	return render.Job{
		TemplateID:   7,
		TemplateName: "Summit Award",
		Fields: certificate.FieldList{
			{ID: "f1", Kind: certificate.KindText, Label: "Recipient Name"},
			{ID: "f2", Kind: certificate.KindText, Label: "Category"},
		},
		Values: map[string]string{
			"f1": "Jane Doe",
			"f2": "Keynote Speaker",
		},
		VerificationID: "11111111-2222-3333-4444-555555555555",
		Contact:        render.Contact{Email: "jane@example.com", Phone: "628123456"},
		Mode:           render.ModeCapture,
	}
}

func TestExporterArchivesCertificate(t *testing.T) {
	db := newTestDB(t)
	store := newFakeObjectStore()
	exporter := NewExporter(db, store)

	cert, err := exporter.Export(context.Background(), testJob(), testPNG(t))
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if cert.ID != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("certificate id should be the verification id, got %q", cert.ID)
	}
	if cert.RecipientName != "Jane Doe" || cert.Category != "Keynote Speaker" {
		t.Errorf("label roles not applied: %+v", cert)
	}
	if !strings.HasPrefix(cert.FileKey, "generated-certificates/7/") || !strings.HasSuffix(cert.FileKey, ".pdf") {
		t.Errorf("unexpected object key %q", cert.FileKey)
	}
	if cert.FileURL != store.PublicURL(cert.FileKey) {
		t.Errorf("file url must point at the stored object, got %q", cert.FileURL)
	}

	pdfData, ok := store.objects[cert.FileKey]
	if !ok {
		t.Fatalf("pdf was not uploaded")
	}
	if !bytes.HasPrefix(pdfData, []byte("%PDF")) {
		t.Errorf("uploaded object is not a pdf document")
	}

	var stored database.Certificate
	if err := db.First(&stored, "id = ?", cert.ID).Error; err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if stored.RecipientEmail != "jane@example.com" {
		t.Errorf("contact not archived: %+v", stored)
	}
}

func TestExporterUploadFailureLeavesNoRecord(t *testing.T) {
	db := newTestDB(t)
	store := newFakeObjectStore()
	store.failUpload = true
	exporter := NewExporter(db, store)

	if _, err := exporter.Export(context.Background(), testJob(), testPNG(t)); err == nil {
		t.Fatalf("expected upload error")
	}

	var count int64
	if err := db.Model(&database.Certificate{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("failed upload must not leave a certificate record, found %d", count)
	}
}
