package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"certengine/internal/certificate"
	"certengine/internal/database"
)

var testDBSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:apitest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.User{}, &database.Template{}, &database.Certificate{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedTemplate(t *testing.T, db *gorm.DB, name string, fields certificate.FieldList) database.Template {
	t.Helper()
	data, err := fields.MarshalJSONB()
	if err != nil {
		t.Fatalf("marshal fields: %v", err)
	}
	tpl := database.Template{Name: name, Fields: data}
	if err := db.Create(&tpl).Error; err != nil {
		t.Fatalf("seed template: %v", err)
	}
	return tpl
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func templateContext(w *httptest.ResponseRecorder, req *http.Request, params gin.Params) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = params
	c.Set("userID", uint(1))
	return c
}

func loadFields(t *testing.T, db *gorm.DB, templateID uint) certificate.FieldList {
	t.Helper()
	var tpl database.Template
	if err := db.First(&tpl, templateID).Error; err != nil {
		t.Fatalf("reload template: %v", err)
	}
	fields, err := certificate.ParseFieldList(tpl.Fields)
	if err != nil {
		t.Fatalf("parse fields: %v", err)
	}
	return fields
}

func TestAddFieldRejectsDuplicateLabel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewTemplateHandler(db, nil, nil)

	tpl := seedTemplate(t, db, "Award Night", nil)
	params := gin.Params{{Key: "id", Value: "1"}}

	w := httptest.NewRecorder()
	c := templateContext(w, jsonRequest(t, http.MethodPost, "/v1/templates/1/fields", gin.H{"label": "Recipient Name"}), params)
	h.AddField(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("first add: expected 201 got %d body=%s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	c = templateContext(w, jsonRequest(t, http.MethodPost, "/v1/templates/1/fields", gin.H{"label": "Recipient Name"}), params)
	h.AddField(c)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate add: expected 409 got %d body=%s", w.Code, w.Body.String())
	}

	if fields := loadFields(t, db, tpl.ID); len(fields) != 1 {
		t.Errorf("duplicate add must not grow the list, got %d fields", len(fields))
	}
}

func TestAddFieldQRDefaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewTemplateHandler(db, nil, nil)
	seedTemplate(t, db, "Award Night", nil)

	w := httptest.NewRecorder()
	c := templateContext(w, jsonRequest(t, http.MethodPost, "/v1/templates/1/fields", gin.H{"label": certificate.QRLabel}), gin.Params{{Key: "id", Value: "1"}})
	h.AddField(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}

	var field certificate.Field
	if err := json.Unmarshal(w.Body.Bytes(), &field); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if field.Kind != certificate.KindQR || field.FontSize != 80 || field.FontFamily != "Arial" {
		t.Errorf("unexpected qr field defaults: %+v", field)
	}
}

func TestPatchFieldClampsValues(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewTemplateHandler(db, nil, nil)

	tpl := seedTemplate(t, db, "Award Night", certificate.FieldList{
		{ID: "f1", Kind: certificate.KindText, Label: "Recipient Name", X: 40, Y: 45, FontSize: 22},
	})

	x := 180.0
	size := 2
	patch := gin.H{"x": x, "fontSize": size}

	w := httptest.NewRecorder()
	c := templateContext(w, jsonRequest(t, http.MethodPatch, "/v1/templates/1/fields/f1", patch),
		gin.Params{{Key: "id", Value: "1"}, {Key: "fieldID", Value: "f1"}})
	h.PatchField(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	fields := loadFields(t, db, tpl.ID)
	field, ok := fields.ByID("f1")
	if !ok {
		t.Fatalf("field missing after patch")
	}
	if field.X != 100 {
		t.Errorf("x must clamp to 100, got %v", field.X)
	}
	if field.FontSize != certificate.MinFontSize {
		t.Errorf("font size must clamp to %d, got %d", certificate.MinFontSize, field.FontSize)
	}
}

func TestPatchFieldNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewTemplateHandler(db, nil, nil)
	seedTemplate(t, db, "Award Night", nil)

	w := httptest.NewRecorder()
	c := templateContext(w, jsonRequest(t, http.MethodPatch, "/v1/templates/1/fields/nope", gin.H{"x": 10.0}),
		gin.Params{{Key: "id", Value: "1"}, {Key: "fieldID", Value: "nope"}})
	h.PatchField(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestSaveFieldsReplacesLayout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewTemplateHandler(db, nil, nil)

	tpl := seedTemplate(t, db, "Award Night", certificate.FieldList{
		{ID: "old", Kind: certificate.KindText, Label: "Date", X: 10, Y: 10, FontSize: 14},
	})

	payload := gin.H{"fields": certificate.FieldList{
		{ID: "f1", Kind: certificate.KindText, Label: "Recipient Name", X: 120, Y: -5, FontSize: 4},
	}}

	w := httptest.NewRecorder()
	c := templateContext(w, jsonRequest(t, http.MethodPut, "/v1/templates/1/fields", payload), gin.Params{{Key: "id", Value: "1"}})
	h.SaveFields(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	fields := loadFields(t, db, tpl.ID)
	if len(fields) != 1 || fields[0].ID != "f1" {
		t.Fatalf("save must replace the whole layout, got %+v", fields)
	}
	if fields[0].X != 100 || fields[0].Y != 0 || fields[0].FontSize != certificate.MinFontSize {
		t.Errorf("save must clamp incoming values, got %+v", fields[0])
	}
}

func TestSaveFieldsRejectsInvalidKind(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewTemplateHandler(db, nil, nil)
	seedTemplate(t, db, "Award Night", nil)

	payload := gin.H{"fields": []gin.H{{"id": "f1", "kind": "sticker", "label": "Oops"}}}

	w := httptest.NewRecorder()
	c := templateContext(w, jsonRequest(t, http.MethodPut, "/v1/templates/1/fields", payload), gin.Params{{Key: "id", Value: "1"}})
	h.SaveFields(c)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestGetTemplateNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewTemplateHandler(db, nil, nil)

	w := httptest.NewRecorder()
	c := templateContext(w, httptest.NewRequest(http.MethodGet, "/v1/templates/99", nil), gin.Params{{Key: "id", Value: "99"}})
	h.GetTemplate(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestMoveFieldSnapsToCenterline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewTemplateHandler(db, nil, nil)

	tpl := seedTemplate(t, db, "Award Night", certificate.FieldList{
		{ID: "f1", Kind: certificate.KindText, Label: "Recipient Name", X: 40, Y: 45, FontSize: 22},
	})

	// 40% 于 1200px 画布为 480px，指针右移 138px 到 51.5%，落入中轴吸附半径。
	payload := gin.H{
		"canvasWidth":  1200.0,
		"canvasHeight": 848.0,
		"startX":       480.0,
		"startY":       100.0,
		"pointerX":     618.0,
		"pointerY":     100.0,
	}

	w := httptest.NewRecorder()
	c := templateContext(w, jsonRequest(t, http.MethodPost, "/v1/templates/1/fields/f1/move", payload),
		gin.Params{{Key: "id", Value: "1"}, {Key: "fieldID", Value: "f1"}})
	h.MoveField(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	fields := loadFields(t, db, tpl.ID)
	field, _ := fields.ByID("f1")
	if field.X != 50 {
		t.Errorf("51.5%% must snap to the centerline, got %v", field.X)
	}
	if field.Y != 45 {
		t.Errorf("y must stay on its grid value, got %v", field.Y)
	}
}

func TestResizeFieldMapsPixelsToPoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewTemplateHandler(db, nil, nil)

	tpl := seedTemplate(t, db, "Award Night", certificate.FieldList{
		{ID: "f1", Kind: certificate.KindText, Label: "Recipient Name", FontSize: 22},
	})

	payload := gin.H{"startY": 100.0, "pointerY": 120.0}

	w := httptest.NewRecorder()
	c := templateContext(w, jsonRequest(t, http.MethodPost, "/v1/templates/1/fields/f1/resize", payload),
		gin.Params{{Key: "id", Value: "1"}, {Key: "fieldID", Value: "f1"}})
	h.ResizeField(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	fields := loadFields(t, db, tpl.ID)
	field, _ := fields.ByID("f1")
	if field.FontSize != 32 {
		t.Errorf("20px drag must add 10pt, got %d", field.FontSize)
	}
}

func TestMoveFieldUnknownField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewTemplateHandler(db, nil, nil)
	seedTemplate(t, db, "Award Night", nil)

	payload := gin.H{
		"canvasWidth":  1200.0,
		"canvasHeight": 848.0,
		"startX":       480.0,
		"startY":       100.0,
		"pointerX":     618.0,
		"pointerY":     100.0,
	}

	w := httptest.NewRecorder()
	c := templateContext(w, jsonRequest(t, http.MethodPost, "/v1/templates/1/fields/nope/move", payload),
		gin.Params{{Key: "id", Value: "1"}, {Key: "fieldID", Value: "nope"}})
	h.MoveField(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestRemoveFieldClearsFromLayout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	h := NewTemplateHandler(db, nil, nil)

	tpl := seedTemplate(t, db, "Award Night", certificate.FieldList{
		{ID: "f1", Kind: certificate.KindText, Label: "Recipient Name"},
		{ID: "f2", Kind: certificate.KindText, Label: "Category"},
	})

	w := httptest.NewRecorder()
	c := templateContext(w, httptest.NewRequest(http.MethodDelete, "/v1/templates/1/fields/f1", nil),
		gin.Params{{Key: "id", Value: "1"}, {Key: "fieldID", Value: "f1"}})
	h.RemoveField(c)
	// 直接调用 handler 时状态头由引擎延迟写出，这里手动落盘。
	c.Writer.WriteHeaderNow()
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d body=%s", w.Code, w.Body.String())
	}

	fields := loadFields(t, db, tpl.ID)
	if len(fields) != 1 || fields[0].ID != "f2" {
		t.Errorf("expected only f2 to remain, got %+v", fields)
	}
}
