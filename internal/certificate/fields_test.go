package certificate

import (
	"reflect"
	"testing"
)

func TestAddRefusesDuplicateLabel(t *testing.T) {
	var l FieldList
	l, _, err := l.Add("Excellence Award", "Recipient Name")
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	before := len(l)

	l2, _, err := l.Add("Excellence Award", "Recipient Name")
	if err != ErrDuplicateLabel {
		t.Fatalf("expected ErrDuplicateLabel, got %v", err)
	}
	if len(l2) != before {
		t.Fatalf("field list changed on refused add: %d -> %d", before, len(l2))
	}
}

func TestAddQRDefaults(t *testing.T) {
	var l FieldList
	l, f, err := l.Add("Excellence Award", QRLabel)
	if err != nil {
		t.Fatalf("add qr: %v", err)
	}
	if f.Kind != KindQR {
		t.Fatalf("kind = %q, want %q", f.Kind, KindQR)
	}
	if f.FontSize != 80 {
		t.Fatalf("fontSize = %d, want 80", f.FontSize)
	}
	if f.FontFamily != "Arial" {
		t.Fatalf("fontFamily = %q, want Arial", f.FontFamily)
	}
	if !l.HasLabel(QRLabel) {
		t.Fatal("qr label missing after add")
	}
}

func TestAddAssetRejectsNonImageKind(t *testing.T) {
	var l FieldList
	if _, _, err := l.AddAsset("Any", KindText, "k", "u"); err != ErrInvalidKind {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
	if _, _, err := l.AddAsset("Any", KindQR, "k", "u"); err != ErrInvalidKind {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestAddAssetDefaults(t *testing.T) {
	var l FieldList
	_, sig, err := l.AddAsset("Tech Summit", KindSignature, "assets/sig.png", "https://cdn/assets/sig.png")
	if err != nil {
		t.Fatalf("add signature: %v", err)
	}
	if sig.FontSize != 60 {
		t.Fatalf("signature height = %d, want 60", sig.FontSize)
	}
	if sig.X != 50 || sig.Y != 50 {
		t.Fatalf("signature anchor = (%v,%v), want (50,50)", sig.X, sig.Y)
	}

	_, logo, err := l.AddAsset("Tech Summit", KindLogo, "assets/logo.png", "https://cdn/assets/logo.png")
	if err != nil {
		t.Fatalf("add logo: %v", err)
	}
	if logo.FontSize != 80 {
		t.Fatalf("logo height = %d, want 80", logo.FontSize)
	}
	if logo.AssetKey != "assets/logo.png" {
		t.Fatalf("asset key = %q", logo.AssetKey)
	}
}

func TestUpdateClampsGeometry(t *testing.T) {
	var l FieldList
	l, f, _ := l.Add("t", "Recipient Name")

	x, y := 180.0, -40.0
	size := 2
	if err := l.Update(f.ID, Patch{X: &x, Y: &y, FontSize: &size}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := l.ByID(f.ID)
	if got.X != 100 {
		t.Fatalf("x = %v, want 100", got.X)
	}
	if got.Y != 0 {
		t.Fatalf("y = %v, want 0", got.Y)
	}
	if got.FontSize != MinFontSize {
		t.Fatalf("fontSize = %d, want %d", got.FontSize, MinFontSize)
	}
}

func TestRemove(t *testing.T) {
	var l FieldList
	l, a, _ := l.Add("t", "Recipient Name")
	l, b, _ := l.Add("t", "Category")

	l, err := l.Remove(a.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(l) != 1 || l[0].ID != b.ID {
		t.Fatalf("unexpected list after remove: %+v", l)
	}
	if _, err := l.Remove("missing"); err != ErrFieldNotFound {
		t.Fatalf("expected ErrFieldNotFound, got %v", err)
	}
}

func TestFieldListRoundTrip(t *testing.T) {
	var l FieldList
	l, _, _ = l.Add("Excellence Award", "Recipient Name")
	l, _, _ = l.Add("Excellence Award", "Category")
	l, _, _ = l.Add("Excellence Award", QRLabel)
	l, _, _ = l.AddAsset("Excellence Award", KindSignature, "assets/s.png", "https://cdn/s.png")

	data, err := l.MarshalJSONB()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := ParseFieldList(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(l, got) {
		t.Fatalf("round trip mismatch:\n have %+v\n want %+v", got, l)
	}
}

func TestParseFieldListEmpty(t *testing.T) {
	got, err := ParseFieldList(nil)
	if err != nil {
		t.Fatalf("parse nil: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %+v", got)
	}
}
