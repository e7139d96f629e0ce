package certificate

import "testing"

func TestSuggestFont(t *testing.T) {
	cases := []struct {
		template string
		label    string
		want     string
	}{
		{"Diploma of Honor", "Recipient Name", "Playfair Display"},
		{"Diploma of Honor", "Paper Title", "Lora"},
		{"Appreciation 2026", "Venue", "Lora"},
		{"Modern Tech Startup", "Recipient Name", "Montserrat"},
		{"Tech Expo", "Date", "Montserrat"},
		{"Plain Certificate", "Recipient Name", "Playfair Display"},
		// QR 字段永远使用中性无衬线，与模板名无关。
		{"Diploma of Honor", QRLabel, "Arial"},
		{"Modern Startup", QRLabel, "Arial"},
		{"", QRLabel, "Arial"},
	}
	for _, c := range cases {
		if got := SuggestFont(c.template, c.label); got != c.want {
			t.Errorf("SuggestFont(%q, %q) = %q, want %q", c.template, c.label, got, c.want)
		}
	}
}

func TestRecipientNameAndCategory(t *testing.T) {
	var l FieldList
	l, name, _ := l.Add("Excellence Award", "Recipient Name")
	l, cat, _ := l.Add("Excellence Award", "Category")

	values := map[string]string{name.ID: "Jane Doe", cat.ID: "Innovation"}
	if got := RecipientName(l, values); got != "Jane Doe" {
		t.Fatalf("RecipientName = %q", got)
	}
	if got := Category(l, values); got != "Innovation" {
		t.Fatalf("Category = %q", got)
	}

	// 类别字段存在但取值缺失 → Default。
	if got := Category(l, map[string]string{name.ID: "Jane Doe"}); got != DefaultCategory {
		t.Fatalf("Category with missing value = %q, want %q", got, DefaultCategory)
	}

	// 完全没有匹配字段时的兜底。
	var empty FieldList
	if got := RecipientName(empty, nil); got != DefaultRecipient {
		t.Fatalf("RecipientName fallback = %q", got)
	}
	if got := Category(empty, nil); got != DefaultCategory {
		t.Fatalf("Category fallback = %q", got)
	}
}
