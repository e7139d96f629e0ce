package dispatch

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+62 812-3456-7890", "6281234567890"},
		{"(021) 555 0199", "0215550199"},
		{"6281234567890", "6281234567890"},
		{"abc", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizePhone(c.in); got != c.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestWhatsAppShareLink(t *testing.T) {
	link, err := WhatsAppShareLink("+62 812-3456-7890", "Jane Doe", "Keynote Speaker", "https://summit.example.com/verify/abc-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(link, "https://wa.me/6281234567890?text=") {
		t.Errorf("unexpected link prefix: %s", link)
	}

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("link does not parse: %v", err)
	}
	text := u.Query().Get("text")
	want := "Hello Jane Doe, your certificate for Keynote Speaker is ready! You can verify and download it here: https://summit.example.com/verify/abc-123"
	if text != want {
		t.Errorf("message = %q, want %q", text, want)
	}
}

func TestWhatsAppShareLinkNoPhone(t *testing.T) {
	_, err := WhatsAppShareLink("   ", "Jane", "Default", "https://example.com/verify/x")
	if !errors.Is(err, ErrNoPhone) {
		t.Errorf("expected ErrNoPhone, got %v", err)
	}
}
