package i18n

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", English},
		{"ar", Arabic},
		{"ar-KW,ar;q=0.9,en;q=0.8", Arabic},
		{"en-US,en;q=0.9", English},
		{"fr-FR", English},
		{"not a tag !!", English},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := Match(tt.header); got != tt.want {
				t.Errorf("Match(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestT(t *testing.T) {
	if got := T(Arabic, LabelFree, ""); got != "مجاني" {
		t.Errorf("T(ar, free) = %q", got)
	}
	if got := T(English, LabelFree, ""); got != "FREE" {
		t.Errorf("T(en, free) = %q", got)
	}
	if got := T("de", LabelFree, ""); got != "FREE" {
		t.Errorf("unsupported lang should fall back to English, got %q", got)
	}
	if got := T(Arabic, "no_such_key", "fallback"); got != "fallback" {
		t.Errorf("unknown key = %q, want fallback", got)
	}
}

func TestIsRTL(t *testing.T) {
	if !IsRTL(Arabic) {
		t.Error("Arabic should be RTL")
	}
	if IsRTL(English) {
		t.Error("English should not be RTL")
	}
}
