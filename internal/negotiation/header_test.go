package negotiation

import (
	"testing"
)

func TestParseContextHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    Preferences
		wantErr bool
	}{
		{
			name:   "tokens",
			header: `currency=KWD, lang=ar`,
			want:   Preferences{Currency: "KWD", Lang: "ar"},
		},
		{
			name:   "strings",
			header: `currency="usd", lang="en-US"`,
			want:   Preferences{Currency: "USD", Lang: "en-US"},
		},
		{
			name:   "app with platform",
			header: `app="2.4.0";platform=ios`,
			want:   Preferences{App: "2.4.0", Platform: "ios"},
		},
		{
			name:   "unknown members ignored",
			header: `theme=dark, lang=ar`,
			want:   Preferences{Lang: "ar"},
		},
		{
			name:    "empty header",
			header:  "   ",
			wantErr: true,
		},
		{
			name:    "not a dictionary",
			header:  `"just a string"`,
			wantErr: true,
		},
		{
			name:    "numeric currency",
			header:  `currency=12`,
			wantErr: true,
		},
		{
			name:    "inner list",
			header:  `lang=(ar en)`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseContextHeader(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseContextHeader() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseContextHeader() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFormatContextHeader_RoundTrip(t *testing.T) {
	in := Preferences{Currency: "KWD", Lang: "ar", App: "3.0.1", Platform: "android"}

	header, err := FormatContextHeader(in)
	if err != nil {
		t.Fatalf("FormatContextHeader() error = %v", err)
	}

	got, err := ParseContextHeader(header)
	if err != nil {
		t.Fatalf("ParseContextHeader(%q) error = %v", header, err)
	}
	if got != in {
		t.Errorf("round trip = %+v, want %+v (header %q)", got, in, header)
	}
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		min, app string
		wantErr  bool
	}{
		{"", "1.0.0", false},
		{"2.0.0", "", false},
		{"2.0.0", "2.0.0", false},
		{"2.0.0", "2.1.0", false},
		{"2.0.0", "v10.0.0", false},
		{"2.0.0", "1.9.9", true},
		{"v2.1.0", "2.0.5", true},
		{"2.0.0", "banana", false},
	}

	for _, tt := range tests {
		t.Run(tt.min+"/"+tt.app, func(t *testing.T) {
			err := CheckVersion(tt.min, tt.app)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckVersion(%q, %q) = %v, wantErr %v", tt.min, tt.app, err, tt.wantErr)
			}
		})
	}
}
