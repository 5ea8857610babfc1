package language

import "testing"

func TestFromCode(t *testing.T) {
	tests := []struct {
		code     string
		wantName string
		wantOK   bool
	}{
		{"en", "English", true},
		{"en-US", "English", true},
		{"PT_br", "Portuguese", true},
		{"zh", "Chinese", true},
		{"xx", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := FromCode(tt.code)
			if ok != tt.wantOK || got.Name != tt.wantName {
				t.Errorf("FromCode(%q) = %+v, %v; want %q, %v", tt.code, got, ok, tt.wantName, tt.wantOK)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		tag  string
		want bool
	}{
		{"en", true},
		{"en-US", true},
		{"en_gb", true},
		{"es-419", true},
		{"en-USA", false},
		{"en-1", false},
		{"en-U1", false},
		{"klingon", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValid(tt.tag); got != tt.want {
			t.Errorf("IsValid(%q) = %v, want %v", tt.tag, got, tt.want)
		}
	}
}

func TestCountry(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"en-US", "us"},
		{"pt_BR", "br"},
		{"en", ""},
		{"es-419", ""},
	}
	for _, tt := range tests {
		if got := Country(tt.tag); got != tt.want {
			t.Errorf("Country(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}

func TestLocales(t *testing.T) {
	list := Locales()
	if len(list) == 0 {
		t.Fatal("Locales() should not be empty")
	}
	seen := make(map[string]bool)
	for _, l := range list {
		if !IsValid(l.Tag) {
			t.Errorf("locale %q is not a valid tag", l.Tag)
		}
		if seen[l.Tag] {
			t.Errorf("duplicate locale %q", l.Tag)
		}
		seen[l.Tag] = true
	}

	// callers get a copy
	list[0].Tag = "changed"
	if Locales()[0].Tag == "changed" {
		t.Error("Locales() should return a copy")
	}
}
