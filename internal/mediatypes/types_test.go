package mediatypes

import (
	"reflect"
	"testing"
)

func TestNormalizeExt(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{".mp4", ".mp4"},
		{".MP4", ".mp4"},
		{"mkv", ".mkv"},
		{" .Wmv ", ".wmv"},
		{"", ""},
		{".", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeExt(tt.input); got != tt.expected {
				t.Errorf("NormalizeExt(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExtSet(t *testing.T) {
	set := NewExtSet(".mp4", "MKV", "", ".mov")

	if set.Len() != 3 {
		t.Errorf("Len() = %d, want 3", set.Len())
	}

	for _, ext := range []string{".mp4", ".MP4", "mkv", ".Mov"} {
		if !set.Has(ext) {
			t.Errorf("Has(%q) = false, want true", ext)
		}
	}
	for _, ext := range []string{".avi", "", "."} {
		if set.Has(ext) {
			t.Errorf("Has(%q) = true, want false", ext)
		}
	}

	want := []string{".mkv", ".mov", ".mp4"}
	if got := set.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
	if got := set.String(); got != ".mkv .mov .mp4" {
		t.Errorf("String() = %q", got)
	}
}

func TestExtAndSplitExt(t *testing.T) {
	if got := Ext("/videos/Holiday.WMV"); got != ".wmv" {
		t.Errorf("Ext() = %q, want .wmv", got)
	}
	if got := Ext("/videos/noext"); got != "" {
		t.Errorf("Ext() = %q, want empty", got)
	}

	stem, ext := SplitExt("/videos/Holiday.2019.AVI")
	if stem != "/videos/Holiday.2019" || ext != ".AVI" {
		t.Errorf("SplitExt() = (%q, %q)", stem, ext)
	}
}
