package mediatypes

import (
	"path/filepath"
	"sort"
	"strings"
)

// Container extensions known to hevc-shrink.
const (
	ExtMP4 = ".mp4"
	ExtMKV = ".mkv"
	ExtMOV = ".mov"
	ExtWMV = ".wmv"
	ExtAVI = ".avi"
)

// ExtSet is an immutable set of normalized extensions.
type ExtSet struct {
	exts map[string]struct{}
}

// NewExtSet builds a set from extensions. Entries are normalized with
// [NormalizeExt]; empty entries are ignored.
func NewExtSet(exts ...string) ExtSet {
	set := ExtSet{exts: make(map[string]struct{}, len(exts))}
	for _, e := range exts {
		if n := NormalizeExt(e); n != "" {
			set.exts[n] = struct{}{}
		}
	}
	return set
}

// Has reports whether ext (any case, with or without dot) is in the set.
func (s ExtSet) Has(ext string) bool {
	n := NormalizeExt(ext)
	if n == "" {
		return false
	}
	_, ok := s.exts[n]
	return ok
}

// Len returns the number of extensions in the set.
func (s ExtSet) Len() int {
	return len(s.exts)
}

// List returns the extensions in sorted order.
func (s ExtSet) List() []string {
	out := make([]string, 0, len(s.exts))
	for e := range s.exts {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// String joins the sorted extensions with spaces.
func (s ExtSet) String() string {
	return strings.Join(s.List(), " ")
}

// NormalizeExt lower-cases ext and ensures a leading dot.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Ext returns the normalized extension of path.
func Ext(path string) string {
	return NormalizeExt(filepath.Ext(path))
}

// SplitExt splits path into stem and extension, keeping the extension's
// original case: "/a/Movie.AVI" -> ("/a/Movie", ".AVI").
func SplitExt(path string) (stem, ext string) {
	ext = filepath.Ext(path)
	return strings.TrimSuffix(path, ext), ext
}
