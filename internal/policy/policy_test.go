package policy

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

func mustDefault(t *testing.T) *Policy {
	t.Helper()
	p, err := New(DefaultOptions())
	if err != nil {
		t.Fatalf("New(DefaultOptions()) error: %v", err)
	}
	return p
}

func TestDefaultPolicy(t *testing.T) {
	p := mustDefault(t)

	if p.Accel() != AccelNVIDIA {
		t.Errorf("Accel() = %v, want nvidia", p.Accel())
	}
	if p.Encoder() != "hevc_nvenc" {
		t.Errorf("Encoder() = %q", p.Encoder())
	}
	if p.TargetCodec() != "hevc" {
		t.Errorf("TargetCodec() = %q", p.TargetCodec())
	}
	if p.ThresholdBytes() != 4*1024*1024*1024 {
		t.Errorf("ThresholdBytes() = %d", p.ThresholdBytes())
	}
	if p.AudioQuality() != 2 {
		t.Errorf("AudioQuality() = %d", p.AudioQuality())
	}
	if !p.VerifyOutput() {
		t.Error("VerifyOutput() should default to true")
	}
	want := []string{"h264", "vc1", "wmv2"}
	if got := p.LegacyCodecs(); !reflect.DeepEqual(got, want) {
		t.Errorf("LegacyCodecs() = %v, want %v", got, want)
	}
}

func TestScaleFactorsInRange(t *testing.T) {
	p := mustDefault(t)
	for _, codec := range p.LegacyCodecs() {
		f, ok := p.ScaleFactor(codec)
		if !ok {
			t.Fatalf("ScaleFactor(%q) missing", codec)
		}
		if f <= 0 || f > 1 {
			t.Errorf("factor for %s = %v, want (0, 1]", codec, f)
		}
	}
}

func TestTargetBitrate(t *testing.T) {
	opts := DefaultOptions()
	opts.ScaleFactors["mpeg4"] = 0.7
	p, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		codec  string
		source int64
		want   int64
		ok     bool
	}{
		{"h264 half", "h264", 8_000_000, 4_000_000, true},
		{"odd source floors", "h264", 8_000_001, 4_000_000, true},
		{"case insensitive", "H264", 1000, 500, true},
		{"non-half factor floors", "mpeg4", 1_000_003, 700_002, true},
		{"unknown codec", "av1", 8_000_000, 0, false},
		{"target codec", "hevc", 8_000_000, 0, false},
		{"zero source", "h264", 0, 0, false},
		{"negative source", "h264", -5, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.TargetBitrate(tt.codec, tt.source)
			if got != tt.want || ok != tt.ok {
				t.Errorf("TargetBitrate(%q, %d) = (%d, %v), want (%d, %v)", tt.codec, tt.source, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestTargetBitrateDeterministic(t *testing.T) {
	p := mustDefault(t)
	for _, b := range []int64{1, 2, 3, 999, 1_234_567, 50_000_000} {
		f, _ := p.ScaleFactor("vc1")
		want := int64(math.Floor(float64(b) * f))
		for i := 0; i < 3; i++ {
			got, ok := p.TargetBitrate("vc1", b)
			if !ok || got != want {
				t.Fatalf("TargetBitrate(vc1, %d) = (%d, %v), want %d", b, got, ok, want)
			}
		}
		if want > b {
			t.Errorf("target %d exceeds source %d", want, b)
		}
	}
}

func TestIsTargetCodec(t *testing.T) {
	p := mustDefault(t)
	if !p.IsTargetCodec("hevc") || !p.IsTargetCodec(" HEVC ") {
		t.Error("hevc should be the target codec")
	}
	if p.IsTargetCodec("h264") {
		t.Error("h264 should not be the target codec")
	}
}

func TestContainers(t *testing.T) {
	p := mustDefault(t)

	tests := []struct {
		ext        string
		supported  bool
		acceptable bool
		outExt     string
		legacy     bool
	}{
		{".mp4", true, true, ".mp4", false},
		{".MKV", true, true, ".MKV", false},
		{".mov", true, true, ".mov", false},
		{".wmv", true, false, ".mp4", true},
		{".avi", true, false, ".mp4", true},
		{".flv", false, false, ".mp4", false},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := p.SupportsInput(tt.ext); got != tt.supported {
				t.Errorf("SupportsInput = %v, want %v", got, tt.supported)
			}
			if got := p.IsAcceptableContainer(tt.ext); got != tt.acceptable {
				t.Errorf("IsAcceptableContainer = %v, want %v", got, tt.acceptable)
			}
			if got := p.OutputExt(tt.ext); got != tt.outExt {
				t.Errorf("OutputExt = %q, want %q", got, tt.outExt)
			}
			if got := p.NeedsAudioReencode(tt.ext); got != tt.legacy {
				t.Errorf("NeedsAudioReencode = %v, want %v", got, tt.legacy)
			}
		})
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr error
	}{
		{"invalid accel", func(o *Options) { o.Accel = accelCount }, ErrInvalidAccel},
		{"negative threshold", func(o *Options) { o.MinSizeGB = -1 }, ErrInvalidThreshold},
		{"NaN threshold", func(o *Options) { o.MinSizeGB = math.NaN() }, ErrInvalidThreshold},
		{"factor above one", func(o *Options) { o.ScaleFactors["h264"] = 1.5 }, ErrInvalidScaleFactor},
		{"zero factor", func(o *Options) { o.ScaleFactors["h264"] = 0 }, ErrInvalidScaleFactor},
		{"no inputs", func(o *Options) { o.InputExts = nil }, ErrNoInputExts},
		{"target in table", func(o *Options) { o.ScaleFactors["hevc"] = 0.9 }, nil},
		{"empty target", func(o *Options) { o.TargetCodec = "" }, nil},
		{"preferred not acceptable", func(o *Options) { o.PreferredExt = ".avi" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			_, err := New(opts)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewCopiesTables(t *testing.T) {
	opts := DefaultOptions()
	p, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}

	opts.ScaleFactors["h264"] = 0.1
	opts.ScaleFactors["mpeg2video"] = 0.5

	if f, _ := p.ScaleFactor("h264"); f != 0.5 {
		t.Errorf("policy changed after options mutation: h264=%v", f)
	}
	if _, ok := p.ScaleFactor("mpeg2video"); ok {
		t.Error("policy gained a codec after options mutation")
	}
}

func TestAudioQualityDefaulted(t *testing.T) {
	opts := DefaultOptions()
	opts.AudioQuality = 0
	p, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	if p.AudioQuality() != DefaultAudioQuality {
		t.Errorf("AudioQuality() = %d, want %d", p.AudioQuality(), DefaultAudioQuality)
	}
}

func TestPolicyString(t *testing.T) {
	s := mustDefault(t).String()
	for _, want := range []string{"accel=nvidia", "encoder=hevc_nvenc", "h264=0.5", "preferred=.mp4"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
