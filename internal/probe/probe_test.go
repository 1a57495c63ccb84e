package probe

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

type fakeProber struct {
	values map[Field]string
	errs   map[Field]error
	calls  []Field
}

func (f *fakeProber) Probe(_ context.Context, _ string, field Field) (string, error) {
	f.calls = append(f.calls, field)
	if err := f.errs[field]; err != nil {
		return "", err
	}
	return f.values[field], nil
}

func TestParseBitrate(t *testing.T) {
	tests := []struct {
		raw   string
		bps   int64
		known bool
	}{
		{"8000000", 8000000, true},
		{" 192000\n", 192000, true},
		{"1500000.75", 1500000, true},
		{"N/A", 0, false},
		{"n/a", 0, false},
		{"", 0, false},
		{"unknown", 0, false},
		{"0", 0, false},
		{"-5", 0, false},
		{"NaN", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			b := ParseBitrate(tt.raw)
			if b.Known() != tt.known || b.BPS() != tt.bps {
				t.Errorf("ParseBitrate(%q) = (%d, %v), want (%d, %v)", tt.raw, b.BPS(), b.Known(), tt.bps, tt.known)
			}
		})
	}
}

func TestBitrateString(t *testing.T) {
	if got := BitsPerSecond(192000).String(); got != "192000" {
		t.Errorf("String() = %q", got)
	}
	if got := Unknown.String(); got != "N/A" {
		t.Errorf("Unknown.String() = %q", got)
	}
}

func TestArgs(t *testing.T) {
	tests := []struct {
		field    Field
		selector string
		entry    string
	}{
		{VideoCodec, "v:0", "stream=codec_name"},
		{VideoBitrate, "v:0", "stream=bit_rate"},
		{FormatBitrate, "v:0", "format=bit_rate"},
		{AudioBitrate, "a:0", "stream=bit_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.field.String(), func(t *testing.T) {
			want := []string{
				"-v", "error",
				"-select_streams", tt.selector,
				"-show_entries", tt.entry,
				"-of", "default=nw=1:nk=1",
				"/videos/movie.avi",
			}
			if got := Args("/videos/movie.avi", tt.field); !reflect.DeepEqual(got, want) {
				t.Errorf("Args() = %v, want %v", got, want)
			}
		})
	}
}

func TestCodecLowercased(t *testing.T) {
	p := &fakeProber{values: map[Field]string{VideoCodec: "H264"}}
	codec, err := Codec(context.Background(), p, "movie.mkv")
	if err != nil || codec != "h264" {
		t.Errorf("Codec() = (%q, %v)", codec, err)
	}
}

func TestSourceBitrate(t *testing.T) {
	ctx := context.Background()

	t.Run("stream bitrate preferred", func(t *testing.T) {
		p := &fakeProber{values: map[Field]string{VideoBitrate: "8000000", FormatBitrate: "9000000"}}
		b, field, err := SourceBitrate(ctx, p, "movie.mp4")
		if err != nil || b.BPS() != 8000000 || field != VideoBitrate {
			t.Errorf("SourceBitrate() = (%v, %v, %v)", b, field, err)
		}
		if len(p.calls) != 1 {
			t.Errorf("format bitrate should not be probed, calls = %v", p.calls)
		}
	})

	t.Run("falls back to format bitrate", func(t *testing.T) {
		p := &fakeProber{values: map[Field]string{VideoBitrate: "N/A", FormatBitrate: "9000000"}}
		b, field, err := SourceBitrate(ctx, p, "movie.mkv")
		if err != nil || b.BPS() != 9000000 || field != FormatBitrate {
			t.Errorf("SourceBitrate() = (%v, %v, %v)", b, field, err)
		}
	})

	t.Run("both unknown", func(t *testing.T) {
		p := &fakeProber{values: map[Field]string{VideoBitrate: "N/A", FormatBitrate: "N/A"}}
		b, _, err := SourceBitrate(ctx, p, "movie.mkv")
		if err != nil || b.Known() {
			t.Errorf("SourceBitrate() = (%v, %v), want unknown", b, err)
		}
	})

	t.Run("probe error is returned", func(t *testing.T) {
		want := errors.New("boom")
		p := &fakeProber{errs: map[Field]error{VideoBitrate: want}}
		if _, _, err := SourceBitrate(ctx, p, "movie.mkv"); !errors.Is(err, want) {
			t.Errorf("error = %v, want %v", err, want)
		}
	})
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFFprobe_Probe(t *testing.T) {
	bin := writeScript(t, "echo\necho h264\n")
	p := NewFFprobe(bin)

	got, err := p.Probe(context.Background(), "/videos/movie.avi", VideoCodec)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if got != "h264" {
		t.Errorf("Probe() = %q, want h264", got)
	}
}

func TestFFprobe_ProbeFailure(t *testing.T) {
	bin := writeScript(t, "echo 'movie.avi: Invalid data found' >&2\nexit 1\n")
	p := NewFFprobe(bin)

	_, err := p.Probe(context.Background(), "/videos/movie.avi", VideoCodec)
	var probeErr *Error
	if !errors.As(err, &probeErr) {
		t.Fatalf("error = %v, want *probe.Error", err)
	}
	if probeErr.Output != "movie.avi: Invalid data found" {
		t.Errorf("Output = %q", probeErr.Output)
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Errorf("error should wrap *exec.ExitError, got %T", probeErr.Err)
	}
}

func TestFFprobe_MissingBinary(t *testing.T) {
	p := NewFFprobe(filepath.Join(t.TempDir(), "does-not-exist"))
	if _, err := p.Probe(context.Background(), "movie.avi", VideoCodec); err == nil {
		t.Error("expected an error for a missing binary")
	}
}

func TestNewFFprobeDefaults(t *testing.T) {
	if p := NewFFprobe(""); p.Binary != "ffprobe" {
		t.Errorf("Binary = %q, want ffprobe", p.Binary)
	}
}
