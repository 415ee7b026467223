package output

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sample(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	return img
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"a.png", PNG, false},
		{"a.PNG", PNG, false},
		{"a", PNG, false},
		{"a.jpg", JPEG, false},
		{"a.jpeg", JPEG, false},
		{"dir.v2/a.pdf", PDF, false},
		{"a.bmp", 0, true},
	}
	for _, tt := range tests {
		got, err := FormatFor(tt.path)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("FormatFor(%q) err = %v, want ErrUnsupportedFormat", tt.path, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("FormatFor(%q) = %v, %v want %v", tt.path, got, err, tt.want)
		}
	}
}

func TestExportCancelledWritesNothing(t *testing.T) {
	dir := t.TempDir()
	called := false
	picker := PickerFunc(func(name string) (string, bool, error) {
		called = true
		return "", false, nil
	})
	path, err := Export(sample(4, 4), picker, "x.png")
	if err != nil || path != "" {
		t.Fatalf("Export = %q, %v want \"\", nil", path, err)
	}
	if !called {
		t.Error("picker not called")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("dir has %d entries", len(entries))
	}
}

func TestExportPickerError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Export(sample(1, 1), PickerFunc(func(string) (string, bool, error) { return "", false, boom }), "")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestExportPNGRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := filepath.Join(dir, "long")
	var gotName string
	picker := PickerFunc(func(name string) (string, bool, error) {
		gotName = name
		return want, true, nil
	})
	img := sample(30, 20)
	path, err := Export(img, picker, "default.png")
	if err != nil {
		t.Fatal(err)
	}
	if gotName != "default.png" {
		t.Errorf("default name = %q", gotName)
	}
	if path != want+".png" {
		t.Errorf("path = %q, want .png appended", path)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if dec.Bounds() != img.Bounds() {
		t.Fatalf("bounds = %v", dec.Bounds())
	}
	r, g, _, _ := dec.At(29, 19).RGBA()
	if r>>8 != 29 || g>>8 != 19 {
		t.Errorf("pixel = %d,%d", r>>8, g>>8)
	}
}

func TestSaveUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bmp")
	if _, err := Save(path, sample(1, 1)); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file should not be created")
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, "テスト", sample(96, 192), sample(50, 10)); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("not a pdf: %q", buf.Bytes()[:8])
	}
	if err := WritePDF(&buf, ""); err == nil {
		t.Error("expected error for no images")
	}
}

func TestPixelsToMm(t *testing.T) {
	tests := []struct {
		px   int
		want float64
	}{
		{0, 0},
		{48, 12.7},
		{96, 25.4},
		{960, 254},
	}
	for _, tt := range tests {
		if got := pixelsToMm(tt.px); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("pixelsToMm(%d) = %v, want %v", tt.px, got, tt.want)
		}
	}
}

func TestSaveFramesAndPDF(t *testing.T) {
	dir := t.TempDir()
	imgs := []image.Image{sample(10, 10), sample(10, 12), sample(8, 10)}
	paths, pdfPath, err := ExportFrames(dir, "run", imgs)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"frame_00001.png", "frame_00002.png", "frame_00003.png"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v", paths)
	}
	for i, p := range paths {
		if filepath.Base(p) != want[i] {
			t.Errorf("path %d = %s, want %s", i, p, want[i])
		}
	}
	if filepath.Base(pdfPath) != "run.pdf" {
		t.Errorf("pdf = %s", pdfPath)
	}
	if st, err := os.Stat(pdfPath); err != nil || st.Size() == 0 {
		t.Errorf("pdf not written: %v", err)
	}
}

func TestSaveFramesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	paths, err := SaveFrames(dir, []image.Image{sample(1, 1)})
	if err == nil || len(paths) != 0 {
		t.Fatalf("SaveFrames = %v, %v", paths, err)
	}
}

func TestDefaultName(t *testing.T) {
	ts := time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC)
	if got := DefaultName(ts); got != "longshot_2024-03-05_07-08-09.png" {
		t.Errorf("DefaultName = %q", got)
	}
}
