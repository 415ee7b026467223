package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"LongScreenShot/capture"
)

type stillScreen struct{}

func (stillScreen) Screenshot() (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	return img, nil
}

func writePNG(t *testing.T, dir, name string, w, h int, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return p
}

func decodeFile(t *testing.T, p string) image.Image {
	t.Helper()
	img, err := readImage(p)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in      string
		want    capture.Region
		wantErr bool
	}{
		{in: "10,20,110,70", want: capture.Region{X: 10, Y: 20, Width: 100, Height: 50}},
		{in: "110, 70, 10, 20", want: capture.Region{X: 10, Y: 20, Width: 100, Height: 50}},
		{in: "-50,0,50,10", want: capture.Region{X: -50, Y: 0, Width: 100, Height: 10}},
		{in: "10,20,10,70", wantErr: true},
		{in: "1,2,3", wantErr: true},
		{in: "a,b,c,d", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseRegion(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseRegion(%q) err = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseRegion(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParsePlacement(t *testing.T) {
	file, pos, ok, err := parsePlacement(`C:\shots\a@b.png@10,-5`)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if file != `C:\shots\a@b.png` || pos != image.Pt(10, -5) {
		t.Errorf("got %q %v", file, pos)
	}

	file, _, ok, err = parsePlacement("plain.png")
	if err != nil || ok || file != "plain.png" {
		t.Errorf("plain: %q ok=%v err=%v", file, ok, err)
	}

	if _, _, _, err := parsePlacement("x.png@1"); err == nil {
		t.Error("want error for a single coordinate")
	}
}

func TestStitchCommand(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 40, 10, color.RGBA{R: 255, A: 255})
	b := writePNG(t, dir, "b.png", 30, 20, color.RGBA{G: 255, A: 255})
	out := filepath.Join(dir, "long")

	var stdout bytes.Buffer
	if err := runWithArgs([]string{"stitch", "-o", out, a, b}, stillScreen{}, &stdout); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(stdout.String()); got != out+".png" {
		t.Fatalf("printed %q", got)
	}
	img := decodeFile(t, out+".png")
	if got := img.Bounds().Size(); got != image.Pt(40, 30) {
		t.Fatalf("size = %v", got)
	}
	if r, g, _, _ := img.At(0, 15).RGBA(); r != 0 || g != 0xffff {
		t.Errorf("second frame pixel = %d,%d", r, g)
	}
	if r, g, b, _ := img.At(35, 15).RGBA(); r|g|b != 0 {
		t.Errorf("padding should be black")
	}
}

func TestStitchCommandMissingFile(t *testing.T) {
	dir := t.TempDir()
	err := runWithArgs([]string{"stitch", "-o", filepath.Join(dir, "x.png"), filepath.Join(dir, "nope.png")}, stillScreen{}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("want error")
	}
}

func TestArrangeCommand(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 20, 20, color.RGBA{R: 255, A: 255})
	b := writePNG(t, dir, "b.png", 20, 20, color.RGBA{B: 255, A: 255})
	out := filepath.Join(dir, "canvas.png")

	// scale 0.5 なので (5,5) は元の画素で (10,10) です。
	args := []string{"arrange", "-o", out, a + "@0,0", b + "@5,5"}
	if err := runWithArgs(args, stillScreen{}, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	img := decodeFile(t, out)
	if got := img.Bounds().Size(); got != image.Pt(30, 30) {
		t.Fatalf("size = %v", got)
	}
	if _, _, bl, _ := img.At(15, 15).RGBA(); bl != 0xffff {
		t.Errorf("overlap should show the later item")
	}
	if r, g, bl, _ := img.At(25, 5).RGBA(); r|g|bl != 0 {
		t.Errorf("uncovered area should be black")
	}
}

func TestArrangeCommandBadPlacement(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 4, 4, color.RGBA{A: 255})
	err := runWithArgs([]string{"arrange", "-o", filepath.Join(dir, "o.png"), a + "@x,1"}, stillScreen{}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("want error")
	}
}

func TestCaptureCommand(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "shot.png")
	args := []string{"capture", "--region", "10,10,60,40", "-o", out,
		"--max-frames", "1", "--settle", "0s", "--interval", "1ms"}

	var stdout bytes.Buffer
	if err := runWithArgs(args, stillScreen{}, &stdout); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(stdout.String()); got != out {
		t.Fatalf("printed %q", got)
	}
	img := decodeFile(t, out)
	if got := img.Bounds().Size(); got != image.Pt(50, 30) {
		t.Fatalf("size = %v", got)
	}
	if r, g, _, _ := img.At(0, 0).RGBA(); r>>8 != 10 || g>>8 != 10 {
		t.Errorf("origin pixel = %d,%d", r>>8, g>>8)
	}
}

func TestCaptureCommandRequiresRegion(t *testing.T) {
	err := runWithArgs([]string{"capture", "-o", "x.png"}, stillScreen{}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("want error")
	}
}
