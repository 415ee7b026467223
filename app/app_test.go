package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"LongScreenShot/arrange"
	"LongScreenShot/capture"
	"LongScreenShot/config"
	"LongScreenShot/detector"
	"LongScreenShot/output"
	"LongScreenShot/session"
	"LongScreenShot/stitch"
)

// fakeScreen は (0,0)-(400,300) の画面で、R=x, G=y の画像を返します。
type fakeScreen struct{ shots int32 }

func (s *fakeScreen) Screenshot() (*image.RGBA, error) {
	atomic.AddInt32(&s.shots, 1)
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 400; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	return img, nil
}

type fakeConcealer struct {
	mu         sync.Mutex
	hide, show int
	hidden     bool
}

func (f *fakeConcealer) Hide() { f.mu.Lock(); f.hide++; f.hidden = true; f.mu.Unlock() }
func (f *fakeConcealer) Show() { f.mu.Lock(); f.show++; f.hidden = false; f.mu.Unlock() }

func (f *fakeConcealer) counts() (int, int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hide, f.show, f.hidden
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Capture.SettleDelay = 0
	cfg.Detector.Interval = time.Millisecond
	return cfg
}

func savePicker(path string) output.Picker {
	return output.PickerFunc(func(string) (string, bool, error) { return path, true, nil })
}

var cancelPicker = output.PickerFunc(func(string) (string, bool, error) { return "", false, nil })

func TestNoSession(t *testing.T) {
	c := New(testConfig(), &fakeScreen{})
	if _, err := c.CaptureNow(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Errorf("CaptureNow err = %v", err)
	}
	if _, err := c.Undo(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Undo err = %v", err)
	}
	if err := c.StartAuto(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Errorf("StartAuto err = %v", err)
	}
	c.StopAuto()
	c.End()
}

func TestBeginRejectsEmptyRegion(t *testing.T) {
	c := New(testConfig(), &fakeScreen{})
	if _, err := c.Begin(capture.Region{Width: 0, Height: 10}); !errors.Is(err, capture.ErrCaptureFailed) {
		t.Fatalf("err = %v", err)
	}
}

func TestCaptureNowUsesCurrentGeometry(t *testing.T) {
	conc := &fakeConcealer{}
	c := New(testConfig(), &fakeScreen{}, WithConcealer(conc))
	box, err := c.Begin(capture.Region{X: 10, Y: 20, Width: 120, Height: 110})
	if err != nil {
		t.Fatal(err)
	}

	f, err := c.CaptureNow(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Image.RGBAAt(0, 0); got.R != 10 || got.G != 20 {
		t.Errorf("first capture origin = %v", got)
	}

	// 枠をドラッグしてから撮影する
	box.Press(image.Pt(50, 50))
	box.Motion(image.Pt(80, 60))
	box.Release()
	f, err = c.CaptureNow(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Image.RGBAAt(0, 0); got.R != 40 || got.G != 30 {
		t.Errorf("moved capture origin = %v, want (40,30)", got)
	}
	if f.Size() != image.Pt(120, 110) {
		t.Errorf("size = %v", f.Size())
	}
	if hide, show, _ := conc.counts(); hide != 2 || show != 2 {
		t.Errorf("hide=%d show=%d, want 2/2", hide, show)
	}
	if n := len(c.Frames()); n != 2 {
		t.Errorf("frames = %d", n)
	}
}

func TestUndoNotifies(t *testing.T) {
	var notices []Notice
	c := New(testConfig(), &fakeScreen{}, WithNotify(func(n Notice) { notices = append(notices, n) }))
	c.Begin(capture.Region{Width: 100, Height: 100})
	f1, _ := c.CaptureNow(context.Background())
	f2, _ := c.CaptureNow(context.Background())

	got, err := c.Undo()
	if err != nil || got.ID != f2.ID {
		t.Fatalf("Undo = %v, %v", got.ID, err)
	}
	if frames := c.Frames(); len(frames) != 1 || frames[0].ID != f1.ID {
		t.Fatalf("frames = %v", frames)
	}
	c.Undo()
	if _, err := c.Undo(); !errors.Is(err, session.ErrEmptyBuffer) {
		t.Errorf("Undo on empty err = %v", err)
	}
	last := notices[len(notices)-1]
	if last.Kind != FramesChanged || last.Frames != 0 {
		t.Errorf("last notice = %+v", last)
	}
}

func TestFinish(t *testing.T) {
	c := New(testConfig(), &fakeScreen{})
	c.Begin(capture.Region{Width: 100, Height: 100})

	if _, err := c.Finish(cancelPicker); !errors.Is(err, stitch.ErrEmptyInput) {
		t.Fatalf("Finish with no frames err = %v", err)
	}
	c.CaptureNow(context.Background())
	c.CaptureNow(context.Background())

	path, err := c.Finish(cancelPicker)
	if err != nil || path != "" {
		t.Fatalf("cancelled Finish = %q, %v", path, err)
	}
	if c.Session() == nil || len(c.Frames()) != 2 {
		t.Fatal("cancel should keep the session")
	}

	want := filepath.Join(t.TempDir(), "long.png")
	path, err = c.Finish(savePicker(want))
	if err != nil {
		t.Fatal(err)
	}
	if path != want {
		t.Errorf("path = %q", path)
	}
	if _, err := os.Stat(want); err != nil {
		t.Error(err)
	}
	if c.Session() != nil {
		t.Error("session should end after saving")
	}
}

func TestAutoCaptureHidesOverlayForRun(t *testing.T) {
	conc := &fakeConcealer{}
	stopped := make(chan Notice, 1)
	c := New(testConfig(), &fakeScreen{}, WithConcealer(conc), WithNotify(func(n Notice) {
		if n.Kind == AutoStopped {
			stopped <- n
		}
	}))
	c.Begin(capture.Region{Width: 100, Height: 100})

	if err := c.StartAuto(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.StartAuto(context.Background()); !errors.Is(err, session.ErrBusy) {
		t.Errorf("second StartAuto err = %v", err)
	}
	if _, _, hidden := conc.counts(); !hidden {
		t.Error("overlay should be hidden during auto capture")
	}
	// 自動キャプチャ中の手動撮影は枠を再表示しない
	if _, err := c.CaptureNow(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, _, hidden := conc.counts(); !hidden {
		t.Error("manual capture re-showed the overlay")
	}

	// 最初の自動フレーム（基準画像）が保持されるまで待つ
	waitFrames(t, c, 2)

	c.StopAuto()
	select {
	case n := <-stopped:
		if n.Reason != detector.Cancelled {
			t.Errorf("reason = %v", n.Reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("auto capture did not stop")
	}
	if _, _, hidden := conc.counts(); hidden {
		t.Error("overlay should be visible after auto capture")
	}
	// 同じ画面なので自動で保持されるのは最初の1枚だけ
	frames := c.Frames()
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	if frames[0].Source != session.Manual || frames[1].Source != session.Auto {
		t.Errorf("sources = %v, %v", frames[0].Source, frames[1].Source)
	}
}

// waitFrames はバッファが n 枚になるまで待ちます。
func waitFrames(t *testing.T, c *Controller, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(c.Frames()) < n {
		if time.Now().After(deadline) {
			t.Fatalf("frames = %d, want %d", len(c.Frames()), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestConcurrentStartAutoKeepsRunningDetector(t *testing.T) {
	conc := &fakeConcealer{}
	stopped := make(chan Notice, 1)
	c := New(testConfig(), &fakeScreen{}, WithConcealer(conc), WithNotify(func(n Notice) {
		if n.Kind == AutoStopped {
			stopped <- n
		}
	}))
	c.Begin(capture.Region{Width: 100, Height: 100})

	const callers = 8
	var wg sync.WaitGroup
	var started, busy int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := c.StartAuto(context.Background()); {
			case err == nil:
				atomic.AddInt32(&started, 1)
			case errors.Is(err, session.ErrBusy):
				atomic.AddInt32(&busy, 1)
			default:
				t.Errorf("StartAuto err = %v", err)
			}
		}()
	}
	wg.Wait()
	if started != 1 || busy != callers-1 {
		t.Fatalf("started = %d, busy = %d", started, busy)
	}
	if hide, show, hidden := conc.counts(); hide != 1 || show != 0 || !hidden {
		t.Errorf("hide = %d, show = %d, hidden = %v", hide, show, hidden)
	}

	c.StopAuto()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("StopAuto did not stop the running detector")
	}
	deadline := time.Now().Add(2 * time.Second)
	for c.AutoRunning() {
		if time.Now().After(deadline) {
			t.Fatal("auto capture still running")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestEndStopsAuto(t *testing.T) {
	c := New(testConfig(), &fakeScreen{})
	c.Begin(capture.Region{Width: 100, Height: 100})
	if err := c.StartAuto(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.End()
	if c.AutoRunning() || c.Session() != nil {
		t.Error("End should stop auto capture and drop the session")
	}
	c.End()
}

func TestStartAutoBadScrollKey(t *testing.T) {
	cfg := testConfig()
	cfg.Detector.ScrollKey = "Hyper+X"
	c := New(cfg, &fakeScreen{})
	c.Begin(capture.Region{Width: 100, Height: 100})
	if err := c.StartAuto(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
	if c.Session().AutoRunning() {
		t.Error("auto capture should not start")
	}
}

func TestCanvasFlow(t *testing.T) {
	c := New(testConfig(), &fakeScreen{})
	pickerCalled := false
	p := output.PickerFunc(func(string) (string, bool, error) { pickerCalled = true; return "", false, nil })
	if _, err := c.ExportCanvas(p); !errors.Is(err, arrange.ErrEmptyCanvas) {
		t.Fatalf("err = %v", err)
	}
	if pickerCalled {
		t.Error("empty canvas should not open the save dialog")
	}

	c.Begin(capture.Region{Width: 200, Height: 200})
	f, _ := c.CaptureNow(context.Background())
	if _, err := c.AddToCanvas(f.ID + 100); !errors.Is(err, ErrUnknownFrame) {
		t.Errorf("unknown frame err = %v", err)
	}
	id, err := c.AddToCanvas(f.ID)
	if err != nil {
		t.Fatal(err)
	}
	it, _ := c.Canvas().Item(id)
	if it.FrameID != f.ID || it.Pos != image.Pt(50, 50) {
		t.Errorf("item = %+v", it)
	}

	want := filepath.Join(t.TempDir(), "canvas.png")
	path, err := c.ExportCanvas(savePicker(want))
	if err != nil || path != want {
		t.Fatalf("ExportCanvas = %q, %v", path, err)
	}
	c.End()
	if c.Canvas().Len() != 1 {
		t.Error("canvas should outlive the session")
	}
}

func TestCopyAndExportFrames(t *testing.T) {
	var copied image.Image
	c := New(testConfig(), &fakeScreen{}, WithClipboard(func(img image.Image) error { copied = img; return nil }))
	c.Begin(capture.Region{Width: 100, Height: 100})
	if err := c.CopyStitched(); !errors.Is(err, stitch.ErrEmptyInput) {
		t.Fatalf("err = %v", err)
	}
	if _, _, err := c.ExportFrames(t.TempDir()); !errors.Is(err, stitch.ErrEmptyInput) {
		t.Fatalf("err = %v", err)
	}
	c.CaptureNow(context.Background())
	c.CaptureNow(context.Background())
	if err := c.CopyStitched(); err != nil {
		t.Fatal(err)
	}
	if copied == nil || copied.Bounds().Size() != image.Pt(100, 200) {
		t.Errorf("copied = %v", copied)
	}

	dir := t.TempDir()
	paths, pdf, err := c.ExportFrames(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 || pdf == "" {
		t.Errorf("paths = %v pdf = %q", paths, pdf)
	}
}

func TestSetAutoOptions(t *testing.T) {
	c := New(testConfig(), &fakeScreen{})
	if err := c.SetAutoOptions(AutoOptions{ScrollKey: "Ctrl+Boom+X"}); err == nil {
		t.Error("expected error for bad key")
	}
	if err := c.SetAutoOptions(AutoOptions{MaxFrames: -1}); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("err = %v", err)
	}
	want := AutoOptions{ScrollKey: "PageDown", FocusWindow: "メモ帳", MaxFrames: 3, IdleStop: 4}
	if err := c.SetAutoOptions(want); err != nil {
		t.Fatal(err)
	}
	if got := c.AutoOptions(); got != want {
		t.Errorf("AutoOptions = %+v", got)
	}
}

func TestAutoCaptureMaxFrames(t *testing.T) {
	c := New(testConfig(), &fakeScreen{})
	c.SetAutoOptions(AutoOptions{MaxFrames: 1})
	stopped := make(chan Notice, 1)
	c.notify = func(n Notice) {
		if n.Kind == AutoStopped {
			stopped <- n
		}
	}
	c.Begin(capture.Region{Width: 100, Height: 100})
	if err := c.StartAuto(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case n := <-stopped:
		if n.Reason != detector.MaxFrames || n.Frames != 1 {
			t.Errorf("notice = %+v", n)
		}
	case <-time.After(2 * time.Second):
		c.StopAuto()
		t.Fatal("auto capture did not stop at max frames")
	}
}
