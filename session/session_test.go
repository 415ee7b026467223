package session

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"

	"LongScreenShot/capture"
)

func frame(w, h int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

func TestUndoIsLIFO(t *testing.T) {
	s := New(capture.Region{Width: 10, Height: 10})
	a, b := frame(1, 1), frame(2, 2)
	fa, _ := s.Append(a)
	fb, _ := s.Append(b)

	got, err := s.Undo()
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != fb.ID || got.Image != b {
		t.Errorf("Undo removed frame %d, want %d", got.ID, fb.ID)
	}
	frames := s.Frames()
	if len(frames) != 1 || frames[0].ID != fa.ID || frames[0].Image != a {
		t.Fatalf("buffer after undo = %+v, want [A]", frames)
	}
}

func TestUndoEmpty(t *testing.T) {
	s := New(capture.Region{})
	if _, err := s.Undo(); !errors.Is(err, ErrEmptyBuffer) {
		t.Fatalf("err = %v, want ErrEmptyBuffer", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestFramesSnapshotIsIndependent(t *testing.T) {
	s := New(capture.Region{})
	s.Append(frame(1, 1))
	snap := s.Frames()
	s.Append(frame(1, 1))
	s.Clear()
	if len(snap) != 1 {
		t.Errorf("snapshot changed length to %d", len(snap))
	}
	if s.Len() != 0 {
		t.Errorf("Len after Clear = %d", s.Len())
	}
}

func TestIDsAreStableAcrossUndo(t *testing.T) {
	s := New(capture.Region{})
	f1, _ := s.Append(frame(1, 1))
	f2, _ := s.Append(frame(1, 1))
	s.Undo()
	f3, _ := s.Append(frame(1, 1))
	if f3.ID == f2.ID || f3.ID == f1.ID {
		t.Errorf("ID %d reused", f3.ID)
	}
	if _, ok := s.Lookup(f2.ID); ok {
		t.Error("undone frame still found")
	}
	if f, ok := s.Lookup(f1.ID); !ok || f.ID != f1.ID {
		t.Error("Lookup failed for kept frame")
	}
	imgs := s.Images()
	if len(imgs) != 2 {
		t.Errorf("Images len = %d", len(imgs))
	}
}

func TestProduceSerializesProducers(t *testing.T) {
	s := New(capture.Region{})
	var active, maxActive int32
	shoot := func(context.Context) (*image.RGBA, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		defer atomic.AddInt32(&active, -1)
		return frame(1, 1), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			if _, _, err := s.Produce(context.Background(), src, shoot); err != nil {
				t.Error(err)
			}
		}(Source(i % 2))
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("max concurrent producers = %d, want 1", maxActive)
	}
	if s.Len() != 20 {
		t.Errorf("Len = %d, want 20", s.Len())
	}
}

func TestProduceErrorLeavesBuffer(t *testing.T) {
	s := New(capture.Region{})
	s.Append(frame(1, 1))
	_, kept, err := s.Produce(context.Background(), Manual, func(context.Context) (*image.RGBA, error) {
		return nil, capture.ErrCaptureFailed
	})
	if !errors.Is(err, capture.ErrCaptureFailed) || kept {
		t.Fatalf("Produce = %v, %v", kept, err)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestProduceNilImageDiscards(t *testing.T) {
	s := New(capture.Region{})
	_, kept, err := s.Produce(context.Background(), Auto, func(context.Context) (*image.RGBA, error) {
		return nil, nil
	})
	if err != nil || kept || s.Len() != 0 {
		t.Fatalf("kept=%v err=%v len=%d", kept, err, s.Len())
	}
}

func TestAcquireAutoIsExclusive(t *testing.T) {
	s := New(capture.Region{})
	release, err := s.AcquireAuto()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AcquireAuto(); !errors.Is(err, ErrBusy) {
		t.Fatalf("second AcquireAuto err = %v, want ErrBusy", err)
	}
	if !s.AutoRunning() {
		t.Error("AutoRunning should be true")
	}
	release()
	release()
	if s.AutoRunning() {
		t.Error("AutoRunning should be false after release")
	}
	release2, err := s.AcquireAuto()
	if err != nil {
		t.Fatalf("AcquireAuto after release: %v", err)
	}
	release2()
}

func TestCloseClearsAndRejects(t *testing.T) {
	s := New(capture.Region{})
	s.Append(frame(1, 1))
	s.Close()
	s.Close()

	if s.Len() != 0 {
		t.Errorf("Len after Close = %d", s.Len())
	}
	if s.Context().Err() == nil {
		t.Error("context should be cancelled")
	}
	if _, err := s.Append(frame(1, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Append after Close err = %v", err)
	}
	if _, err := s.AcquireAuto(); !errors.Is(err, ErrClosed) {
		t.Errorf("AcquireAuto after Close err = %v", err)
	}
}
