// Package session はキャプチャバッファ（撮影順のフレーム列）を所有するキャプチャセッションです。
package session

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"LongScreenShot/capture"
)

var (
	// ErrEmptyBuffer は取り消すフレームが無いことを表します。
	ErrEmptyBuffer = errors.New("capture buffer is empty")
	// ErrClosed は終了済みセッションへの操作を表します。
	ErrClosed = errors.New("session closed")
	// ErrBusy は同じセッションで自動キャプチャが既に動いていることを表します。
	ErrBusy = errors.New("auto capture already running")
)

// Source はフレームの生成元です。
type Source int

const (
	// Manual は手動撮影のフレームです。
	Manual Source = iota
	// Auto は自動キャプチャのフレームです。
	Auto
)

// String はログ用の名前を返します。
func (s Source) String() string {
	if s == Auto {
		return "auto"
	}
	return "manual"
}

// Frame はバッファに追加された1枚です。追加後は変更されません。
type Frame struct {
	ID         int
	Image      *image.RGBA
	CapturedAt time.Time
	Source     Source
}

// Size は画像の幅・高さを返します。
func (f Frame) Size() image.Point {
	return f.Image.Bounds().Size()
}

// Session はキャプチャバッファと選択範囲を所有します。
type Session struct {
	region capture.Region

	ctx    context.Context
	cancel context.CancelFunc

	produce sync.Mutex // 撮影から追加までを直列化する

	mu     sync.Mutex
	frames []Frame
	nextID int
	auto   bool
	closed bool
}

// New は region を選択範囲とするセッションを開始します。
func New(region capture.Region) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{region: region, ctx: ctx, cancel: cancel, nextID: 1}
}

// Region はセッション開始時に選択された範囲を返します。
func (s *Session) Region() capture.Region { return s.region }

// Context はセッション終了時にキャンセルされます。
func (s *Session) Context() context.Context { return s.ctx }

// Append はフレームを末尾に追加します。
func (s *Session) Append(img *image.RGBA) (Frame, error) {
	return s.append(img, Manual)
}

// AppendFrom は生成元を指定してフレームを追加します。
func (s *Session) AppendFrom(img *image.RGBA, src Source) (Frame, error) {
	return s.append(img, src)
}

func (s *Session) append(img *image.RGBA, src Source) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Frame{}, ErrClosed
	}
	f := Frame{ID: s.nextID, Image: img, CapturedAt: time.Now(), Source: src}
	s.nextID++
	s.frames = append(s.frames, f)
	slog.Debug("フレームを追加しました", "id", f.ID, "source", src.String(), "frames", len(s.frames))
	return f, nil
}

// Undo は最後に追加したフレームを取り除いて返します。
func (s *Session) Undo() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return Frame{}, ErrEmptyBuffer
	}
	last := s.frames[len(s.frames)-1]
	s.frames[len(s.frames)-1] = Frame{}
	s.frames = s.frames[:len(s.frames)-1]
	return last, nil
}

// Clear はすべてのフレームを破棄します。
func (s *Session) Clear() {
	s.mu.Lock()
	s.frames = nil
	s.mu.Unlock()
}

// Frames は撮影順のスナップショットを返します。
func (s *Session) Frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Images は撮影順の画像一覧を返します。
func (s *Session) Images() []image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]image.Image, len(s.frames))
	for i, f := range s.frames {
		out[i] = f.Image
	}
	return out
}

// Lookup は ID でフレームを探します。
func (s *Session) Lookup(id int) (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.frames {
		if f.ID == id {
			return f, true
		}
	}
	return Frame{}, false
}

// Len はフレーム数を返します。
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// Produce は撮影と追加を他の撮影者と重ならないように実行します。
// shoot が nil 画像を返した場合は何も追加しません。
func (s *Session) Produce(ctx context.Context, src Source, shoot func(context.Context) (*image.RGBA, error)) (Frame, bool, error) {
	s.produce.Lock()
	defer s.produce.Unlock()
	if s.isClosed() {
		return Frame{}, false, ErrClosed
	}
	img, err := shoot(ctx)
	if err != nil {
		return Frame{}, false, err
	}
	if img == nil {
		return Frame{}, false, nil
	}
	f, err := s.append(img, src)
	if err != nil {
		return Frame{}, false, err
	}
	return f, true, nil
}

// AcquireAuto は自動キャプチャの実行権を取得します。返された release で解放します。
func (s *Session) AcquireAuto() (release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.auto {
		return nil, ErrBusy
	}
	s.auto = true
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.auto = false
			s.mu.Unlock()
		})
	}, nil
}

// AutoRunning は自動キャプチャが動いているか返します。
func (s *Session) AutoRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auto
}

// Close はセッションを終了し、バッファを破棄します。何度呼んでも安全です。
func (s *Session) Close() {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	slog.Debug("セッションを終了しました", "frames", len(s.frames))
	s.frames = nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
