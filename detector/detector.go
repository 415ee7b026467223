// Package detector は一定間隔で撮影し、前回保持したフレームとの画素差が
// 十分に大きいときだけセッションへ追加する自動スクロールキャプチャです。
package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/corona10/goimagehash"

	"LongScreenShot/capture"
	"LongScreenShot/compare"
	"LongScreenShot/session"
)

const (
	// DefaultInterval は撮影の間隔の既定値です。
	DefaultInterval = 500 * time.Millisecond
	// DefaultThreshold はフレームを保持するのに必要な変化画素数の既定値です。
	DefaultThreshold = 10000
	// MinIdleStop より小さい IdleStop は 0（無効）として扱います。
	MinIdleStop = 2
)

// Config は自動キャプチャの調整値です。
type Config struct {
	Interval       time.Duration
	Threshold      int     // この画素数を超えて変化したら保持する
	ThresholdRatio float64 // > 0 のときフレーム画素数に対する比率で Threshold を上書きする
	NoiseFloor     uint8   // グレースケール差がこれを超えた画素だけ数える
	IdleStop       int     // 連続してこの回数だけ画面が同じなら停止する（0 で無効）
	MaxFrames      int     // セッションの枚数がこれに達したら停止する（0 で無制限）
}

// DefaultConfig は既定値を返します。
func DefaultConfig() Config {
	return Config{Interval: DefaultInterval, Threshold: DefaultThreshold}
}

// FrameCapturer は範囲を1枚撮影します。
type FrameCapturer interface {
	Capture(ctx context.Context, region capture.Region) (*image.RGBA, error)
}

// Scroller は撮影のたびに対象ウィンドウをスクロールさせます。
type Scroller interface {
	Scroll() error
}

// ScrollFunc は関数を Scroller として使うためのものです。
type ScrollFunc func() error

// Scroll は f を呼びます。
func (f ScrollFunc) Scroll() error { return f() }

// EventKind はループから通知される出来事の種類です。
type EventKind int

const (
	// Kept は撮影した画像をセッションに追加したことを表します。
	Kept EventKind = iota
	// Discarded は変化が閾値以下で捨てたことを表します。
	Discarded
	// Failed は撮影に失敗したことを表します。ループは続きます。
	Failed
	// Stopped はループが終わったことを表します。最後に1回だけ通知されます。
	Stopped
)

// String はログ用の名前を返します。
func (k EventKind) String() string {
	switch k {
	case Kept:
		return "kept"
	case Discarded:
		return "discarded"
	case Failed:
		return "failed"
	default:
		return "stopped"
	}
}

// StopReason はループが終わった理由です。
type StopReason int

const (
	// Cancelled は Stop か ctx のキャンセルで止まったことを表します。
	Cancelled StopReason = iota
	// SessionClosed はセッションが閉じられて止まったことを表します。
	SessionClosed
	// Idle は画面が IdleStop 回続けて変わらず止まったことを表します。
	Idle
	// MaxFrames は枚数が MaxFrames に達して止まったことを表します。
	MaxFrames
)

// String はログ用の名前を返します。
func (r StopReason) String() string {
	switch r {
	case SessionClosed:
		return "session closed"
	case Idle:
		return "idle"
	case MaxFrames:
		return "max frames"
	default:
		return "cancelled"
	}
}

// Event はループの goroutine から通知されます。UI の更新は呼び出し側で UI スレッドへ戻すこと。
type Event struct {
	Kind   EventKind
	Frame  session.Frame // Kept のとき
	Diff   int
	Frames int // 通知時点のセッションの枚数
	Err    error
	Reason StopReason // Stopped のとき
}

// Result は1回の実行結果です。
type Result struct {
	Reason StopReason
	Ticks  int
	Kept   int
}

// Detector はセッション1つに対する自動キャプチャです。同時に1つしか動きません。
type Detector struct {
	sess     *session.Session
	capturer FrameCapturer
	cfg      Config
	region   capture.Region
	scroller Scroller
	onEvent  func(Event)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	result Result

	// ループ goroutine だけが触る
	baseline *image.RGBA
	hashes   []*goimagehash.ImageHash
}

// Option は Detector の設定です。
type Option func(*Detector)

// WithRegion は撮影範囲を設定します。既定はセッションの範囲です。
func WithRegion(r capture.Region) Option {
	return func(d *Detector) { d.region = r }
}

// WithScroller は撮影ごとのスクロール操作を設定します。
func WithScroller(s Scroller) Option {
	return func(d *Detector) { d.scroller = s }
}

// WithEvents はイベントの通知先を設定します。
func WithEvents(fn func(Event)) Option {
	return func(d *Detector) { d.onEvent = fn }
}

// New は Detector を作成します。
func New(sess *session.Session, capturer FrameCapturer, cfg Config, opts ...Option) *Detector {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.IdleStop > 0 && cfg.IdleStop < MinIdleStop {
		cfg.IdleStop = 0
	}
	d := &Detector{sess: sess, capturer: capturer, cfg: cfg, region: sess.Region()}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Start はループをバックグラウンドで開始します。
// 同じセッションで既に動いている場合は session.ErrBusy を返します。
func (d *Detector) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done != nil {
		select {
		case <-d.done:
		default:
			return session.ErrBusy
		}
	}
	release, err := d.sess.AcquireAuto()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(d.sess.Context(), cancel)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.result = Result{}
	d.baseline = nil
	d.hashes = nil

	done := d.done
	go func() {
		defer close(done)
		defer release()
		defer stopAfter()
		defer cancel()
		res := d.run(ctx)
		d.mu.Lock()
		d.result = res
		d.mu.Unlock()
		slog.Info("自動キャプチャ終了", "reason", res.Reason.String(), "ticks", res.Ticks, "kept", res.Kept)
		d.emit(Event{Kind: Stopped, Reason: res.Reason, Frames: d.sess.Len()})
	}()
	slog.Info("自動キャプチャ開始", "region", d.region.String(), "interval", d.cfg.Interval, "threshold", d.cfg.Threshold)
	return nil
}

// Stop はループに停止を要求します。未開始・終了済みでも安全に何度でも呼べます。
func (d *Detector) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Done はループ終了時に閉じられます。未開始なら nil です。
func (d *Detector) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Wait はループの終了を待って結果を返します。
func (d *Detector) Wait() Result {
	done := d.Done()
	if done != nil {
		<-done
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result
}

// Running はループが動いているか返します。
func (d *Detector) Running() bool {
	done := d.Done()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

func (d *Detector) run(ctx context.Context) Result {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	var res Result
	for {
		if ctx.Err() != nil {
			res.Reason = d.cancelReason()
			return res
		}
		res.Ticks++
		ev, stop, reason := d.tick(ctx)
		if ev.Kind == Kept {
			res.Kept++
		}
		if stop {
			res.Reason = reason
			return res
		}
		if d.scroller != nil {
			if err := d.scroller.Scroll(); err != nil {
				slog.Warn("スクロール操作に失敗しました", "error", err)
			}
		}
		select {
		case <-ctx.Done():
			res.Reason = d.cancelReason()
			return res
		case <-ticker.C:
		}
	}
}

// tick は1回分の撮影と判定を行います。
func (d *Detector) tick(ctx context.Context) (Event, bool, StopReason) {
	var diff int
	f, kept, err := d.sess.Produce(ctx, session.Auto, func(ctx context.Context) (*image.RGBA, error) {
		img, err := d.capturer.Capture(ctx, d.region)
		if err != nil {
			return nil, err
		}
		d.observe(img)
		if d.baseline == nil {
			d.baseline = img
			return img, nil
		}
		n, err := compare.DiffCount(d.baseline, img, d.cfg.NoiseFloor)
		if err != nil {
			// 範囲は実行中に変わらないので、ここに来るのはプログラムの誤り
			panic(fmt.Sprintf("detector: frame size changed during a run: %v", err))
		}
		diff = n
		if n > d.threshold(img) {
			d.baseline = img
			return img, nil
		}
		return nil, nil
	})

	switch {
	case errors.Is(err, session.ErrClosed):
		return Event{}, true, SessionClosed
	case ctx.Err() != nil:
		return Event{}, true, d.cancelReason()
	case err != nil:
		slog.Warn("キャプチャに失敗しました", "error", err)
		ev := Event{Kind: Failed, Err: err, Frames: d.sess.Len()}
		d.emit(ev)
		return ev, false, 0
	}

	ev := Event{Kind: Discarded, Diff: diff, Frames: d.sess.Len()}
	if kept {
		ev.Kind = Kept
		ev.Frame = f
		slog.Debug("フレームを保持しました", "id", f.ID, "diff", diff, "frames", ev.Frames)
	}
	d.emit(ev)

	if d.cfg.MaxFrames > 0 && ev.Frames >= d.cfg.MaxFrames {
		return ev, true, MaxFrames
	}
	if d.idle() {
		return ev, true, Idle
	}
	return ev, false, 0
}

func (d *Detector) threshold(img *image.RGBA) int {
	if d.cfg.ThresholdRatio > 0 {
		b := img.Bounds()
		return int(d.cfg.ThresholdRatio * float64(b.Dx()*b.Dy()))
	}
	return d.cfg.Threshold
}

// observe は直近の IdleStop 回分の知覚ハッシュを記録します。
func (d *Detector) observe(img *image.RGBA) {
	if d.cfg.IdleStop == 0 {
		return
	}
	h, err := compare.Hash(img)
	if err != nil {
		slog.Debug("ハッシュ計算に失敗しました", "error", err)
		h = nil
	}
	d.hashes = append(d.hashes, h)
	if len(d.hashes) > d.cfg.IdleStop {
		d.hashes = d.hashes[1:]
	}
}

func (d *Detector) idle() bool {
	return d.cfg.IdleStop > 0 && len(d.hashes) == d.cfg.IdleStop && compare.Same(d.hashes...)
}

func (d *Detector) cancelReason() StopReason {
	if d.sess.Context().Err() != nil {
		return SessionClosed
	}
	return Cancelled
}

func (d *Detector) emit(ev Event) {
	if d.onEvent != nil {
		d.onEvent(ev)
	}
}
