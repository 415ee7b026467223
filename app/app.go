// Package app は選択枠・キャプチャセッション・自動キャプチャ・連結・キャンバスをまとめ、
// 画面のボタン1つにつき1つの操作として提供します。UI に依存しません。
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"LongScreenShot/arrange"
	"LongScreenShot/capture"
	"LongScreenShot/config"
	"LongScreenShot/detector"
	"LongScreenShot/focus"
	"LongScreenShot/keyboard"
	"LongScreenShot/output"
	"LongScreenShot/overlay"
	"LongScreenShot/session"
	"LongScreenShot/stitch"
)

var (
	// ErrNoSession は範囲が未選択でセッションが無いことを表します。
	ErrNoSession = errors.New("no capture session")
	// ErrUnknownFrame は存在しないフレーム ID を表します。
	ErrUnknownFrame = errors.New("unknown frame")
)

// NoticeKind は UI へ知らせる出来事の種類です。
type NoticeKind int

const (
	// FramesChanged はフレームの枚数が変わったことを表します。
	FramesChanged NoticeKind = iota
	// AutoStarted は自動キャプチャが始まったことを表します。
	AutoStarted
	// AutoStopped は自動キャプチャが終わったことを表します。Reason に理由が入ります。
	AutoStopped
	// CaptureFailed は自動キャプチャ中の撮影失敗です。
	CaptureFailed
	// SessionEnded はセッションが終了したことを表します。
	SessionEnded
)

// Notice は任意の goroutine から通知されます。
type Notice struct {
	Kind   NoticeKind
	Frames int
	Reason detector.StopReason // AutoStopped のとき
	Err    error               // CaptureFailed のとき
}

// Controller はアプリケーションの状態を所有します。メソッドは UI スレッドから呼ぶ想定ですが、
// 自動キャプチャの通知は別 goroutine から届きます。
type Controller struct {
	cfg       config.Config
	screen    capture.Screen
	concealer capture.Concealer
	notify    func(Notice)
	copyImage func(image.Image) error

	mu     sync.Mutex
	sess   *session.Session
	box    *overlay.Box
	det    *detector.Detector
	canvas *arrange.Canvas
}

// Option は Controller の設定です。
type Option func(*Controller)

// WithConcealer は撮影中に隠す選択枠ウィンドウを設定します。
func WithConcealer(c capture.Concealer) Option {
	return func(ct *Controller) { ct.concealer = c }
}

// WithNotify は通知先を設定します。
func WithNotify(fn func(Notice)) Option {
	return func(ct *Controller) { ct.notify = fn }
}

// WithClipboard はクリップボードへの書き込み方法を差し替えます。
func WithClipboard(fn func(image.Image) error) Option {
	return func(ct *Controller) { ct.copyImage = fn }
}

// New は Controller を作成します。
func New(cfg config.Config, screen capture.Screen, opts ...Option) *Controller {
	c := &Controller{
		cfg:       cfg,
		screen:    screen,
		copyImage: output.CopyToClipboard,
		canvas:    arrange.New(arrange.WithScale(cfg.Canvas.Scale), arrange.WithAnchor(cfg.Anchor())),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// AutoOptions は画面から変更できる自動キャプチャの設定です。
type AutoOptions struct {
	ScrollKey   string
	FocusWindow string
	MaxFrames   int
	IdleStop    int
}

// AutoOptions は現在の自動キャプチャの設定を返します。
func (c *Controller) AutoOptions() AutoOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.cfg.Detector
	return AutoOptions{ScrollKey: d.ScrollKey, FocusWindow: d.FocusWindow, MaxFrames: d.MaxFrames, IdleStop: d.IdleStop}
}

// SetAutoOptions は次回の自動キャプチャから使う設定を変更します。
func (c *Controller) SetAutoOptions(o AutoOptions) error {
	if _, err := keyboard.Parse(o.ScrollKey); err != nil {
		return err
	}
	if o.MaxFrames < 0 || o.IdleStop < 0 {
		return fmt.Errorf("%w: negative frame count", config.ErrInvalid)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Detector.ScrollKey = o.ScrollKey
	c.cfg.Detector.FocusWindow = o.FocusWindow
	c.cfg.Detector.MaxFrames = o.MaxFrames
	c.cfg.Detector.IdleStop = o.IdleStop
	return nil
}

func (c *Controller) config() config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// SetConcealer は選択枠ウィンドウを後から設定します。
func (c *Controller) SetConcealer(cc capture.Concealer) {
	c.mu.Lock()
	c.concealer = cc
	c.mu.Unlock()
}

// Begin は region を選択範囲として新しいセッションを始めます。前のセッションは終了します。
func (c *Controller) Begin(region capture.Region) (*overlay.Box, error) {
	if region.Empty() {
		return nil, fmt.Errorf("%w: empty region %s", capture.ErrCaptureFailed, region)
	}
	c.End()

	box := overlay.New(region,
		overlay.WithMinSize(c.cfg.Overlay.MinSize),
		overlay.WithHandleSize(c.cfg.Overlay.HandleSize))
	c.mu.Lock()
	c.sess = session.New(region)
	c.box = box
	c.mu.Unlock()
	slog.Info("キャプチャを開始しました", "region", region.String())
	c.emit(Notice{Kind: FramesChanged})
	return box, nil
}

// Box は現在の選択枠です。セッションが無ければ nil です。
func (c *Controller) Box() *overlay.Box {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.box
}

// Session は現在のセッションです。無ければ nil です。
func (c *Controller) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// Canvas は並べ替えキャンバスです。セッションをまたいで残ります。
func (c *Controller) Canvas() *arrange.Canvas { return c.canvas }

func (c *Controller) active() (*session.Session, *overlay.Box, capture.Concealer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return nil, nil, nil, ErrNoSession
	}
	return c.sess, c.box, c.concealer, nil
}

// CaptureNow は選択枠の現在の位置と大きさで1枚撮影して追加します。
func (c *Controller) CaptureNow(ctx context.Context) (session.Frame, error) {
	sess, box, concealer, err := c.active()
	if err != nil {
		return session.Frame{}, err
	}
	opts := []capture.Option{capture.WithSettleDelay(c.cfg.Capture.SettleDelay)}
	// 自動キャプチャ中は枠を隠したままにする
	if concealer != nil && !sess.AutoRunning() {
		opts = append(opts, capture.WithConcealer(concealer))
	}
	cp := capture.NewCapturer(c.screen, opts...)
	region := box.Geometry()

	f, _, err := sess.Produce(ctx, session.Manual, func(ctx context.Context) (*image.RGBA, error) {
		return cp.Capture(ctx, region)
	})
	if err != nil {
		slog.Warn("キャプチャに失敗しました", "region", region.String(), "error", err)
		c.emit(Notice{Kind: CaptureFailed, Err: err, Frames: sess.Len()})
		return session.Frame{}, err
	}
	c.emit(Notice{Kind: FramesChanged, Frames: sess.Len()})
	return f, nil
}

// StartAuto は選択枠を隠して自動キャプチャを始めます。範囲は開始時の枠で固定されます。
func (c *Controller) StartAuto(ctx context.Context) error {
	sess, box, concealer, err := c.active()
	if err != nil {
		return err
	}
	cfg := c.config()
	combo, err := keyboard.Parse(cfg.Detector.ScrollKey)
	if err != nil {
		return err
	}

	opts := []detector.Option{
		detector.WithRegion(box.Geometry()),
		detector.WithEvents(func(ev detector.Event) { c.onDetectorEvent(ev, concealer) }),
	}
	if !combo.Empty() {
		opts = append(opts, detector.WithScroller(keyboard.Scroller{Combo: combo}))
	}
	cp := &settleOnce{
		capturer: capture.NewCapturer(c.screen, capture.WithSettleDelay(0)),
		delay:    cfg.Capture.SettleDelay,
	}
	det := detector.New(sess, cp, cfg.DetectorConfig(), opts...)

	if c.AutoRunning() {
		return session.ErrBusy
	}
	if err := focus.Activate(cfg.Detector.FocusWindow); err != nil {
		slog.Warn("対象ウィンドウを前面にできませんでした", "error", err)
	}

	// 判定と c.det の更新は同じロックの中で行う
	c.mu.Lock()
	if c.det != nil && c.det.Running() {
		c.mu.Unlock()
		return session.ErrBusy
	}
	if concealer != nil {
		concealer.Hide()
	}
	if err := det.Start(ctx); err != nil {
		c.mu.Unlock()
		if concealer != nil {
			concealer.Show()
		}
		return err
	}
	c.det = det
	c.mu.Unlock()

	c.emit(Notice{Kind: AutoStarted, Frames: sess.Len()})
	return nil
}

func (c *Controller) onDetectorEvent(ev detector.Event, concealer capture.Concealer) {
	switch ev.Kind {
	case detector.Kept:
		c.emit(Notice{Kind: FramesChanged, Frames: ev.Frames})
	case detector.Failed:
		c.emit(Notice{Kind: CaptureFailed, Err: ev.Err, Frames: ev.Frames})
	case detector.Stopped:
		if concealer != nil && ev.Reason != detector.SessionClosed {
			concealer.Show()
		}
		c.emit(Notice{Kind: AutoStopped, Reason: ev.Reason, Frames: ev.Frames})
	}
}

// StopAuto は自動キャプチャを止めます。動いていなくても安全です。
func (c *Controller) StopAuto() {
	if det := c.detector(); det != nil {
		det.Stop()
	}
}

// AutoRunning は自動キャプチャが動いているか返します。
func (c *Controller) AutoRunning() bool {
	det := c.detector()
	return det != nil && det.Running()
}

func (c *Controller) detector() *detector.Detector {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.det
}

func (c *Controller) stopAndWait() {
	if det := c.detector(); det != nil {
		det.Stop()
		det.Wait()
	}
}

// Undo は最後のフレームを取り消します。
func (c *Controller) Undo() (session.Frame, error) {
	sess, _, _, err := c.active()
	if err != nil {
		return session.Frame{}, err
	}
	f, err := sess.Undo()
	if err != nil {
		return session.Frame{}, err
	}
	c.emit(Notice{Kind: FramesChanged, Frames: sess.Len()})
	return f, nil
}

// Frames は撮影順のフレーム一覧です。
func (c *Controller) Frames() []session.Frame {
	sess, _, _, err := c.active()
	if err != nil {
		return nil
	}
	return sess.Frames()
}

// Stitched はこれまでのフレームを縦に連結した画像を返します。
func (c *Controller) Stitched() (*image.RGBA, error) {
	sess, _, _, err := c.active()
	if err != nil {
		return nil, err
	}
	return stitch.Stitch(sess.Images())
}

// Finish は自動キャプチャを止め、連結画像を保存先を選ばせて保存します。
// 保存した場合はセッションを終了してパスを返します。
// キャンセルした場合とフレームが無い場合はセッションを残します。
func (c *Controller) Finish(picker output.Picker) (string, error) {
	c.stopAndWait()
	img, err := c.Stitched()
	if err != nil {
		return "", err
	}
	path, err := output.Export(img, picker, output.DefaultName(time.Now()))
	if err != nil || path == "" {
		return "", err
	}
	c.End()
	return path, nil
}

// End はセッションを終了します。何度呼んでも安全です。
func (c *Controller) End() {
	c.stopAndWait()
	c.mu.Lock()
	sess := c.sess
	c.sess, c.box, c.det = nil, nil, nil
	c.mu.Unlock()
	if sess == nil {
		return
	}
	sess.Close()
	c.emit(Notice{Kind: SessionEnded})
}

// CopyStitched は連結画像をクリップボードにコピーします。
func (c *Controller) CopyStitched() error {
	img, err := c.Stitched()
	if err != nil {
		return err
	}
	return c.copyImage(img)
}

// ExportFrames は各フレームを dir に連番 PNG と PDF で書き出します。
func (c *Controller) ExportFrames(dir string) ([]string, string, error) {
	frames := c.Frames()
	if len(frames) == 0 {
		return nil, "", stitch.ErrEmptyInput
	}
	imgs := make([]image.Image, len(frames))
	for i, f := range frames {
		imgs[i] = f.Image
	}
	title := c.config().Output.PDFTitle
	if title == "" {
		title = "longshot-" + time.Now().Format("2006-01-02_15-04-05")
	}
	paths, pdf, err := output.ExportFrames(dir, title, imgs)
	if err != nil {
		return paths, pdf, err
	}
	slog.Info("フレームを書き出しました", "dir", dir, "frames", len(paths), "pdf", pdf)
	return paths, pdf, nil
}

// AddToCanvas はフレームをキャンバスの既定位置に置きます。
func (c *Controller) AddToCanvas(frameID int) (arrange.ItemID, error) {
	sess, _, _, err := c.active()
	if err != nil {
		return 0, err
	}
	f, ok := sess.Lookup(frameID)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownFrame, frameID)
	}
	return c.canvas.PlaceFrame(f.ID, f.Image), nil
}

// ExportCanvas はキャンバスの配置を原寸で合成し、保存先を選ばせて保存します。
// 画像が無ければ保存先を尋ねずに arrange.ErrEmptyCanvas を返します。
func (c *Controller) ExportCanvas(picker output.Picker) (string, error) {
	img, err := c.canvas.Export()
	if err != nil {
		return "", err
	}
	return output.Export(img, picker, output.DefaultName(time.Now()))
}

func (c *Controller) emit(n Notice) {
	if c.notify != nil {
		c.notify(n)
	}
}

// settleOnce は最初の撮影の前だけ待ちます。選択枠を隠した直後の1枚目に枠が写らないようにします。
type settleOnce struct {
	capturer *capture.Capturer
	delay    time.Duration
	once     sync.Once
}

// Capture は最初の1回だけ待ってから撮影します。
func (s *settleOnce) Capture(ctx context.Context, region capture.Region) (*image.RGBA, error) {
	var err error
	s.once.Do(func() {
		if s.delay <= 0 {
			return
		}
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-t.C:
		}
	})
	if err != nil {
		return nil, err
	}
	return s.capturer.Capture(ctx, region)
}
