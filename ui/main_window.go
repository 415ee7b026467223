//go:build windows

package ui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lxn/walk"

	"LongScreenShot/app"
	"LongScreenShot/capture"
	"LongScreenShot/config"
	"LongScreenShot/detector"
	"LongScreenShot/focus"
	"LongScreenShot/session"
	"LongScreenShot/stitch"
)

const noFocusWindow = "(なし)"

// MainWindow はキャプチャ操作の画面です。
type MainWindow struct {
	*walk.MainWindow
	cfg  config.Config
	ctrl *app.Controller

	ctx    context.Context
	cancel context.CancelFunc

	overlay *OverlayWindow
	arrange *ArrangeWindow

	status   *walk.Label
	frames   *walk.ListBox
	frameIDs []int

	selectBtn, captureBtn, startBtn, stopBtn *walk.PushButton
	undoBtn, finishBtn, cancelBtn            *walk.PushButton

	keyEdit    *walk.LineEdit
	focusCombo *walk.ComboBox
	maxEdit    *walk.NumberEdit
	idleCheck  *walk.CheckBox
}

// Run はメインウィンドウを表示し、閉じられるまで戻りません。UI スレッドから呼ぶこと。
func Run(cfg config.Config, screen capture.Screen) error {
	mw := &MainWindow{cfg: cfg}
	mw.ctx, mw.cancel = context.WithCancel(context.Background())
	defer mw.cancel()
	mw.ctrl = app.New(cfg, screen, app.WithNotify(mw.onNotice))

	var err error
	if mw.MainWindow, err = walk.NewMainWindow(); err != nil {
		return fmt.Errorf("create main window: %w", err)
	}
	mw.SetTitle("長いスクリーンショット")
	mw.SetLayout(walk.NewVBoxLayout())
	mw.SetSize(walk.Size{Width: 620, Height: 560})

	if err := mw.buildControls(); err != nil {
		return err
	}
	if err := mw.buildSettings(); err != nil {
		return err
	}
	if err := mw.buildFrames(); err != nil {
		return err
	}
	mw.Closing().Attach(func(canceled *bool, reason walk.CloseReason) {
		mw.cancel()
		mw.ctrl.End()
		mw.closeOverlay()
		if mw.arrange != nil {
			mw.arrange.Dispose()
		}
	})

	mw.updateButtons(false)
	mw.status.SetText("「範囲を選択」でキャプチャを始めます。")
	mw.Run()
	return nil
}

func (mw *MainWindow) buildControls() error {
	comp, err := walk.NewComposite(mw)
	if err != nil {
		return fmt.Errorf("create controls: %w", err)
	}
	comp.SetLayout(walk.NewHBoxLayout())

	button := func(text string, fn func()) *walk.PushButton {
		b, _ := walk.NewPushButton(comp)
		b.SetText(text)
		b.Clicked().Attach(fn)
		return b
	}
	mw.selectBtn = button("範囲を選択...", mw.selectRegion)
	mw.captureBtn = button("撮影", mw.captureNow)
	mw.startBtn = button("自動開始", mw.startAuto)
	mw.stopBtn = button("自動停止", func() { mw.ctrl.StopAuto() })
	mw.undoBtn = button("取り消し", mw.undo)
	mw.finishBtn = button("完了して保存...", mw.finish)
	mw.cancelBtn = button("中止", mw.cancelSession)

	mw.status, _ = walk.NewLabel(mw)
	return nil
}

func (mw *MainWindow) buildSettings() error {
	gb, err := walk.NewGroupBox(mw)
	if err != nil {
		return fmt.Errorf("create settings: %w", err)
	}
	gb.SetTitle("自動キャプチャ")
	gb.SetLayout(walk.NewGridLayout())
	grid := gb.Layout().(*walk.GridLayout)
	row := 0
	label := func(text string) {
		l, _ := walk.NewLabel(gb)
		l.SetText(text)
		grid.SetRange(l, walk.Rectangle{X: 0, Y: row, Width: 1, Height: 1})
	}
	place := func(w walk.Widget, col, span int) {
		grid.SetRange(w, walk.Rectangle{X: col, Y: row, Width: span, Height: 1})
	}

	// スクロールキー（欄にフォーカスしてキーを押すとそのキーで設定される）
	label("スクロールキー:")
	mw.keyEdit, _ = walk.NewLineEdit(gb)
	mw.keyEdit.SetText(mw.cfg.Detector.ScrollKey)
	mw.keyEdit.SetReadOnly(true)
	mw.keyEdit.SetToolTipText("欄をクリックしてキーを押すと設定。Delete で解除")
	mw.keyEdit.KeyDown().Attach(func(key walk.Key) {
		if key == walk.KeyDelete || key == walk.KeyBack {
			mw.keyEdit.SetText("")
			return
		}
		if c, ok := comboFor(walk.ModifiersDown(), key); ok {
			mw.keyEdit.SetText(c.String())
		}
	})
	place(mw.keyEdit, 1, 2)
	row++

	// フォーカスするアプリケーション
	label("フォーカスするアプリ:")
	mw.focusCombo, _ = walk.NewComboBox(gb)
	place(mw.focusCombo, 1, 1)
	refresh, _ := walk.NewPushButton(gb)
	refresh.SetText("一覧を更新")
	refresh.Clicked().Attach(mw.refreshFocusList)
	place(refresh, 2, 1)
	mw.refreshFocusList()
	row++

	// 終了条件
	label("最大枚数 (0=無制限):")
	mw.maxEdit, _ = walk.NewNumberEdit(gb)
	mw.maxEdit.SetRange(0, 99999)
	mw.maxEdit.SetValue(float64(mw.cfg.Detector.MaxFrames))
	place(mw.maxEdit, 1, 1)
	mw.idleCheck, _ = walk.NewCheckBox(gb)
	mw.idleCheck.SetText("同じ画面が続いたら停止")
	mw.idleCheck.SetChecked(mw.cfg.Detector.IdleStop >= detector.MinIdleStop)
	place(mw.idleCheck, 2, 1)
	return nil
}

func (mw *MainWindow) buildFrames() error {
	gb, err := walk.NewGroupBox(mw)
	if err != nil {
		return fmt.Errorf("create frame list: %w", err)
	}
	gb.SetTitle("キャプチャ一覧（ダブルクリックでキャンバスに追加）")
	gb.SetLayout(walk.NewVBoxLayout())
	mw.frames, _ = walk.NewListBox(gb)
	mw.frames.ItemActivated().Attach(mw.addToCanvas)

	comp, _ := walk.NewComposite(gb)
	comp.SetLayout(walk.NewHBoxLayout())
	button := func(text string, fn func()) {
		b, _ := walk.NewPushButton(comp)
		b.SetText(text)
		b.Clicked().Attach(fn)
	}
	button("キャンバスに追加", mw.addToCanvas)
	button("キャンバスを開く", mw.showArrange)
	button("フレームを書き出し...", mw.exportFrames)
	button("クリップボードにコピー", mw.copyStitched)
	return nil
}

func (mw *MainWindow) refreshFocusList() {
	current := mw.focusCombo.Text()
	if current == "" {
		current = mw.cfg.Detector.FocusWindow
	}
	items := append([]string{noFocusWindow}, focus.Titles()...)
	mw.focusCombo.SetModel(items)
	mw.focusCombo.SetCurrentIndex(0)
	for i, t := range items {
		if t == current {
			mw.focusCombo.SetCurrentIndex(i)
			break
		}
	}
}

// onNotice は任意の goroutine から呼ばれるので UI スレッドへ戻す
func (mw *MainWindow) onNotice(n app.Notice) {
	if mw.MainWindow == nil {
		return
	}
	mw.Synchronize(func() { mw.handleNotice(n) })
}

func (mw *MainWindow) handleNotice(n app.Notice) {
	switch n.Kind {
	case app.FramesChanged:
		mw.refreshFrames()
		mw.status.SetText(fmt.Sprintf("%d 枚キャプチャしました", n.Frames))
	case app.AutoStarted:
		mw.status.SetText("自動キャプチャ中... スクロールしてください")
		mw.updateButtons(true)
	case app.AutoStopped:
		mw.refreshFrames()
		mw.updateButtons(false)
		mw.status.SetText(fmt.Sprintf("自動キャプチャを終了しました（%s）: %d 枚", reasonText(n.Reason), n.Frames))
		if n.Reason == detector.Idle || n.Reason == detector.MaxFrames {
			showInfo(mw, "完了", "自動キャプチャが終了しました。")
		}
	case app.CaptureFailed:
		mw.status.SetText(fmt.Sprintf("キャプチャに失敗しました: %v", n.Err))
	case app.SessionEnded:
		mw.refreshFrames()
		mw.updateButtons(false)
	}
}

func reasonText(r detector.StopReason) string {
	switch r {
	case detector.Idle:
		return "画面が変わらなくなりました"
	case detector.MaxFrames:
		return "最大枚数に達しました"
	case detector.SessionClosed:
		return "セッション終了"
	default:
		return "停止"
	}
}

func (mw *MainWindow) updateButtons(auto bool) {
	has := mw.ctrl.Session() != nil
	mw.captureBtn.SetEnabled(has)
	mw.startBtn.SetEnabled(has && !auto)
	mw.stopBtn.SetEnabled(has && auto)
	mw.undoBtn.SetEnabled(has)
	mw.finishBtn.SetEnabled(has)
	mw.cancelBtn.SetEnabled(has)
}

func (mw *MainWindow) refreshFrames() {
	frames := mw.ctrl.Frames()
	items := make([]string, len(frames))
	mw.frameIDs = mw.frameIDs[:0]
	for i, f := range frames {
		items[i] = frameLabel(f)
		mw.frameIDs = append(mw.frameIDs, f.ID)
	}
	mw.frames.SetModel(items)
}

func frameLabel(f session.Frame) string {
	kind := "手動"
	if f.Source == session.Auto {
		kind = "自動"
	}
	size := f.Size()
	return "#" + strconv.Itoa(f.ID) + "  " + strconv.Itoa(size.X) + " x " + strconv.Itoa(size.Y) +
		"  " + kind + "  " + f.CapturedAt.Format("15:04:05")
}

func (mw *MainWindow) closeOverlay() {
	if mw.overlay != nil {
		mw.overlay.Close()
		mw.overlay = nil
	}
	mw.ctrl.SetConcealer(nil)
}

func (mw *MainWindow) selectRegion() {
	if mw.ctrl.Session() != nil && len(mw.ctrl.Frames()) > 0 &&
		!showConfirm(mw, "確認", "現在のキャプチャを破棄して範囲を選び直しますか？") {
		return
	}
	mw.ctrl.End()
	mw.closeOverlay()

	mw.SetVisible(false)
	region, ok := SelectRegion()
	mw.SetVisible(true)
	if !ok {
		return
	}

	box, err := mw.ctrl.Begin(region)
	if err != nil {
		report(mw, err)
		return
	}
	ow, err := NewOverlayWindow(box, func(r capture.Region) {
		mw.status.SetText("範囲: " + r.String())
	})
	if err != nil {
		mw.ctrl.End()
		report(mw, err)
		return
	}
	mw.overlay = ow
	mw.ctrl.SetConcealer(ow)
	mw.updateButtons(false)
	mw.status.SetText("スクロールしながら「撮影」を押すか、「自動開始」を押してください。")
}

func (mw *MainWindow) captureNow() {
	go func() {
		if _, err := mw.ctrl.CaptureNow(mw.ctx); err != nil {
			mw.Synchronize(func() { report(mw, err) })
		}
	}()
}

func (mw *MainWindow) autoOptions() app.AutoOptions {
	o := app.AutoOptions{
		ScrollKey: mw.keyEdit.Text(),
		MaxFrames: int(mw.maxEdit.Value()),
	}
	if t := mw.focusCombo.Text(); t != noFocusWindow {
		o.FocusWindow = t
	}
	if mw.idleCheck.Checked() {
		o.IdleStop = mw.cfg.Detector.IdleStop
		if o.IdleStop < detector.MinIdleStop {
			o.IdleStop = 3
		}
	}
	return o
}

func (mw *MainWindow) startAuto() {
	if err := mw.ctrl.SetAutoOptions(mw.autoOptions()); err != nil {
		report(mw, err)
		return
	}
	if err := mw.ctrl.StartAuto(mw.ctx); err != nil {
		report(mw, err)
	}
}

func (mw *MainWindow) undo() {
	if _, err := mw.ctrl.Undo(); err != nil {
		report(mw, err)
	}
}

func (mw *MainWindow) picker(title string) savePicker {
	return savePicker{owner: mw, title: title, dir: mw.cfg.Output.Dir}
}

func (mw *MainWindow) finish() {
	path, err := mw.ctrl.Finish(mw.picker("長いスクリーンショットを保存"))
	if err != nil {
		report(mw, err)
		return
	}
	if path == "" {
		return
	}
	mw.closeOverlay()
	mw.status.SetText("保存しました: " + path)
	showInfo(mw, "保存", "長いスクリーンショットを保存しました:\n"+path)
}

func (mw *MainWindow) cancelSession() {
	if len(mw.ctrl.Frames()) > 0 && !showConfirm(mw, "確認", "キャプチャを破棄して終了しますか？") {
		return
	}
	mw.ctrl.End()
	mw.closeOverlay()
	mw.status.SetText("中止しました。")
}

func (mw *MainWindow) selectedFrame() (int, bool) {
	i := mw.frames.CurrentIndex()
	if i < 0 || i >= len(mw.frameIDs) {
		return 0, false
	}
	return mw.frameIDs[i], true
}

func (mw *MainWindow) addToCanvas() {
	id, ok := mw.selectedFrame()
	if !ok {
		return
	}
	if _, err := mw.ctrl.AddToCanvas(id); err != nil {
		report(mw, err)
		return
	}
	mw.showArrange()
}

func (mw *MainWindow) showArrange() {
	if mw.arrange == nil {
		aw, err := NewArrangeWindow(mw.ctrl.Canvas(), func(owner walk.Form) {
			path, err := mw.ctrl.ExportCanvas(savePicker{owner: owner, title: "キャンバスを書き出し", dir: mw.cfg.Output.Dir})
			if err != nil {
				report(owner, err)
			} else if path != "" {
				showInfo(owner, "書き出し", "画像を保存しました:\n"+path)
			}
		})
		if err != nil {
			report(mw, err)
			return
		}
		mw.arrange = aw
	}
	mw.arrange.Refresh()
	mw.arrange.SetVisible(true)
}

func (mw *MainWindow) exportFrames() {
	if len(mw.ctrl.Frames()) == 0 {
		report(mw, stitch.ErrEmptyInput)
		return
	}
	dir, err := pickFolder(mw, "書き出し先フォルダを選択", mw.cfg.Output.Dir)
	if err != nil {
		report(mw, err)
		return
	}
	if dir == "" {
		return
	}
	if !isDirEmpty(dir) && showConfirm(mw, "確認", "選択したフォルダは空ではありません。フォルダを空にしますか？") {
		if err := emptyDir(dir); err != nil {
			report(mw, fmt.Errorf("フォルダを空にできませんでした: %w", err))
			return
		}
	}
	paths, pdf, err := mw.ctrl.ExportFrames(dir)
	if err != nil {
		report(mw, err)
		return
	}
	showInfo(mw, "書き出し", fmt.Sprintf("%d 枚を保存し、%s に PDF を出力しました。", len(paths), pdf))
}

func (mw *MainWindow) copyStitched() {
	if err := mw.ctrl.CopyStitched(); err != nil {
		report(mw, err)
		return
	}
	mw.status.SetText("連結した画像をクリップボードにコピーしました。")
}
