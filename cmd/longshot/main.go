// Command longshot は GUI を使わずに長いスクリーンショットを作るコマンドです。
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"LongScreenShot/app"
	"LongScreenShot/arrange"
	"LongScreenShot/capture"
	"LongScreenShot/config"
	"LongScreenShot/detector"
	"LongScreenShot/output"
	"LongScreenShot/stitch"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := runWithArgs(os.Args[1:], capture.DisplayScreen{}, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string, screen capture.Screen, stdout io.Writer) error {
	cmd := newRootCmd(screen, stdout)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func newRootCmd(screen capture.Screen, stdout io.Writer) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "longshot",
		Short:         "Capture, stitch and arrange long screenshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newCaptureCmd(opts, screen),
		newStitchCmd(opts),
		newArrangeCmd(opts),
	)
	return cmd
}

// loadConfig は設定を読み込み、指定されたフラグを設定キーに結び付けます。
func loadConfig(cmd *cobra.Command, opts *rootOptions, flagKeys map[string]string) (config.Config, error) {
	var lopts []config.LoaderOption
	if opts.configPath != "" {
		lopts = append(lopts, config.WithFile(opts.configPath))
	}
	l := config.NewLoader(lopts...)
	if opts.logLevel != "" {
		l.Set("log.level", opts.logLevel)
	}
	for name, key := range flagKeys {
		if err := l.BindFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := l.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	config.SetupLogger(cmd.ErrOrStderr(), cfg.Log.Level)
	return cfg, nil
}

func newCaptureCmd(opts *rootOptions, screen capture.Screen) *cobra.Command {
	var regionStr, out string
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Auto-capture a screen region until stopped and save the stitched image",
		Long: "Captures the region repeatedly, keeping frames whose pixels changed enough, " +
			"until Ctrl+C, the idle stop or the frame limit. Then the frames are stitched vertically.",
		RunE: func(cmd *cobra.Command, args []string) error {
			region, err := parseRegion(regionStr)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, opts, map[string]string{
				"interval":   "detector.interval",
				"threshold":  "detector.threshold",
				"max-frames": "detector.max_frames",
				"idle-stop":  "detector.idle_stop",
				"scroll-key": "detector.scroll_key",
				"focus":      "detector.focus_window",
				"settle":     "capture.settle_delay",
			})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			path, err := runCapture(ctx, cfg, screen, region, out)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&regionStr, "region", "", "Region corners x1,y1,x2,y2 in screen coordinates")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (.png, .jpg or .pdf)")
	cmd.Flags().Duration("interval", detector.DefaultInterval, "Capture interval")
	cmd.Flags().Int("threshold", detector.DefaultThreshold, "Changed pixel count needed to keep a frame")
	cmd.Flags().Int("max-frames", 0, "Stop after this many frames (0 = unlimited)")
	cmd.Flags().Int("idle-stop", 0, "Stop after this many identical captures (0 = never)")
	cmd.Flags().String("scroll-key", "", "Key sent after each capture, e.g. PageDown")
	cmd.Flags().String("focus", "", "Title of the window to focus before capturing")
	cmd.Flags().Duration("settle", capture.DefaultSettleDelay, "Wait before the first capture")
	_ = cmd.MarkFlagRequired("region")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

// runCapture は自動キャプチャを ctx の終了か停止条件まで動かし、連結画像を out に保存します。
func runCapture(ctx context.Context, cfg config.Config, screen capture.Screen, region capture.Region, out string) (string, error) {
	stopped := make(chan struct{})
	var once sync.Once
	ctrl := app.New(cfg, screen, app.WithNotify(func(n app.Notice) {
		if n.Kind == app.AutoStopped {
			once.Do(func() { close(stopped) })
		}
	}))
	if _, err := ctrl.Begin(region); err != nil {
		return "", err
	}
	defer ctrl.End()
	if err := ctrl.StartAuto(ctx); err != nil {
		return "", err
	}
	select {
	case <-ctx.Done():
	case <-stopped:
	}
	return ctrl.Finish(output.PickerFunc(func(string) (string, bool, error) { return out, true, nil }))
}

func newStitchCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "stitch -o OUT FILE...",
		Short: "Stitch image files vertically in the given order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd, opts, nil); err != nil {
				return err
			}
			imgs := make([]image.Image, 0, len(args))
			for _, p := range args {
				img, err := readImage(p)
				if err != nil {
					return err
				}
				imgs = append(imgs, img)
			}
			img, err := stitch.Stitch(imgs)
			if err != nil {
				return err
			}
			path, err := output.Save(out, img)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (.png, .jpg or .pdf)")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newArrangeCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "arrange -o OUT FILE[@X,Y]...",
		Short: "Compose image files at canvas positions (thumbnail scale)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, map[string]string{"scale": "canvas.scale"})
			if err != nil {
				return err
			}
			canvas := arrange.New(arrange.WithScale(cfg.Canvas.Scale), arrange.WithAnchor(cfg.Anchor()))
			for _, a := range args {
				file, pos, ok, err := parsePlacement(a)
				if err != nil {
					return err
				}
				img, err := readImage(file)
				if err != nil {
					return err
				}
				if ok {
					canvas.PlaceAt(img, pos)
				} else {
					canvas.Place(img)
				}
			}
			img, err := canvas.Export()
			if err != nil {
				return err
			}
			path, err := output.Save(out, img)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (.png, .jpg or .pdf)")
	cmd.Flags().Float64("scale", arrange.DefaultScale, "Thumbnail scale the positions are given in")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func readImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func parseInts(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma-separated numbers, got %q", n, s)
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad number %q in %q", p, s)
		}
		out[i] = v
	}
	return out, nil
}

// parseRegion は "x1,y1,x2,y2" を正規化した範囲にします。
func parseRegion(s string) (capture.Region, error) {
	v, err := parseInts(s, 4)
	if err != nil {
		return capture.Region{}, fmt.Errorf("region: %w", err)
	}
	r := capture.RegionFromPoints(v[0], v[1], v[2], v[3])
	if r.Empty() {
		return capture.Region{}, errors.New("region: empty rectangle")
	}
	return r, nil
}

// parsePlacement は "file@x,y" を分解します。位置が無ければ ok=false です。
func parsePlacement(s string) (file string, pos image.Point, ok bool, err error) {
	i := strings.LastIndex(s, "@")
	if i < 0 {
		return s, image.Point{}, false, nil
	}
	v, err := parseInts(s[i+1:], 2)
	if err != nil {
		return "", image.Point{}, false, fmt.Errorf("placement %q: %w", s, err)
	}
	return s[:i], image.Pt(v[0], v[1]), true, nil
}
