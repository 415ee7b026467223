// Package config は設定ファイル・環境変数・.env・コマンドラインフラグから設定を読み込みます。
package config

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"LongScreenShot/capture"
	"LongScreenShot/detector"
)

const (
	// EnvPrefix は環境変数の接頭辞です（例: LONGSHOT_DETECTOR_INTERVAL）。
	EnvPrefix = "LONGSHOT"
	// EnvFileVar は .env ファイルの場所を指定する環境変数です。
	EnvFileVar = "LONGSHOT_ENV"
)

// ErrInvalid は設定値が範囲外であることを表します。
var ErrInvalid = errors.New("invalid config")

// Capture は撮影の設定です。
type Capture struct {
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

// Detector は自動キャプチャの設定です。
type Detector struct {
	Interval       time.Duration `mapstructure:"interval"`
	Threshold      int           `mapstructure:"threshold"`
	ThresholdRatio float64       `mapstructure:"threshold_ratio"`
	NoiseFloor     int           `mapstructure:"noise_floor"`
	IdleStop       int           `mapstructure:"idle_stop"`
	MaxFrames      int           `mapstructure:"max_frames"`
	ScrollKey      string        `mapstructure:"scroll_key"`
	FocusWindow    string        `mapstructure:"focus_window"`
}

// Overlay は選択枠の設定です。
type Overlay struct {
	MinSize    int `mapstructure:"min_size"`
	HandleSize int `mapstructure:"handle_size"`
}

// Canvas は配置キャンバスの設定です。
type Canvas struct {
	Scale   float64 `mapstructure:"scale"`
	AnchorX int     `mapstructure:"anchor_x"`
	AnchorY int     `mapstructure:"anchor_y"`
}

// Output は保存の設定です。
type Output struct {
	Dir      string `mapstructure:"dir"`
	PDFTitle string `mapstructure:"pdf_title"`
}

// Log はログ出力の設定です。
type Log struct {
	Level string `mapstructure:"level"`
}

// Config はアプリケーション全体の設定です。
type Config struct {
	Capture  Capture  `mapstructure:"capture"`
	Detector Detector `mapstructure:"detector"`
	Overlay  Overlay  `mapstructure:"overlay"`
	Canvas   Canvas   `mapstructure:"canvas"`
	Output   Output   `mapstructure:"output"`
	Log      Log      `mapstructure:"log"`
}

var defaults = map[string]any{
	"capture.settle_delay":     capture.DefaultSettleDelay,
	"detector.interval":        detector.DefaultInterval,
	"detector.threshold":       detector.DefaultThreshold,
	"detector.threshold_ratio": 0.0,
	"detector.noise_floor":     0,
	"detector.idle_stop":       0,
	"detector.max_frames":      0,
	"detector.scroll_key":      "",
	"detector.focus_window":    "",
	"overlay.min_size":         100,
	"overlay.handle_size":      15,
	"canvas.scale":             0.5,
	"canvas.anchor_x":          50,
	"canvas.anchor_y":          50,
	"output.dir":               "",
	"output.pdf_title":         "",
	"log.level":                "info",
}

// Default は既定値だけの設定を返します。
func Default() Config {
	l := &Loader{v: newViper()}
	cfg, _ := l.unmarshal()
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return v
}

// Validate は設定値の範囲を検査します。
func (c Config) Validate() error {
	switch {
	case c.Capture.SettleDelay < 0 || c.Capture.SettleDelay > capture.MaxSettleDelay:
		return fmt.Errorf("%w: capture.settle_delay %v not in [0, %v]", ErrInvalid, c.Capture.SettleDelay, capture.MaxSettleDelay)
	case c.Detector.Interval <= 0:
		return fmt.Errorf("%w: detector.interval must be positive", ErrInvalid)
	case c.Detector.Threshold < 0:
		return fmt.Errorf("%w: detector.threshold must not be negative", ErrInvalid)
	case c.Detector.ThresholdRatio < 0 || c.Detector.ThresholdRatio >= 1:
		return fmt.Errorf("%w: detector.threshold_ratio must be in [0, 1)", ErrInvalid)
	case c.Detector.NoiseFloor < 0 || c.Detector.NoiseFloor > 255:
		return fmt.Errorf("%w: detector.noise_floor must be in [0, 255]", ErrInvalid)
	case c.Detector.IdleStop < 0 || c.Detector.MaxFrames < 0:
		return fmt.Errorf("%w: detector.idle_stop and detector.max_frames must not be negative", ErrInvalid)
	case c.Overlay.MinSize < 1 || c.Overlay.HandleSize < 1:
		return fmt.Errorf("%w: overlay sizes must be at least 1", ErrInvalid)
	case c.Canvas.Scale <= 0 || c.Canvas.Scale > 1:
		return fmt.Errorf("%w: canvas.scale must be in (0, 1]", ErrInvalid)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// DetectorConfig は自動キャプチャ用の設定に変換します。
func (c Config) DetectorConfig() detector.Config {
	return detector.Config{
		Interval:       c.Detector.Interval,
		Threshold:      c.Detector.Threshold,
		ThresholdRatio: c.Detector.ThresholdRatio,
		NoiseFloor:     uint8(c.Detector.NoiseFloor),
		IdleStop:       c.Detector.IdleStop,
		MaxFrames:      c.Detector.MaxFrames,
	}
}

// Anchor はキャンバスに画像を置く既定位置です。
func (c Config) Anchor() image.Point {
	return image.Pt(c.Canvas.AnchorX, c.Canvas.AnchorY)
}

// ParseLevel はログレベル名を slog.Level に変換します。
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalid, s)
	}
	return l, nil
}

// SetupLogger は設定のレベルでテキスト形式のロガーを既定にします。
func SetupLogger(w io.Writer, level string) *slog.Logger {
	l, err := ParseLevel(level)
	if err != nil {
		l = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
	return logger
}

// Loader は viper を使って設定を集めます。
type Loader struct {
	v       *viper.Viper
	file    string
	envFile string
}

// LoaderOption は Loader の設定です。
type LoaderOption func(*Loader)

// WithFile は読み込む設定ファイルを指定します。指定した場合は見つからないとエラーです。
func WithFile(path string) LoaderOption {
	return func(l *Loader) { l.file = path }
}

// WithEnvFile は読み込む .env ファイルを指定します。
func WithEnvFile(path string) LoaderOption {
	return func(l *Loader) { l.envFile = path }
}

// NewLoader は既定値と環境変数の割り当てを済ませた Loader を返します。
func NewLoader(opts ...LoaderOption) *Loader {
	v := newViper()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	l := &Loader{v: v}
	for _, o := range opts {
		o(l)
	}
	return l
}

// BindFlag はコマンドラインフラグを設定キーに結び付けます。フラグが指定された場合に優先されます。
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("bind %s: nil flag", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Set は値を直接上書きします。
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// Load は .env、設定ファイル、環境変数、フラグの順に読み込み、検査済みの設定を返します。
func (l *Loader) Load() (Config, error) {
	if path := l.resolveEnvPath(); path != "" {
		if err := godotenv.Load(path); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
		slog.Debug(".env を読み込みました", "path", path)
	}

	if l.file != "" {
		l.v.SetConfigFile(l.file)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if dir := exeDir(); dir != "" {
			l.v.AddConfigPath(dir)
		}
	}
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		slog.Debug("設定ファイルを読み込みました", "path", l.v.ConfigFileUsed())
	}

	cfg, err := l.unmarshal()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (l *Loader) unmarshal() (Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// resolveEnvPath は .env の場所を決めます。
// 指定 > $LONGSHOT_ENV > 実行ファイルと同じフォルダの .env の順で、見つからなければ空です。
func (l *Loader) resolveEnvPath() string {
	if l.envFile != "" {
		return l.envFile
	}
	if p := os.Getenv(EnvFileVar); p != "" {
		return p
	}
	if dir := exeDir(); dir != "" {
		p := filepath.Join(dir, ".env")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func exeDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}
