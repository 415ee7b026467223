//go:build windows

package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/pflag"

	"LongScreenShot/capture"
	"LongScreenShot/config"
	"LongScreenShot/ui"
)

func main() {
	// Windows GUI はメインスレッドで実行する必要がある
	runtime.LockOSThread()

	configPath := pflag.String("config", "", "設定ファイル (YAML)")
	pflag.Parse()

	var opts []config.LoaderOption
	if *configPath != "" {
		opts = append(opts, config.WithFile(*configPath))
	}
	cfg, err := config.NewLoader(opts...).Load()
	if err != nil {
		ui.ShowError(fmt.Sprintf("設定の読み込みに失敗しました: %v", err))
		os.Exit(1)
	}
	config.SetupLogger(os.Stderr, cfg.Log.Level)

	if err := ui.Run(cfg, capture.DisplayScreen{}); err != nil {
		ui.ShowError(fmt.Sprintf("画面の作成に失敗しました: %v", err))
		os.Exit(1)
	}
}
