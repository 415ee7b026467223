//go:build !windows

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "GUI は Windows 専用です。longshot コマンド (cmd/longshot) を使ってください。")
	os.Exit(1)
}
