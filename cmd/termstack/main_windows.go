//go:build windows

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "termstack is not supported on Windows. It requires a Wayland/X11 session and is supported on Linux.")
	os.Exit(1)
}
