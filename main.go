package main

import (
	"os"

	"github.com/hxlong2024/LinkChanger/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
