package main

import (
	"os"

	"github.com/zeek/go-spicy/cmd/spicyc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
