// Package main provides the edge-shell CLI entry point.
//
// edge-shell is a terminal application shell that launches an edge runtime
// sidecar and forwards its output to the UI as events.
package main

import (
	"os"

	"github.com/randomizedcoder/go-edge-shell/internal/cli"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/edge-shell
var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
