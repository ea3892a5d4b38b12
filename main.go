package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tphakala/lcbimport/cmd"
	"github.com/tphakala/lcbimport/internal/buildinfo"
	"github.com/tphakala/lcbimport/internal/conf"
	"github.com/tphakala/lcbimport/internal/importer"
	"github.com/tphakala/lcbimport/internal/logger"
)

// Set with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   string
	buildDate string
)

func main() {
	build := &buildinfo.Context{Version: version, BuildDate: buildDate}
	settings := &conf.Settings{}

	rootCmd := cmd.RootCommand(build, settings)
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	_ = logger.Global().Flush()
	os.Exit(importer.ExitCode(err))
}
