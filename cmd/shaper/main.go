// Command shaper applies twist, bend, taper and scale to a mesh file and
// exports the result as STL.
//
// Usage:
//
//	shaper [flags] input.{stl,obj,ply,3ds}
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/soypat/deform/internal/config"
	"github.com/soypat/deform/internal/logger"
	"go.uber.org/zap"
)

func main() {
	fs := flag.NewFlagSet("shaper", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	var opts options
	fs.StringVar(&opts.output, "o", "", "Output STL path, - for stdout (default input name with _shaped.stl suffix)")
	fs.StringVar(&opts.snapshot, "png", "", "Write a PNG snapshot of the result")
	fs.StringVar(&opts.vertexShader, "glsl", "", "Write the preview vertex shader to this path")
	fs.StringVar(&opts.saveConfig, "save-config", "", "Write the effective configuration as YAML")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: %s [flags] input.{%s}\n", fs.Name(), strings.Join(extensionsNoDot(), ","))
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}
	opts.input = fs.Arg(0)

	cfg, err := config.Load(flags.ConfigPath(), flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	start := time.Now()
	err = run(ctx, cfg, opts)
	if err != nil {
		logger.Error("shaper failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("done", zap.Duration("elapsed", time.Since(start)))
}

func defaultOutput(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_shaped.stl"
}
