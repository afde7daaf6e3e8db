package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"wmstudio/internal/config"
	"wmstudio/internal/logger"
	"wmstudio/pkg/fonts"
	"wmstudio/pkg/template"
	"wmstudio/pkg/watermark"
)

const usageText = `usage: watermark [-config file] [-env-file file] <command> [flags]

commands:
  export     watermark images (files or folders) into an output folder
  preview    render the scaled preview of one image, optionally dragging the watermark
  template   list | show NAME | delete NAME
  fonts      list font families
  env        list supported environment variables
`

// app carries what every command needs.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	renderer *watermark.Renderer
	store    *template.Store
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	global := flag.NewFlagSet("watermark", flag.ContinueOnError)
	configPath := global.String("config", "", "YAML config file")
	envFile := global.String("env-file", "", "dotenv file loaded before reading the environment")
	global.Usage = func() {
		fmt.Fprint(os.Stderr, usageText)
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return 2
	}
	if rest[0] == "env" {
		desc, err := config.Describe()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(desc)
		return 0
	}

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.Load(*configPath, envFiles...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	log, err := logger.New(cfg.Log, cfg.IsDev())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	store, err := template.Open(cfg.Templates.Dir, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	reg := fonts.NewRegistry(log, cfg.Fonts.CacheSize, cfg.Fonts.Dirs...)
	a := &app{
		cfg:      cfg,
		log:      log,
		renderer: watermark.NewRenderer(reg, log),
		store:    store,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch rest[0] {
	case "export":
		return a.export(ctx, rest[1:])
	case "preview":
		return a.preview(rest[1:])
	case "template", "templates":
		return a.templates(rest[1:])
	case "fonts":
		for _, f := range reg.Families() {
			fmt.Println(f)
		}
		return 0
	default:
		fmt.Fprintln(os.Stderr, "unknown command:", rest[0])
		global.Usage()
		return 2
	}
}

// exitCode maps an error to the process status: 2 for bad input, 1 otherwise.
func exitCode(err error) int {
	if errors.Is(err, watermark.ErrMissingSource) || errors.Is(err, watermark.ErrOutOfRange) ||
		errors.Is(err, template.ErrInvalidName) || errors.Is(err, errUsage) {
		return 2
	}
	return 1
}
