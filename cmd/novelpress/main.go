package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/mogura/novelpress/internal/build"
	"github.com/mogura/novelpress/internal/config"
	"github.com/mogura/novelpress/internal/verify"
	"github.com/mogura/novelpress/internal/watch"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"novelpress.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
	} `cmd:"" help:"Publish the content tree to the output directory"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Verify struct {
	} `cmd:"" help:"Check the published output tree for broken internal links"`

	Watch struct {
	} `cmd:"" help:"Watch the content tree and republish on changes"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	switch ctx.Command() {
	case "build":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runBuild(cfg); err != nil {
			slog.Error("Build failed", "error", err)
			os.Exit(1)
		}
	case "init":
		if err := runInit(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
	case "verify":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runVerify(cfg); err != nil {
			slog.Error("Verify failed", "error", err)
			os.Exit(1)
		}
	case "watch":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			os.Exit(1)
		}
		if err := runWatch(cfg); err != nil {
			slog.Error("Watch failed", "error", err)
			os.Exit(1)
		}
	}
}

// runInit writes the example configuration and, when the content root does
// not exist yet, a starter content tree to publish immediately.
func runInit(configPath string, force bool) error {
	if err := config.Init(configPath, force); err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.Content); err == nil {
		return nil
	}

	starter := map[string]string{
		"self_intro.md":    "# 自己紹介\nここに自己紹介を書きます。\n",
		"css/style.css":    "body {\n    font-family: serif;\n    line-height: 1.8;\n}\n",
		"example/index.md": "# title\n作品タイトル\n# tags\n- サンプル\n# status\n連載中\n# outline\nあらすじをここに書きます。\n",
		"example/001.md":   "# title\n第一話\n# number\n1\n# content\n本文をここに書きます。\n",
	}
	for rel, body := range starter {
		full := filepath.Join(cfg.Content, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
			return err
		}
	}
	fmt.Printf("Starter content tree written to %s\n", cfg.Content)
	return nil
}

func runBuild(cfg *config.Config) error {
	report, err := build.NewRunner(cfg).Run(context.Background())
	if err != nil {
		return err
	}
	fmt.Println(report.Summary())
	if report.Outcome == build.OutcomeFailed || report.Published == 0 {
		os.Exit(1)
	}
	return nil
}

func runVerify(cfg *config.Config) error {
	broken, err := verify.NewService(cfg.Output).Run()
	if err != nil {
		return err
	}
	if len(broken) > 0 {
		for _, b := range broken {
			fmt.Println(b)
		}
		os.Exit(1)
	}
	fmt.Println("All internal links resolve.")
	return nil
}

func runWatch(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(cfg)
	if err != nil {
		return err
	}
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	slog.Info("Shutting down")
	return nil
}
