package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/image-upscaler/backend/internal/app"
	"github.com/image-upscaler/backend/internal/client"
	"github.com/image-upscaler/backend/internal/config"
	"github.com/image-upscaler/backend/internal/upscale"
	"github.com/image-upscaler/backend/internal/widget"
	"github.com/urfave/cli/v3"
)

const defaultConfigName = "upscaler.config.xml"

func cmd() *cli.Command {
	return &cli.Command{
		Name:    "upscaler",
		Usage:   "Image upscaling server and tools",
		Version: Version,
		Flags:   flags(),
		Action:  serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server (default)",
				Action: serve,
			},
			{
				Name:      "upscale",
				Usage:     "Upscale a single image file",
				ArgsUsage: "[input] [output]",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "scale",
						Aliases: []string{"s"},
						Value:   4,
						Usage:   "Set the scale factor",
						Sources: cli.EnvVars("UPSCALE_SCALE"),
					},
					&cli.StringFlag{
						Name:    "kernel",
						Aliases: []string{"k"},
						Value:   upscale.DefaultKernel,
						Usage:   "Set the resampling kernel (nearest, approx-bilinear, bilinear, catmull-rom)",
					},
				},
				Action: upscaleFile,
			},
			{
				Name:      "submit",
				Usage:     "Send an image to a running server and save the result",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "server",
						Value: "http://127.0.0.1:5000",
						Usage: "Set the server base `URL`",
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Value:   ".",
						Usage:   "Write the upscaled image to `DIR`",
					},
				},
				Action: submit,
			},
		},
	}
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:      "config",
			Aliases:   []string{"c"},
			Usage:     "Load configuration from `FILE` (created with defaults when missing)",
			Validator: validateConfig,
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Override the configured HTTP port",
		},
	}
}

func logger(ctx context.Context) (*slog.Logger, error) {
	log, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	if !ok {
		return nil, errors.New("failed to get logger from context")
	}
	return log, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	log, err := logger(ctx)
	if err != nil {
		return err
	}

	configPath, err := resolveConfigPath(cmd.String("config"))
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = int(cmd.Int("port"))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Advanced.LogLevel)); err != nil {
		log.Warn("unknown log level, using info", slog.String("level", cfg.Advanced.LogLevel))
		level = slog.LevelInfo
	}
	logLevel.Set(level)

	return app.New(log, cfg, app.BuildInfo{
		Version:    Version,
		BuildTime:  BuildTime,
		ConfigPath: configPath,
	}, cmd.Root().Writer).Run(ctx)
}

func upscaleFile(ctx context.Context, cmd *cli.Command) error {
	input := cmd.Args().Get(0)
	if input == "" {
		input = "source.png"
	}
	output := cmd.Args().Get(1)
	if output == "" {
		output = "output.png"
	}

	if _, err := os.Stat(input); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("input image not found: %s", input)
		}
		return fmt.Errorf("failed to stat %q: %w", input, err)
	}

	resampler, err := upscale.NewResampler(int(cmd.Int("scale")), cmd.String("kernel"), 0)
	if err != nil {
		return err
	}

	if err := upscale.UpscaleFile(ctx, resampler, input, output); err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "Upscaled image saved to %s\n", output)
	return nil
}

func submit(ctx context.Context, cmd *cli.Command) error {
	log, err := logger(ctx)
	if err != nil {
		return err
	}

	path := cmd.Args().First()
	if path == "" {
		return errors.New("missing image file argument")
	}

	file, err := widget.LoadFile(path)
	if err != nil {
		return err
	}

	w := widget.New(
		client.New(cmd.String("server"), client.WithLogger(log)),
		widget.WithLogger(log),
	)

	if err := w.SelectFile(file); err != nil {
		return fmt.Errorf("%s: %w", file.Name, err)
	}

	view := w.View()
	fmt.Fprintf(cmd.Root().Writer, "%s (%s)\n", view.FileName, view.FileSize)

	if err := w.Process(ctx); err != nil {
		return fmt.Errorf("%s: %w", file.Name, err)
	}

	artifact, ok := w.Download()
	if !ok {
		return errors.New("server returned no result")
	}

	saved, err := artifact.Save(cmd.String("out"))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "%s\nSaved to %s\n", w.Status().Message, saved)
	return nil
}

// resolveConfigPath defaults to a config file next to the executable.
func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}

	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	return filepath.Join(filepath.Dir(exePath), defaultConfigName), nil
}

func validateConfig(config string) error {
	info, err := os.Stat(config)
	if err == nil && info.IsDir() {
		return fmt.Errorf("%q is a directory, not a file", config)
	}

	switch ext := strings.ToLower(filepath.Ext(config)); ext {
	case ".xml", ".config", ".yaml", ".yml":
		return nil
	default:
		return fmt.Errorf("invalid extension %q", config)
	}
}
