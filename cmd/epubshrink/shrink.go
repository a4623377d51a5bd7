package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/infracollect/epubshrink/internal/engine/transform"
	"github.com/infracollect/epubshrink/internal/runner"
)

var shrinkCommand = &cli.Command{
	Name:  "shrink",
	Usage: "Shrink a single EPUB file",
	Description: `Recompresses the JPEG, PNG and GIF images of an EPUB and rewrites the
container with maximum deflate compression. Every other entry is copied
byte for byte.

OUTPUT may be a file, an existing directory (the input file name is kept),
"-" for stdout, or an s3://bucket/key URL.`,
	Flags: append([]cli.Flag{
		&cli.IntFlag{
			Name:  "jpeg-quality",
			Value: transform.DefaultJPEGQuality,
			Usage: "JPEG quality (1-100)",
		},
		&cli.FloatFlag{
			Name:  "image-resize-percent",
			Usage: "Scale images to this percentage of their size, in (0-100]; larger values are rejected since images are never enlarged",
		},
		&cli.IntFlag{
			Name:  "image-resize-maxwidth",
			Usage: "Scale images wider than this many pixels down to this width",
		},
		&cli.StringFlag{
			Name:  "image-resize-resample",
			Value: string(transform.DefaultResample),
			Usage: "Resampling filter (" + strings.Join(lo.Map(transform.Resamples, func(r transform.Resample, _ int) string { return string(r) }), ", ") + ")",
		},
		&cli.BoolFlag{
			Name:  "grayscale",
			Usage: "Convert images to grayscale",
		},
		&cli.IntFlag{
			Name:  "concurrency",
			Value: 1,
			Usage: "Number of entries processed at once",
		},
		newReportFlag(),
	}, s3Flags...),
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "input",
			UsageText: "The EPUB file to shrink",
		},
		&cli.StringArg{
			Name:      "output",
			UsageText: "Where to write the shrunk EPUB",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		opts := shrinkOptions(command)
		if opts.Input == "" || opts.Output == "" {
			return fmt.Errorf("input and output paths are required")
		}

		r, err := runner.New(logger.Named("runner"), opts)
		if err != nil {
			return fmt.Errorf("failed to create runner: %w", err)
		}

		report, err := r.Run(ctx)
		if err != nil {
			return fmt.Errorf("failed to shrink %s: %w", opts.Input, err)
		}

		if isInteractive(ctx) {
			printSummary(os.Stderr, opts.Input, r.Destination(), report)
		}

		if reportPath := command.String("report"); reportPath != "" {
			if err := runner.WriteReport(ctx, afero.NewOsFs(), reportPath, report); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
		}

		return nil
	},
}

var s3Flags = []cli.Flag{
	&cli.StringFlag{
		Name:    "s3-region",
		Usage:   "AWS region for s3:// outputs",
		Sources: cli.EnvVars("AWS_REGION"),
	},
	&cli.StringFlag{
		Name:  "s3-endpoint",
		Usage: "Custom endpoint for S3-compatible storage (MinIO, R2, ...)",
	},
	&cli.BoolFlag{
		Name:  "s3-force-path-style",
		Usage: "Use path-style addressing for S3",
	},
}

func newReportFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "report",
		Usage: "Write a per-entry report to this file (.json or .yaml, - for stdout)",
	}
}

func shrinkOptions(command *cli.Command) runner.Options {
	opts := runner.DefaultOptions()
	opts.Input = command.StringArg("input")
	opts.Output = command.StringArg("output")

	opts.Transform.JPEGQuality = command.Int("jpeg-quality")
	if command.IsSet("image-resize-percent") {
		opts.Transform.ResizePercent = lo.ToPtr(command.Float("image-resize-percent"))
	}
	if command.IsSet("image-resize-maxwidth") {
		opts.Transform.MaxWidth = lo.ToPtr(command.Int("image-resize-maxwidth"))
	}
	opts.Transform.Resample = transform.Resample(command.String("image-resize-resample"))
	opts.Transform.Grayscale = command.Bool("grayscale")
	opts.Concurrency = command.Int("concurrency")

	opts.S3 = runner.S3Options{
		Region:         command.String("s3-region"),
		Endpoint:       command.String("s3-endpoint"),
		ForcePathStyle: command.Bool("s3-force-path-style"),
	}

	return opts
}
