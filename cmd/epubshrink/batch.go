package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/infracollect/epubshrink/internal/runner"
)

var batchCommand = &cli.Command{
	Name:  "batch",
	Usage: "Shrink every book listed in a job file",
	Flags: []cli.Flag{
		newAllowedEnvFlag(),
		newReportFlag(),
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "job",
			UsageText: "The job file listing the books, or - for stdin",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		jobFilename := command.StringArg("job")
		if jobFilename == "" {
			return fmt.Errorf("no job file provided")
		}

		jobFile, displayName, err := readJobFile(ctx, jobFilename)
		if err != nil {
			return fmt.Errorf("failed to read job file '%s': %w", jobFilename, err)
		}

		job, err := runner.ParseShrinkJob(jobFile)
		if err != nil {
			return fmt.Errorf("failed to parse job '%s': %w", displayName, formatValidationError(err))
		}

		logger = logger.With(zap.String("job_filename", displayName))
		results, err := runner.RunJob(ctx, logger, job, command.StringSlice("allowed-env"))

		if isInteractive(ctx) {
			for _, result := range results {
				if result.Err != nil {
					fmt.Fprintf(os.Stderr, "%s: failed: %v\n", result.Input, result.Err)
					continue
				}
				printSummary(os.Stderr, result.Input, result.Output, result.Report)
			}
		}

		if reportPath := command.String("report"); reportPath != "" {
			if reportErr := runner.WriteReport(ctx, afero.NewOsFs(), reportPath, runner.BookReports(results)); reportErr != nil {
				logger.Error("failed to write report", zap.Error(reportErr))
			}
		}

		if err != nil {
			return fmt.Errorf("job '%s' failed: %w", job.Metadata.Name, err)
		}
		return nil
	},
}

func newAllowedEnvFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:  "allowed-env",
		Usage: "Environment variables allowed in job configuration (can be repeated)",
	}
}
