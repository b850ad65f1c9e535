package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/warranty-tracker/internal/ingest"
)

var skipHidden bool

var processCmd = &cobra.Command{
	Use:   "process [file-or-dir]",
	Short: "Process a receipt file or every receipt under a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

func init() {
	processCmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "Skip hidden files and directories")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	user, err := userID()
	if err != nil {
		return err
	}
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	var results []ingest.Result
	if info.IsDir() {
		var stats ingest.DirStats
		results, stats, err = a.Ingest.SubmitDirectory(ctx, user, args[0], skipHidden)
		if err != nil {
			return err
		}
		logger.Info("cli.directory.submitted", "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
	} else {
		res, err := a.Ingest.Submit(ctx, user, args[0])
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	// Shutdown waits for queued jobs to finish.
	a.Queue.Shutdown(ctx)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tJOB\tSTATUS\tPRODUCT\tERROR")
	for _, r := range results {
		if r.Err != "" {
			fmt.Fprintf(w, "%s\t-\tREJECTED\t-\t%s\n", r.SourcePath, r.Err)
			continue
		}
		job, err := a.Store.Repos().Jobs.GetForUser(ctx, r.JobID, user)
		if err != nil {
			return err
		}
		product, msg := "-", "-"
		if job.ProductID != nil {
			product = job.ProductID.String()
		}
		if job.Error != nil {
			msg = *job.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.SourcePath, job.ID, job.Status, product, msg)
	}
	return w.Flush()
}
