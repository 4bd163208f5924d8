package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MrWong99/wakebench/internal/history"
)

func (c *cli) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recent runs, or show one run",
		Long: `List the most recent runs recorded in the history database, or print the
full report of a single run. Requires history.postgres_dsn or
$` + envPostgresDSN + `.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.persistent {
				slog.Warn("no history database configured; only runs of this process are known")
			}
			ctx := cmd.Context()

			if len(args) == 1 {
				rec, err := c.store.Get(ctx, args[0])
				if errors.Is(err, history.ErrNotFound) {
					return &exitError{code: exitSilent, err: fmt.Errorf("run %s not found", args[0])}
				}
				if err != nil {
					return &exitError{code: exitAborted, err: err}
				}
				return c.writeRecord(rec)
			}

			records, err := c.store.List(ctx, limit)
			if err != nil {
				return &exitError{code: exitAborted, err: err}
			}
			if err := writeHistory(c.out, c.format, records); err != nil {
				return &exitError{code: exitAborted, err: err}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "number of runs to list")
	return cmd
}

func (c *cli) writeRecord(rec history.Record) error {
	if c.format != "text" {
		return encode(c.out, c.format, rec)
	}
	fmt.Fprintf(c.out, "run id:     %s\n", rec.RunID)
	fmt.Fprintf(c.out, "started:    %s (%s)\n", rec.StartedAt.Local().Format("2006-01-02 15:04:05"), rec.Duration)
	fmt.Fprintf(c.out, "source:     %s\n", rec.Source)
	fmt.Fprintf(c.out, "model:      %s\n", rec.Model)
	fmt.Fprintf(c.out, "backend:    %s\n", rec.Backend)
	writeReportText(c.out, rec.Report)
	if rec.Error != "" {
		fmt.Fprintf(c.out, "aborted:    %s\n", rec.Error)
	}
	return nil
}
