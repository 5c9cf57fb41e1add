package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/alanbriolat/elonet-archiver/internal/history"
)

var errHistoryDisabled = errors.New("history is disabled")

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "show previous downloads",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Value: 20,
				Usage: "show at most `N` jobs, 0 for all",
			},
		},
		Action: func(c *cli.Context) error {
			return withHistory(c, func(store history.Store) error {
				records, err := store.List()
				if err != nil {
					return err
				}
				if limit := c.Int("limit"); limit > 0 && len(records) > limit {
					records = records[:limit]
				}
				return printRecords(c, records)
			})
		},
		Subcommands: []*cli.Command{
			{
				Name:      "delete",
				Usage:     "forget jobs",
				ArgsUsage: "ID...",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return errors.New("no job IDs given")
					}
					return withHistory(c, func(store history.Store) error {
						for _, id := range c.Args().Slice() {
							if err := store.Delete(id); err != nil {
								return fmt.Errorf("failed to delete %v: %w", id, err)
							}
						}
						return nil
					})
				},
			},
		},
	}
}

func withHistory(c *cli.Context, f func(history.Store) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if !cfg.HistoryEnabled() {
		return errHistoryDisabled
	}
	store, err := history.Open(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()
	return f(store)
}

func printRecords(c *cli.Context, records []history.Record) error {
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tSEGMENTS\tMISSING\tOUTPUT\tPAGE")
	for _, r := range records {
		status := string(r.Status)
		if r.Error != "" {
			status += ": " + firstLine(r.Error)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), status, r.Segments, len(r.Dropped), r.OutputPath, r.PageURL)
	}
	return w.Flush()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
