package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ledgerbook/ledger/cmd/ledger/cli"
)

var errJobsUsage = errors.New("usage: ledger jobs trigger <task> | ledger jobs stats")

// runJobs serves the jobs subcommand against the asynq queue at redisAddr.
func runJobs(ctx context.Context, redisAddr string, args []string, out io.Writer) (err error) {
	if len(args) == 0 {
		return errJobsUsage
	}
	c := cli.NewJobsCLI(redisAddr)
	defer func() { err = errors.Join(err, c.Close()) }()

	switch args[0] {
	case "trigger":
		if len(args) != 2 {
			return errJobsUsage
		}
		info, err := c.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return err
	case "stats":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return err
	default:
		return errJobsUsage
	}
}
