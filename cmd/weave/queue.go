package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/goweave/weave/queue"
)

func newQueueCmd(configPath *string) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue store",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "queue store directory (overrides config)")

	open := func() (*queue.Queue, error) {
		d := dir
		if d == "" {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return nil, err
			}
			d = cfg.QueueDir
		}
		return queue.Open(d)
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show pending and failed job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := open()
			if err != nil {
				return err
			}
			defer q.Close()

			pending, failed, err := q.Stats()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pending: %d\nfailed:  %d\n", pending, failed)
			return nil
		},
	}

	failed := &cobra.Command{
		Use:   "failed",
		Short: "List failed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := open()
			if err != nil {
				return err
			}
			defer q.Close()

			jobs, err := q.Failed()
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no failed jobs")
				return nil
			}
			for _, j := range jobs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-20s attempts=%d  %s\n",
					j.ID, j.Name, j.Attempts, j.LastError)
			}
			return nil
		},
	}

	retry := &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Move a failed job back onto the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := open()
			if err != nil {
				return err
			}
			defer q.Close()

			if err := q.Retry(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "requeued %s\n", args[0])
			return nil
		},
	}

	enqueue := &cobra.Command{
		Use:   "enqueue <name> [payload]",
		Short: "Enqueue a job, payload read from the argument or stdin (-)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload []byte
			if len(args) == 2 {
				if args[1] == "-" {
					data, err := io.ReadAll(cmd.InOrStdin())
					if err != nil {
						return err
					}
					payload = data
				} else {
					payload = []byte(args[1])
				}
			}
			priority, err := cmd.Flags().GetInt("priority")
			if err != nil {
				return err
			}

			q, err := open()
			if err != nil {
				return err
			}
			defer q.Close()

			id, err := q.Enqueue(args[0], payload, priority)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s\n", id)
			return nil
		},
	}
	enqueue.Flags().Int("priority", 10, "job priority, lower runs first")

	cmd.AddCommand(stats, failed, retry, enqueue)
	return cmd
}
