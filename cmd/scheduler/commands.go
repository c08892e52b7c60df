package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/SeunOnTech/sol-stake-backend/internal/model"
	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
	"github.com/SeunOnTech/sol-stake-backend/internal/scheduler"
)

func newSetupCmd(a *app) *cobra.Command {
	var preset string
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the fetch and score jobs for a preset, replacing existing ones",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if preset == "" {
				preset = a.cfg.Scheduler.Preset
			}

			regs, err := a.registry.Setup(ctx, scheduler.Preset(preset))
			if err != nil {
				return err
			}
			printRegistrations(regs)

			audit, closeDB, err := a.auditStore(ctx)
			defer closeDB()
			if err != nil {
				logIfErr(ctx, "skipping scheduler audit entry", err)
				return nil
			}
			meta, _ := json.Marshal(map[string]any{"preset": preset, "jobs": len(regs)})
			_, err = audit.Create(ctx, &model.AuditEntry{
				ID:       a.ids.Next(),
				Action:   model.AuditActionSchedulerSetup,
				Metadata: meta,
			})
			logIfErr(ctx, "failed to write scheduler audit entry", err)
			return nil
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "", "interval preset: fast or slow (defaults to SCHEDULER_PRESET)")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show registered repeatable jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			regs, err := a.registry.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(regs)
			}
			printRegistrations(regs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newRemoveAllCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-all",
		Short: "Remove every repeatable job registration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := a.registry.RemoveAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("removed %d registrations\n", n)
			return nil
		},
	}
}

func newEnqueueCmd(a *app) *cobra.Command {
	var (
		priority int
		delay    time.Duration
	)
	cmd := &cobra.Command{
		Use:       "enqueue fetch|score",
		Short:     "Enqueue a one-off task",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(queue.TaskTypeFetch), string(queue.TaskTypeScore)},
		RunE: func(cmd *cobra.Command, args []string) error {
			taskType := queue.TaskType(args[0])
			if !taskType.Valid() {
				return fmt.Errorf("unknown task type %q", args[0])
			}
			h, err := a.producer.Enqueue(cmd.Context(), taskType, nil, queue.EnqueueOptions{
				Priority: priority,
				Delay:    delay,
			})
			if err != nil {
				return err
			}
			fmt.Printf("enqueued %s task %s (%s)\n", h.Type, h.ID, h.State)
			return nil
		},
	}
	cmd.Flags().IntVar(&priority, "priority", 0, "a positive value uses the priority stream")
	cmd.Flags().DurationVar(&delay, "delay", 0, "delay before the task becomes visible")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show queue depth per state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			counts, err := a.producer.Counts(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(counts)
		},
	}
}

func newAuditCmd(a *app) *cobra.Command {
	var limit int32
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the most recent audit entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			audit, closeDB, err := a.auditStore(cmd.Context())
			defer closeDB()
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			entries, err := audit.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tAT\tACTION\tMETADATA")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.ID, e.CreatedAt.Format(time.RFC3339), e.Action, e.Metadata)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int32Var(&limit, "limit", 20, "number of entries")
	return cmd
}

func printRegistrations(regs []scheduler.Registration) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tPRESET\tEVERY\tKEEP COMPLETED\tKEEP FAILED")
	for _, r := range regs {
		ret := r.Retention()
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Type, r.Preset, r.Every(), ret.KeepCompleted, ret.KeepFailed)
	}
	_ = w.Flush()
}
