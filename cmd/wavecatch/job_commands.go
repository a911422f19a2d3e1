package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wavecatch/internal/api"
	"wavecatch/internal/ipc"
	"wavecatch/internal/jobs"
)

func newJobCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newSubmitCommand(ctx),
		newCancelCommand(ctx),
		newAnalyzeCommand(ctx),
		newJobsCommand(ctx),
		newShowCommand(ctx),
		newRemoveCommand(ctx),
		newClearCommand(ctx),
	}
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		quality     string
		outputDir   string
		noThumbnail bool
		noMetadata  bool
		wait        bool
	)
	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Queue a link for audio download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ipc.SubmitRequest{
				URL:       strings.TrimSpace(args[0]),
				Quality:   quality,
				OutputDir: outputDir,
			}
			if cmd.Flags().Changed("no-thumbnail") {
				req.EmbedThumbnail = boolPtr(!noThumbnail)
			}
			if cmd.Flags().Changed("no-metadata") {
				req.EmbedMetadata = boolPtr(!noMetadata)
			}
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				var since uint64
				if wait {
					cursor, err := currentCursor(cmd.Context(), client)
					if err != nil {
						return err
					}
					since = cursor
				}
				resp, err := client.Submit(cmd.Context(), req)
				if err != nil {
					return err
				}
				job := resp.Job
				fmt.Fprintf(stdout, "Queued %s (%s, %s) -> %s\n", job.ID, jobTitle(job), job.QualityLabel, job.OutputDir)
				if !wait {
					return nil
				}
				return waitForJob(cmd, client, job.ID, since)
			})
		},
	}
	cmd.Flags().StringVarP(&quality, "quality", "q", "", "Audio quality: low (128k), medium (192k) or high (320k)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (defaults to paths.output_dir)")
	cmd.Flags().BoolVar(&noThumbnail, "no-thumbnail", false, "Do not embed the thumbnail as cover art")
	cmd.Flags().BoolVar(&noMetadata, "no-metadata", false, "Do not embed title and artist metadata")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Follow the job until it finishes")
	return cmd
}

// waitForJob prints updates for id until it reaches a terminal state. A job
// ending in error is returned as an error so the exit status reflects it.
func waitForJob(cmd *cobra.Command, client *ipc.Client, id string, since uint64) error {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)
	var final api.Job
	err := followUpdates(cmd.Context(), client, since, func(update api.JobUpdate) error {
		if update.Job.ID != id {
			return nil
		}
		if update.Type == "removed" {
			return fmt.Errorf("job %s was removed", id)
		}
		fmt.Fprintln(stdout, updateLine(update, colorize))
		state := api.ToState(update.Job.State)
		if state.IsTerminal() {
			final = update.Job
			return errStopFollowing
		}
		return nil
	})
	if err != nil {
		return err
	}
	if final.State.Kind == string(jobs.KindError) {
		return errors.New(friendlyError(final.State.Message))
	}
	return nil
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a running download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Cancel(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Cancelled {
					fmt.Fprintf(stdout, "Cancelled %s\n", resp.Job.ID)
					return nil
				}
				fmt.Fprintf(stdout, "Job %s already finished (%s)\n", resp.Job.ID, strings.ToLower(stateLabel(resp.Job.State)))
				return nil
			})
		},
	}
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Probe a link and report whether it is a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Analyze(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				stdout := cmd.OutOrStdout()
				for _, state := range resp.States {
					fmt.Fprintf(stdout, "%-10s %s\n", stateLabel(state), stateDetail(state))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var (
		asJSON bool
		state  string
	)
	cmd := &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"list", "ls"},
		Short:   "List download jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Jobs(cmd.Context())
				if err != nil {
					return err
				}
				list := filterJobs(resp.Jobs, state)
				if asJSON {
					return writeJSON(cmd, list)
				}
				stdout := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(stdout, "No jobs")
					return nil
				}
				fmt.Fprint(stdout, renderTable(jobColumns(), buildJobRows(list, shouldColorize(stdout))))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&state, "state", "", "Only show jobs in this state (e.g. downloading, completed, error)")
	return cmd
}

func filterJobs(list []api.Job, state string) []api.Job {
	state = strings.ToLower(strings.TrimSpace(state))
	if state == "" {
		return list
	}
	out := make([]api.Job, 0, len(list))
	for _, job := range list {
		if job.State.Kind == state {
			out = append(out, job)
		}
	}
	return out
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show details for a single job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Job(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Job)
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintln(stdout, strings.Join(jobDetailLines(resp.Job, shouldColorize(stdout)), "\n"))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove finished jobs from the list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Remove(cmd.Context(), args)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", resp.Removed)
				return nil
			})
		},
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every finished job from the list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d finished job(s)\n", resp.Removed)
				return nil
			})
		},
	}
}

func boolPtr(v bool) *bool { return &v }
