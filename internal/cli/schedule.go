package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewScheduleCmd создаёт группу команд для управления schedules.
func NewScheduleCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage cron schedules",
	}

	cmd.AddCommand(
		newScheduleListCmd(clientFn, outputFn),
		newScheduleCreateCmd(clientFn, outputFn),
		newScheduleDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newScheduleListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			schedules, err := client.ListSchedules()
			if err != nil {
				return err
			}

			out.Schedules(schedules)
			return nil
		},
	}
}

func newScheduleCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string
	var cronExpr string
	var timezone string
	var disabled bool

	cmd := &cobra.Command{
		Use:   "create --file WORKFLOW.json --cron EXPR",
		Short: "Create a cron schedule for a workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflow, err := readWorkflowFile(file)
			if err != nil {
				return err
			}

			req := CreateScheduleRequest{
				Workflow: workflow,
				CronExpr: cronExpr,
				Timezone: timezone,
			}
			if disabled {
				enabled := false
				req.Enabled = &enabled
			}

			schedule, err := client.CreateSchedule(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Schedule created: %s", schedule.ID))
			out.Schedule(schedule)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Workflow definition JSON file (required)")
	cmd.Flags().StringVar(&cronExpr, "cron", "", "5-field cron expression (required)")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone name (default UTC)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the schedule in disabled state")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("cron")

	return cmd
}

func newScheduleDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteSchedule(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Schedule deleted: %s", args[0]))
			return nil
		},
	}
}
