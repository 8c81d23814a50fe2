package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewRunCmd создаёт группу команд для управления runs.
func NewRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Manage workflow runs",
	}

	cmd.AddCommand(
		newRunStartCmd(clientFn, outputFn),
		newRunShowCmd(clientFn, outputFn),
		newRunWatchCmd(clientFn, outputFn),
		newRunCancelCmd(clientFn, outputFn),
	)

	return cmd
}

func newRunStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string
	var payload []string
	var wait bool

	cmd := &cobra.Command{
		Use:   "start --file WORKFLOW.json",
		Short: "Start a workflow run",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflow, err := readWorkflowFile(file)
			if err != nil {
				return err
			}

			var payloadMap map[string]any
			if len(payload) > 0 {
				payloadMap = make(map[string]any)
				for _, kv := range payload {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid payload format %q, expected KEY=VALUE", kv)
					}
					payloadMap[parts[0]] = parts[1]
				}
			}

			run, err := client.StartRun(workflow, payloadMap)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run started: %s", run.ID))

			if wait {
				run, err = waitForRun(client, run.ID)
				if err != nil {
					return err
				}
			}

			out.Run(run)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Workflow definition JSON file (required)")
	cmd.Flags().StringSliceVar(&payload, "payload", nil, "Trigger payload as KEY=VALUE (repeatable)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the run to finish")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newRunShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.GetRun(args[0])
			if err != nil {
				return err
			}

			out.Run(run)
			return nil
		},
	}
}

func newRunWatchCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "watch ID",
		Short: "Poll a run until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := waitForRun(client, args[0])
			if err != nil {
				return err
			}

			out.Run(run)
			return nil
		},
	}
}

func newRunCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a running run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.CancelRun(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run cancelled: %s", run.ID))
			return nil
		},
	}
}

// readWorkflowFile читает и проверяет JSON-файл workflow.
func readWorkflowFile(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("workflow file %s is not valid JSON", path)
	}
	return data, nil
}

// waitForRun опрашивает run до терминального статуса.
func waitForRun(client *Client, runID string) (*RunResponse, error) {
	for {
		run, err := client.GetRun(runID)
		if err != nil {
			return nil, err
		}

		switch run.Status {
		case "COMPLETED", "FAILED", "CANCELLED":
			return run, nil
		}

		time.Sleep(500 * time.Millisecond)
	}
}
