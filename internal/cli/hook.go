package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewHookCmd создаёт группу команд для управления webhook-привязками.
func NewHookCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Manage webhook bindings",
	}

	cmd.AddCommand(
		newHookRegisterCmd(clientFn, outputFn),
		newHookDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newHookRegisterCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "register HOOK_ID --file WORKFLOW.json",
		Short: "Bind a workflow to a webhook endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflow, err := readWorkflowFile(file)
			if err != nil {
				return err
			}

			hook, err := client.RegisterHook(args[0], workflow)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Hook registered: %s", hook.HookID))
			out.Hook(hook)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Workflow definition JSON file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newHookDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete HOOK_ID",
		Short: "Remove a webhook binding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteHook(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Hook deleted: %s", args[0]))
			return nil
		},
	}
}
