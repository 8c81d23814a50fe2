package cli

import (
	"github.com/spf13/cobra"
)

// NewPluginCmd создаёт группу команд для просмотра плагинов.
func NewPluginCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Inspect registered node types",
	}

	cmd.AddCommand(newPluginListCmd(clientFn, outputFn))

	return cmd
}

func newPluginListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered node types",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			plugins, err := client.ListPlugins(category)
			if err != nil {
				return err
			}

			out.Plugins(plugins)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Filter by category (Core, Data, AI)")

	return cmd
}
