// Conductor CLI — инструмент командной строки для управления
// runs, schedules и webhook-привязками через HTTP API.
//
// Использование:
//
//	conductor [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	run       Управление runs
//	plugin    Просмотр зарегистрированных типов узлов
//	schedule  Управление cron-расписаниями
//	hook      Управление webhook-привязками
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Conductor/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "conductor",
		Short:         "Conductor CLI — workflow execution tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewRunCmd(clientFn, outputFn),
		cli.NewPluginCmd(clientFn, outputFn),
		cli.NewScheduleCmd(clientFn, outputFn),
		cli.NewHookCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
