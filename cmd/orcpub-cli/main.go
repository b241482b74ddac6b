// orcpub CLI — инструмент командной строки для импорта оркестраторов
// и работы с каталогом через HTTP API.
//
// Использование:
//
//	orcpub [--api-url URL] [--json] <command> [flags]
//
// Команды:
//
//	import    Импорт пакета оркестратора
//	show      Оркестратор по id
//	versions  Версии оркестратора
//	activate  Активация версии
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/orcpub/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "orcpub",
		Short:         "orcpub CLI — orchestrator import and publishing",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := "http://localhost:8080"
	if v := os.Getenv("ORCPUB_API_URL"); v != "" {
		defaultURL = v
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", defaultURL, "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewImportCmd(clientFn, outputFn),
		cli.NewShowCmd(clientFn, outputFn),
		cli.NewVersionsCmd(clientFn, outputFn),
		cli.NewActivateCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		outputFn().Error(err)
		os.Exit(1)
	}
}
