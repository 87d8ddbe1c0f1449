package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/certledger/certledger/cmd/certledger/config"
	"github.com/certledger/certledger/storage/model"
)

var rootCmd = &cobra.Command{
	Use:               "certcli",
	Short:             "certcli can help you manage your certledger instance",
	Long:              "certcli can help you manage your certledger instance",
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
}

var configFile string
var backs model.Backends

func loadConfig(*cobra.Command, []string) error {
	config.Load(configFile)
	log.Debug("Loaded Config")
	if err := config.UseCache(config.Get().Caching); err != nil {
		return err
	}
	var err error
	backs, err = config.LoadStorageBackends(config.Get().Storage)
	return err
}

func printTable(header []string, rows [][]string) {
	if len(rows) == 0 {
		color.Yellow("nothing found")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.AppendBulk(rows)
	table.Render()
}

func success(format string, args ...any) {
	color.Green(format, args...)
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "the config file to use")
	rootCmd.AddCommand(tokenCmd, institutionsCmd, certificatesCmd, issuancesCmd, operatorsCmd)
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, color.RedString(err.Error()))
		os.Exit(1)
	}
}
