package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "payments-authorizenet",
		Short:        "Authorize.Net payment service",
		Long:         `Hosts Authorize.Net card payments and ARB subscriptions behind a payment page, an internal API and a refund worker.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newWorkerCommand(),
		newTokenCommand(),
		newRetryJobCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
