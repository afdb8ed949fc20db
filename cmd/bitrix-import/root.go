package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "bitrix-import",
		Short:         "Batch-import spreadsheet contacts into Bitrix24 over an inbound webhook",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newFieldsCmd())
	cmd.AddCommand(newMapCmd())
	cmd.AddCommand(newImportCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
