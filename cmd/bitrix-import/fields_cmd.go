package main

import (
	"github.com/spf13/cobra"

	"github.com/iota-uz/bitrix-import/pkg/bitrix"
)

func newFieldsCmd() *cobra.Command {
	var webhook string

	cmd := &cobra.Command{
		Use:   "fields",
		Short: "List importable contact fields of the remote portal as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolveWebhook(webhook)
			if err != nil {
				return err
			}
			client, err := bitrix.NewClient(resolved)
			if err != nil {
				return withCode(exitUsage, err)
			}

			fields, err := client.FetchContactFields(cmd.Context())
			if err != nil {
				return withCode(exitRemote, err)
			}
			for _, f := range fields {
				if err := writeJSONLine(cmd.OutOrStdout(), f); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&webhook, "webhook", "", "Full Bitrix24 inbound webhook URL (overrides BITRIX_WEBHOOK_URL)")
	return cmd
}
