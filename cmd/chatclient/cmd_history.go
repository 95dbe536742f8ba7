package main

import (
	"github.com/spf13/cobra"

	"moodchat/internal/client"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print recent messages and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		api := client.NewAPI(serverURL, token, nil)

		msgs, err := api.FetchHistory(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}

		view := client.NewView(nil)
		view.SetHistory(msgs)
		for _, m := range view.Tail(tailSize) {
			printMessage(cmd.OutOrStdout(), m, userID)
		}
		return nil
	},
}
