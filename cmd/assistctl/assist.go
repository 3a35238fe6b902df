package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"content-assist/internal/bootstrap"
	"content-assist/internal/config"
	"content-assist/internal/logging"
	"content-assist/internal/usecase"
)

func newAssistCmd() *cobra.Command {
	var requestID string

	cmd := &cobra.Command{
		Use:   "assist <query>",
		Short: "Ask the assistant a question and print the JSON answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(os.LookupEnv)
			if err != nil {
				return err
			}
			logger := logging.New(logging.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON, Output: cmd.ErrOrStderr()})

			app, err := bootstrap.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			out, err := app.Assist.Assist(cmd.Context(), usecase.AssistInput{
				Query:     strings.Join(args, " "),
				RequestID: requestID,
			})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out.Answer)
		},
	}
	cmd.Flags().StringVar(&requestID, "request-id", "", "idempotency key (UUID); repeats return the cached answer")
	return cmd
}
