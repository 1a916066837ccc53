package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ewhitmore/clinic-chat/internal/engine"
	"github.com/ewhitmore/clinic-chat/internal/platform"
	"github.com/ewhitmore/clinic-chat/internal/upload"
)

func uploadCmd() *cobra.Command {
	var mimeType string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file as an attachment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			session := engine.NewSession(engine.Config{
				ConversationID: a.cfg.ConversationID,
				API:            a.client,
				Alerter:        noAlert{},
				Store:          a.store,
			}, a.logger)

			pipeline := upload.NewPipeline(
				a.cfg.ConversationID,
				a.client,
				session,
				platform.NewLogNavigator(a.logger),
				a.logger,
			)

			if err := pipeline.Upload(context.Background(), args[0], mimeType); err != nil {
				return err
			}

			fmt.Println("uploaded")

			return nil
		},
	}

	cmd.Flags().StringVar(&mimeType, "mime", "", "mime type override (derived from the extension when empty)")

	return cmd
}
