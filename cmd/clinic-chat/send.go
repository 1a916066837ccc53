package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ewhitmore/clinic-chat/internal/engine"
)

func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <text>",
		Short: "Send a text message to the conversation",
		Args:  cobra.MinimumNArgs(1),
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

			text := strings.Join(args, " ")
			if err := session.SendText(context.Background(), text); err != nil {
				return err
			}

			fmt.Println("sent")

			return nil
		},
	}
}

// noAlert swallows alerts for one-shot commands where ringing the bell
// about your own resync would be noise.
type noAlert struct{}

func (noAlert) Alert() {}
