package main

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ewhitmore/clinic-chat/internal/platform"
	"github.com/ewhitmore/clinic-chat/internal/retrieve"
	"github.com/ewhitmore/clinic-chat/internal/transfer"
)

func openCmd() *cobra.Command {
	var (
		name  string
		mime  string
		share bool
	)

	cmd := &cobra.Command{
		Use:   "open <url>",
		Short: "Download a received attachment and optionally open it",
		Long: `Downloads the attachment at the given URL (absolute or relative to the
configured server) into the download directory. With --share, the file
is handed to the platform's default opener afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			if name == "" {
				name = filepath.Base(args[0])
			}

			pipeline := retrieve.NewPipeline(retrieve.Config{
				Controller:  transfer.NewController(http.DefaultClient, a.logger),
				Delivery:    platform.NewExecDelivery(a.logger),
				BaseURL:     a.cfg.BaseURL,
				Token:       a.client.Token(),
				Dir:         a.cfg.DownloadDir,
				MaxAttempts: a.cfg.MaxOpenAttempts,
			}, a.logger)

			receipt, err := pipeline.Open(context.Background(), retrieve.Request{
				URL:      args[0],
				Filename: name,
				MimeType: mime,
				Share:    share,
			})
			if err != nil {
				return err
			}

			fmt.Println(receipt.Path)

			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "original filename (defaults to the URL's last segment)")
	cmd.Flags().StringVar(&mime, "mime", "", "mime type passed to the platform opener")
	cmd.Flags().BoolVar(&share, "share", false, "hand the downloaded file to the platform opener")

	return cmd
}
