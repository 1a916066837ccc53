package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ewhitmore/clinic-chat/internal/chat"
	"github.com/ewhitmore/clinic-chat/internal/engine"
	"github.com/ewhitmore/clinic-chat/internal/platform"
	"github.com/ewhitmore/clinic-chat/internal/upload"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll the conversation and print messages as they arrive",
		Long: `Polls the conversation on a fixed interval, printing the message list
as it changes and ringing the bell when the clinic writes. When an
outbox directory is configured, files dropped into it are uploaded
automatically.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon()
		},
	}
}

func runDaemon() error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	a.logger.Info("clinic-chat starting",
		slog.String("version", Version),
		slog.String("conversation", a.cfg.ConversationID),
		slog.Duration("interval", a.cfg.PollInterval),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	delivery := platform.NewExecDelivery(a.logger)
	printer := &messagePrinter{}

	session := engine.NewSession(engine.Config{
		ConversationID: a.cfg.ConversationID,
		API:            a.client,
		Alerter:        delivery,
		Store:          a.store,
		Interval:       a.cfg.PollInterval,
		OnUpdate:       printer.print,
	}, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return session.Run(gctx)
	})

	if a.cfg.OutboxDir != "" {
		pipeline := upload.NewPipeline(
			a.cfg.ConversationID,
			a.client,
			session,
			platform.NewLogNavigator(a.logger),
			a.logger,
		)
		outbox := upload.NewOutbox(a.cfg.OutboxDir, pipeline, a.logger)

		g.Go(func() error {
			return outbox.Watch(gctx)
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}

	return nil
}

// messagePrinter writes messages to stdout, printing only what is new
// since the previous snapshot. The engine calls it from the poll cycle,
// so no locking is needed.
type messagePrinter struct {
	printed int
}

func (p *messagePrinter) print(msgs []chat.Message) {
	// The view is replaced wholesale; a shrinking list means printed
	// messages are gone and the tail restarts.
	if len(msgs) < p.printed {
		p.printed = len(msgs)
		return
	}

	for _, m := range msgs[p.printed:] {
		body := m.Body
		if m.Attachment != nil {
			body = fmt.Sprintf("[%s: %s] %s", m.Kind, m.Attachment.Name, body)
		}

		fmt.Fprintf(os.Stdout, "%s %s: %s\n", m.CreatedAt.Local().Format("15:04"), m.Sender, body)
	}

	p.printed = len(msgs)
}
