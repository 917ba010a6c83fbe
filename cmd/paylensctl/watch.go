package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/PayLens/internal/hermes"
)

var watchSubject string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print PayLens events as they are published",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchSubject, "subject", hermes.SubjectAll, "subject filter")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	out := cmd.OutOrStdout()
	events := make(chan string, 64)
	err = client.Subscribe(watchSubject, func(subject string, data []byte) {
		select {
		case events <- fmt.Sprintf("%s %s", subject, data):
		default:
			logger.Warn("dropping event, output is behind", "subject", subject)
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s on %s\n", watchSubject, cfg.Hermes.URL)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-events:
			fmt.Fprintln(out, line)
		}
	}
}
