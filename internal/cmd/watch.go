package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hangarshare/cli/pkg/api"
	"github.com/hangarshare/cli/pkg/errors"
	"github.com/hangarshare/cli/pkg/formatter"
	"github.com/hangarshare/cli/pkg/syncx"
)

var watchType string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the live change stream",
	Long: `Watch tails insert/update/delete notifications for an entity
type as they happen at the source of truth. Bursty notifications are
collapsed through a short debounce window before being shown.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchType, "type", "t", "textures", "Entity type: textures or packs")
}

func runWatch(cmd *cobra.Command, args []string) error {
	entity, ok := api.ParseEntityType(watchType)
	if !ok {
		return errors.ValidationError("type", "must be 'textures' or 'packs'")
	}

	dialer := syncx.NewWSDialer(channelConfig())

	// No cache here: watch only displays the stream
	cfg := subscriptionConfig(entity)
	cfg.CacheKey = ""
	sub := syncx.NewSubscription(dialer, nil, cfg)

	sub.SetHandlers(syncx.Handlers{
		OnInsert: func(ev syncx.Event) {
			displayEvent("+", fmt.Sprintf("%q by %s was published", ev.Record.Title, ev.Record.Author))
		},
		OnUpdate: func(ev syncx.Event) {
			displayEvent("~", fmt.Sprintf("%q changed (votes %+d, downloads %d)",
				ev.Record.Title, ev.Record.NetVotes(), ev.Record.DownloadCount))
		},
		OnDelete: func(ev syncx.Event) {
			displayEvent("-", fmt.Sprintf("%q was removed", ev.Record.Title))
		},
		OnError: func(err error) {
			formatter.PrintWarning("%s", err.Error())
		},
	})
	sub.Start()
	defer sub.Close()

	formatter.PrintInfo("Watching %s changes. Press Ctrl+C to stop", entity)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		fmt.Println()
		formatter.PrintSuccess("Watcher stopped")
		return nil
	case <-cmd.Context().Done():
		return cmd.Context().Err()
	}
}

func displayEvent(marker, message string) {
	timestamp := time.Now().Format("15:04:05")
	fmt.Printf("[%s] %s %s\n", timestamp, marker, message)
}
