package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hangarshare/cli/pkg/api"
	"github.com/hangarshare/cli/pkg/config"
	"github.com/hangarshare/cli/pkg/errors"
	"github.com/hangarshare/cli/pkg/formatter"
	"github.com/hangarshare/cli/pkg/prompter"
	"github.com/hangarshare/cli/pkg/store"
)

var (
	cacheClearType string
	cacheClearYes  bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the local catalog cache",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cached catalog snapshots",
	RunE:  runCacheInfo,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard cached catalog snapshots",
	Long: `Clear removes the persisted catalog snapshots so the next
browse rebuilds them from the server.`,
	RunE: runCacheClear,
}

func init() {
	cacheClearCmd.Flags().StringVarP(&cacheClearType, "type", "t", "", "Only clear one entity type: textures or packs")
	cacheClearCmd.Flags().BoolVarP(&cacheClearYes, "yes", "y", false, "Skip the confirmation prompt")

	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	st, err := store.New(config.GetCacheDir())
	if err != nil {
		return errors.CacheError("could not open local cache", err)
	}

	keys, err := st.Keys()
	if err != nil {
		return errors.CacheError("could not list cache entries", err)
	}

	if len(keys) == 0 {
		formatter.PrintInfo("Cache is empty")
		return nil
	}

	headers := []string{"Key", "Records", "Stored at"}
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		entry, err := st.Get(key)
		if err != nil || entry == nil {
			continue
		}
		rows = append(rows, []string{
			entry.Key,
			fmt.Sprintf("%d", len(entry.Records)),
			entry.StoredAt.Format("2006-01-02 15:04:05"),
		})
	}

	formatter.PrintTable(headers, rows)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	st, err := store.New(config.GetCacheDir())
	if err != nil {
		return errors.CacheError("could not open local cache", err)
	}

	var keys []string
	if cacheClearType != "" {
		entity, ok := api.ParseEntityType(cacheClearType)
		if !ok {
			return errors.ValidationError("type", "must be 'textures' or 'packs'")
		}
		keys = []string{store.DatasetKey(entity)}
	} else {
		keys, err = st.Keys()
		if err != nil {
			return errors.CacheError("could not list cache entries", err)
		}
	}

	if len(keys) == 0 {
		formatter.PrintInfo("Cache is already empty")
		return nil
	}

	if !cacheClearYes {
		if !prompter.IsInteractive() {
			return errors.ValidationError("yes", "confirmation needs a terminal; pass --yes to clear non-interactively")
		}
		confirmed, err := prompter.PromptConfirm(fmt.Sprintf("Discard %d cached snapshot(s)?", len(keys)))
		if err != nil {
			return err
		}
		if !confirmed {
			formatter.PrintInfo("Aborted")
			return nil
		}
	}

	for _, key := range keys {
		if err := st.Clear(key); err != nil {
			return errors.CacheError(fmt.Sprintf("could not clear %s", key), err)
		}
	}

	formatter.PrintSuccess("Cache cleared")
	return nil
}
