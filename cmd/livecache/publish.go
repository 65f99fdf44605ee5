package main

import (
	"encoding/json"
	"fmt"

	lc "github.com/huykn/livecache"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	publishGroup string
	publishStore string
)

var publishCmd = &cobra.Command{
	Use:   "publish <event> <action> <json>",
	Short: "Publish one data message",
	Long: `Publishes a data message with the given action (upsert, remove,
batch-upsert or batch-remove) and JSON payload, on the default channel or to
--group. With --store the payload is first written to the store under that key,
so hydrating watchers can read it.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		event, action, raw := args[0], lc.Action(args[1]), args[2]
		if !action.Known() {
			return fmt.Errorf("unknown action %q", action)
		}

		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return fmt.Errorf("payload is not JSON: %w", err)
		}

		_, logg, c, err := connect(nil)
		if err != nil {
			return err
		}
		defer logg.Sync()
		defer c.Close()

		ctx := cmd.Context()
		if publishStore != "" {
			if err := c.Store.Set(ctx, publishStore, []byte(raw)); err != nil {
				return fmt.Errorf("store %s: %w", publishStore, err)
			}
		}

		if err := c.Publish(ctx, publishGroup, event, action, data); err != nil {
			return err
		}
		logg.Info("Published", zap.String("event", event), zap.String("action", string(action)), zap.String("group", publishGroup))
		return nil
	},
}

func init() {
	publishCmd.Flags().StringVar(&publishGroup, "group", "", "group to publish to; empty means the default channel")
	publishCmd.Flags().StringVar(&publishStore, "store", "", "store key to write the payload to before publishing")
	RootCmd.AddCommand(publishCmd)
}
