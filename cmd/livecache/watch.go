package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	lc "github.com/huykn/livecache"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchFlags queryFlags

var watchCmd = &cobra.Command{
	Use:   "watch <event> <list-key>",
	Short: "Watch a stored list and print it on every change",
	Long: `Fetches the JSON list stored under list-key, then applies every data
message published under event and prints the resulting list.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, logg, c, err := connect(nil)
		if err != nil {
			return err
		}
		defer logg.Sync()
		defer c.Close()

		q, err := watchList(ctx, c, args[0], args[1], watchFlags)
		if err != nil {
			return err
		}
		defer q.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		q.Observe(func(list []lc.Record) {
			if err := enc.Encode(list); err != nil {
				logg.Warn("Failed to print snapshot", zap.Error(err))
			}
		})

		if err := q.Wait(ctx); err != nil {
			return fmt.Errorf("initial fetch: %w", err)
		}
		logg.Info("Watching", zap.String("event", args[0]), zap.String("list", args[1]), zap.String("group", watchFlags.group))

		<-ctx.Done()
		logg.Info("Stopping", zap.Any("stats", c.Stats()))
		return nil
	},
}

func init() {
	watchFlags.register(watchCmd)
	RootCmd.AddCommand(watchCmd)
}
