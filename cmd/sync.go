package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/lawstudy/internal/syncengine"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push local changes to the remote store and pull the partner's",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.remote == nil {
				return syncengine.ErrLocalOnly
			}
			if a.engine.Status().State != syncengine.Connected {
				if err := a.engine.Connect(cmd.Context()); err != nil {
					return err
				}
			}
			if err := a.engine.SyncData(cmd.Context()); err != nil {
				if errors.Is(err, syncengine.ErrLocalOnly) {
					cmd.Println("No remote store configured, nothing to sync.")
					return nil
				}
				return err
			}

			status := a.engine.Status()
			cmd.Printf("State: %s\n", status.State)
			if status.LastSyncAt != nil {
				cmd.Printf("Last sync: %s\n", status.LastSyncAt.In(a.location).Format(time.RFC1123))
			}
			return nil
		},
	}
}
