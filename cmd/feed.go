package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"food-console/notify"
)

var followFeed bool

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Print the staff notification feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runFeed(ctx, cmd.OutOrStdout())
	},
}

func init() {
	feedCmd.Flags().BoolVarP(&followFeed, "follow", "f", false, "keep running and reprint on new notifications")
}

func runFeed(ctx context.Context, out io.Writer) error {
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.initScope(ctx); err != nil {
		return err
	}

	snap, err := a.feed.Refresh(ctx)
	if err != nil {
		return err
	}
	printFeed(out, snap)
	if !followFeed {
		return nil
	}

	a.feed.Subscribe(func(s notify.Snapshot) { printFeed(out, s) })
	live, err := notify.Watch(ctx, a.sub, notify.Handlers{OnNotifications: a.feed.OnPushInsert})
	if err != nil {
		return err
	}
	defer live.Close()
	<-ctx.Done()
	return nil
}

func printFeed(out io.Writer, s notify.Snapshot) {
	bell := ""
	if s.UnreadIncreased {
		bell = " (new)"
	}
	fmt.Fprintf(out, "%d unread%s\n", s.Unread, bell)
	for _, n := range s.Items {
		mark := " "
		if !n.IsRead {
			mark = "•"
		}
		fmt.Fprintf(out, "%s %s  %-28s %s\n", mark, n.CreatedAt.Format("2006-01-02 15:04"), n.Title, notify.RouteFor(n).Path())
	}
}
