package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/livelist"
	lcsource "github.com/aretw0/livelist/pkg/adapters/lifecycle"
)

var (
	watchRaw      bool
	watchPrefetch int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the query and print every list mutation",
	Long: `Watch binds the query to a live list and prints each mutation as it
happens: "+" insert, "~" change, ">" move, "-" remove. Pages are loaded until
--prefetch documents are listed or the query is exhausted.

Send SIGHUP to clear the list and subscribe again. With --raw the change
events of the first page are printed as the source reports them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openBackend(ctx, true)
		if err != nil {
			return err
		}
		defer b.Close(context.Background())

		creator, err := queryCreator(b)
		if err != nil {
			return err
		}
		if watchRaw {
			return watchChanges(ctx, b, creator())
		}
		return watchList(ctx, b, creator)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchRaw, "raw", false, "Print source change events instead of list mutations")
	watchCmd.Flags().IntVar(&watchPrefetch, "prefetch", 100, "Keep loading pages until this many documents are listed")
}

func watchChanges(ctx context.Context, b *livelist.Backend, q livelist.Query) error {
	src := lcsource.NewSource(b, q)
	if err := src.Start(ctx); err != nil {
		return err
	}
	for e := range src.Events() {
		fmt.Println(e)
	}
	return nil
}

func watchList(ctx context.Context, b *livelist.Backend, creator livelist.QueryCreator) error {
	policy, err := livelist.ParsePolicy(policyName)
	if err != nil {
		return err
	}

	loop := livelist.NewEventLoop(slog.Default())
	if err := loop.Start(context.Background()); err != nil {
		return err
	}
	defer loop.Stop(context.Background())

	var r *livelist.Reconciler
	row := func(mark string, i int) {
		doc, err := r.Document(i)
		if err != nil {
			slog.Warn("row vanished", "index", i, "error", err)
			return
		}
		fmt.Printf("%s %4d  %s\n", mark, i, formatDoc(doc))
	}
	loadMore := func() {
		if r.Count() < watchPrefetch {
			r.OnVisibleRangeChanged(0, r.Count(), r.Count())
		}
	}

	r, err = livelist.New(b, creator,
		livelist.WithPolicy(policy),
		livelist.WithExecutor(loop),
		livelist.WithLogger(slog.Default()),
		livelist.WithObserver(livelist.ObserverFuncs{
			OnItemInserted: func(i int) { row("+", i) },
			OnItemChanged:  func(i int) { row("~", i) },
			OnItemMoved:    func(from, to int) { fmt.Printf("> %4d  -> %d\n", from, to) },
			OnItemRemoved:  func(i int) { fmt.Printf("- %4d\n", i) },
			OnItemsReset:   func() { fmt.Println("-- reset") },
			OnBatchApplied: func() { loop.Post(loadMore) },
			OnLoadingMoreStarted: func() {
				slog.Debug("loading more", "count", r.Count())
			},
			OnHasLoadedAll: func() { fmt.Printf("-- loaded all (%d)\n", r.Count()) },
			OnError:        func(err error) { slog.Error("subscription failed", "error", err) },
		}),
	)
	if err != nil {
		return err
	}

	if doErr := loop.Do(ctx, func() { err = r.StartListening() }); doErr != nil {
		return doErr
	}
	if err != nil {
		return err
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return loop.Do(context.Background(), r.StopListening)
		case <-hup:
			slog.Info("refreshing")
			loop.Post(func() {
				r.Clear()
				r.StopListening()
				if err := r.StartListening(); err != nil {
					slog.Error("resubscribe failed", "error", err)
				}
			})
		}
	}
}
