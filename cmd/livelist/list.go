package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aretw0/livelist"
)

var (
	listJSON bool
	listMax  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the query results, loading pages until the query is exhausted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openBackend(ctx, false)
		if err != nil {
			return err
		}
		defer b.Close(ctx)

		creator, err := queryCreator(b)
		if err != nil {
			return err
		}
		policy, err := livelist.ParsePolicy(policyName)
		if err != nil {
			return err
		}

		var failure error
		r, err := livelist.New(b, creator,
			livelist.WithPolicy(policy),
			livelist.WithLogger(slog.Default()),
			livelist.WithObserver(livelist.ObserverFuncs{
				OnError: func(err error) { failure = err },
			}),
		)
		if err != nil {
			return err
		}
		if err := r.StartListening(); err != nil {
			return err
		}
		defer r.StopListening()

		// Deliveries are synchronous here, so each scroll to the tail either
		// loads a page or does nothing.
		for failure == nil && !r.Pagination().HasLoadedAll() {
			if listMax > 0 && r.Count() >= listMax {
				break
			}
			pages := r.Pages()
			r.OnVisibleRangeChanged(0, r.Count(), r.Count())
			if r.Pages() == pages || r.Pagination().LoadingMore() {
				break
			}
		}
		if failure != nil {
			return failure
		}
		slog.Debug("query listed", "count", r.Count(), "pages", r.Pages())

		count := r.Count()
		if listMax > 0 && count > listMax {
			count = listMax
		}
		docs := make([]docView, 0, count)
		for i := 0; i < count; i++ {
			doc, err := r.Document(i)
			if err != nil {
				return err
			}
			docs = append(docs, docView{ID: doc.ID, Fields: doc.Fields})
		}

		if listJSON {
			return printJSON(docs)
		}
		for i, d := range docs {
			fmt.Printf("%4d  %s\n", i, formatDoc(livelist.Document{ID: d.ID, Fields: d.Fields}))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().IntVar(&listMax, "max", 0, "Stop after this many documents (0 for all)")
}
