package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/livelist"
	"github.com/aretw0/livelist/pkg/adapters/memory"
)

var (
	verbose    bool
	dir        string
	collection string
	orderBy    string
	descending bool
	pageSize   int
	policyName string
	where      []string

	config livelist.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "livelist",
	Short: "Follow a live, paginated query over a directory of documents",
	Long: `livelist treats a directory of JSON, YAML and Markdown files as a document
database. Each top-level directory is a collection and each file a document.
Queries stay live: edits on disk show up as list insertions, changes, moves
and removals.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		if dir == "" {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			dir = wd
			if root, err := livelist.FindRoot(wd); err == nil {
				dir = root
			}
		}

		var err error
		config, err = livelist.LoadConfig(dir)
		if err != nil {
			return err
		}
		applyConfig(cmd)
		slog.Debug("configuration loaded", "dir", dir, "collection", collection, "page_size", pageSize)
		return nil
	},
}

// applyConfig fills every flag the user did not set from the config file.
func applyConfig(cmd *cobra.Command) {
	flags := cmd.Flags()
	q := config.Query
	if !flags.Changed("collection") && q.Collection != "" {
		collection = q.Collection
	}
	if !flags.Changed("order-by") && q.OrderBy != "" {
		orderBy = q.OrderBy
	}
	if !flags.Changed("desc") && q.Descending {
		descending = true
	}
	if !flags.Changed("page-size") && q.PageSize > 0 {
		pageSize = q.PageSize
	}
	if !flags.Changed("policy") && q.Policy != "" {
		policyName = q.Policy
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVarP(&dir, "dir", "d", "", "Document root (default: nearest directory with .livelist.yaml or .git)")
	flags.StringVarP(&collection, "collection", "c", "", "Collection to query")
	flags.StringVar(&orderBy, "order-by", "", "Field to order by")
	flags.BoolVar(&descending, "desc", false, "Order descending")
	flags.IntVar(&pageSize, "page-size", 20, "Documents per page")
	flags.StringVar(&policyName, "policy", "identity", "Reconciliation policy (identity or position)")
	flags.StringArrayVarP(&where, "where", "w", nil, `Filter, e.g. "status == open" (repeatable)`)
}

// openBackend opens the document root, following changes on disk when watch is set.
func openBackend(ctx context.Context, watch bool) (*livelist.Backend, error) {
	opts := append(config.Options(),
		livelist.WithSourceLogger(slog.Default()),
		livelist.WithWatch(watch),
		livelist.WithMustExist(true),
		livelist.WithWatcherErrorHandler(func(err error) {
			slog.Warn("watcher error", "error", err)
		}),
	)
	return livelist.Open(ctx, dir, opts...)
}

// queryCreator builds the first-page query from the flags.
func queryCreator(b *livelist.Backend) (livelist.QueryCreator, error) {
	q := b.Collection(collection)
	for _, w := range where {
		parts := strings.Fields(w)
		if len(parts) < 3 {
			return nil, fmt.Errorf("filter %q: want \"field op value\"", w)
		}
		op, err := memory.ParseOperator(parts[1])
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", w, err)
		}
		q = q.Where(parts[0], op, parseValue(strings.Join(parts[2:], " ")))
	}
	if orderBy != "" {
		dir := memory.Asc
		if descending {
			dir = memory.Desc
		}
		q = q.OrderBy(orderBy, dir)
	}
	if pageSize > 0 {
		q = q.Limit(pageSize)
	}
	return func() livelist.Query { return q }, nil
}
