package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/livelist/pkg/core"
)

var incrBy float64

var incrCmd = &cobra.Command{
	Use:   "incr [id] [field]",
	Short: "Increment a numeric field inside a transaction",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, field := args[0], args[1]
		ctx := cmd.Context()
		b, err := openBackend(ctx, false)
		if err != nil {
			return err
		}
		defer b.Close(ctx)

		ref := b.Doc(collection, id)
		var result any
		err = b.RunTransaction(ctx, func(ctx context.Context, tx core.Transaction) error {
			doc, err := tx.Get(ctx, ref)
			if err != nil {
				return err
			}
			next, err := increment(doc.Fields[field], incrBy)
			if err != nil {
				return fmt.Errorf("%s: %w", field, err)
			}
			result = next
			return tx.Update(ctx, ref, field, next)
		})
		if err != nil {
			return fmt.Errorf("increment %s: %w", id, err)
		}
		fmt.Printf("%s.%s = %v\n", id, field, result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(incrCmd)
	incrCmd.Flags().Float64Var(&incrBy, "by", 1, "Amount to add")
}
