package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a document",
	Long:  `Delete removes the document's file. Deleting a missing document is not an error.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openBackend(ctx, false)
		if err != nil {
			return err
		}
		defer b.Close(ctx)

		if err := b.Doc(collection, args[0]).Delete(ctx); err != nil {
			return fmt.Errorf("delete %s: %w", args[0], err)
		}
		fmt.Printf("Document deleted: %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
