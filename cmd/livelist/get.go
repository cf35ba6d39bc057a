package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var getJSON bool

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Print one document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openBackend(ctx, false)
		if err != nil {
			return err
		}
		defer b.Close(ctx)

		doc, err := b.Get(ctx, collection, args[0])
		if err != nil {
			return err
		}
		if getJSON {
			return printJSON(docView{ID: doc.ID, Fields: doc.Fields})
		}
		for _, key := range doc.Fields.Keys() {
			fmt.Printf("%s: %v\n", key, doc.Fields[key])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().BoolVar(&getJSON, "json", false, "Output in JSON format")
}
