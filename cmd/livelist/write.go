package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set [id] [key=value]...",
	Short: "Create or replace a document",
	Long:  `Set writes a document with exactly the given fields. Values are read as YAML scalars, so rank=2 is a number.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := parseAssignments(args[1:])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		b, err := openBackend(ctx, false)
		if err != nil {
			return err
		}
		defer b.Close(ctx)

		if err := b.Set(ctx, collection, args[0], fields); err != nil {
			return fmt.Errorf("set %s: %w", args[0], err)
		}
		fmt.Printf("Document saved: %s\n", args[0])
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add [key=value]...",
	Short: "Create a document with a generated ID",
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := parseAssignments(args)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		b, err := openBackend(ctx, false)
		if err != nil {
			return err
		}
		defer b.Close(ctx)

		ref, err := b.Add(ctx, collection, fields)
		if err != nil {
			return fmt.Errorf("add: %w", err)
		}
		fmt.Println(ref.ID())
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update [id] [field] [value]",
	Short: "Change one field of an existing document",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		b, err := openBackend(ctx, false)
		if err != nil {
			return err
		}
		defer b.Close(ctx)

		if err := b.Doc(collection, args[0]).Update(ctx, args[1], parseValue(args[2])); err != nil {
			return fmt.Errorf("update %s: %w", args[0], err)
		}
		fmt.Printf("Document updated: %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setCmd, addCmd, updateCmd)
}
