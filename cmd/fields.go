package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/cre-extract/internal/schema"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List every extractable field path",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, p := range schema.Default().FlattenPaths() {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
}
