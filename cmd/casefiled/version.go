package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"casefile/internal/entitymodel"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("casefiled v" + version)
		if schema := entitymodel.Version(); schema != "" {
			fmt.Println("entity model v" + schema)
		}
	},
}
