package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the ifvg CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ifvg version %s\n", version)
		fmt.Println("Fair value gap and inversion scanner")
		fmt.Println("https://github.com/rustyeddy/ifvg")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
