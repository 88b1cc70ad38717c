package cmd

import (
	"fmt"

	"github.com/brogergvhs/chapterdl/internal/providers/generic"

	"github.com/spf13/cobra"
)

var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the chapterdl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chapterdl version: %s\n", Version)
		fmt.Printf("markup contract:   v%d\n", generic.ContractVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
