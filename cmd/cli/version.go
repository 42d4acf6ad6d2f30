package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kosarica/cml-exchange/internal/cml"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tool and document format versions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cml-exchange %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "CommerceML %d.%d (%s), schema %s\n",
			cml.DefaultMajorVersion, cml.DefaultMinorVersion, cml.DefaultNamespace, cml.DefaultSchemaVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
