package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hypercube-lab/hypercube/src/version"
)

//NewVersionCmd shows the orchestrator version
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Version)
		},
	}
}
