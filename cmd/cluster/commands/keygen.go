package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hypercube-lab/hypercube/src/config"
	"github.com/hypercube-lab/hypercube/src/provision"
)

var outFile string

// NewKeygenCmd produces a KeygenCmd which creates an identity keypair
func NewKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create a new identity keypair",
		RunE:  keygen,
	}

	cmd.Flags().StringVarP(&outFile, "outfile", "o", defaultKeyfile(), "File where the keypair will be written")

	return cmd
}

func keygen(cmd *cobra.Command, args []string) error {
	if err := provision.GenKeypairFile(outFile); err != nil {
		return err
	}

	fmt.Printf("Your identity has been saved to: %s\n", outFile)

	return nil
}

func defaultKeyfile() string {
	return filepath.Join(config.DefaultConfigDir(), "id.json")
}
