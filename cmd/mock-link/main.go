// Command mock-link runs a simulated node on the UDP mock link layer.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "mock-link",
		Short: "Simulated point-to-point links over one UDP socket",
		Long: `mock-link runs a simulated node. Every configured peer gets a
point-to-point interface; packets typed on stdin are sent through it
and packets delivered by it are printed on stdout.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(runCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
