// cmd/<tool>/COMMAND_NAME.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func buildCOMMAND_NAMECommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "COMMAND_NAME",
		Short: "One-line description",
		Long:  `Longer description shown by --help.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCOMMAND_NAME(name)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "name of the resource")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runCOMMAND_NAME(name string) error {
	// Load config (file + flag overrides), then do the work.
	// Return errors wrapped with context; main prints them once.
	fmt.Printf("running COMMAND_NAME for %s\n", name)
	return nil
}
