package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one discovery + change-detection cycle and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()

			summary := application.orch.Run(cmd.Context())
			fmt.Printf("cycle complete: %d new, %d updated\n", summary.NewCount, summary.UpdateCount)

			return nil
		},
	}
}
