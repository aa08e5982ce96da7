package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucassmelendez/ct-fastapi/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	var path string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file with the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteStarter(path); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&path, "path", "config.yaml", "where to write the config file")

	cmd.AddCommand(initCmd)
	return cmd
}
