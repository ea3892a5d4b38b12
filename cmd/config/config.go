// Package config provides commands to inspect and write the configuration.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/lcbimport/internal/conf"
)

// Command creates and returns the config command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the importer configuration",
	}

	cmd.AddCommand(showCommand(settings), saveCommand(settings))
	return cmd
}

func showCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(redacted(settings))
			if err != nil {
				return fmt.Errorf("error marshaling settings: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func saveCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "save <path>",
		Short: "Write the effective configuration to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conf.SaveYAMLConfig(args[0], settings); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Configuration written to %s\n", args[0])
			return nil
		},
	}
}

// redacted returns a copy of settings with credentials masked.
func redacted(settings *conf.Settings) *conf.Settings {
	const mask = "[REDACTED]"
	c := *settings
	if c.Store.MySQL.Password != "" {
		c.Store.MySQL.Password = mask
	}
	if c.Storage.S3.SecretAccessKey != "" {
		c.Storage.S3.SecretAccessKey = mask
	}
	if c.Storage.FTP.Password != "" {
		c.Storage.FTP.Password = mask
	}
	if c.Storage.SFTP.Password != "" {
		c.Storage.SFTP.Password = mask
	}
	if c.Sentry.DSN != "" {
		c.Sentry.DSN = mask
	}
	return &c
}
