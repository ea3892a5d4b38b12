// Package cmd builds the command line interface of the importer.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/lcbimport/cmd/config"
	"github.com/tphakala/lcbimport/cmd/importer"
	"github.com/tphakala/lcbimport/internal/buildinfo"
	"github.com/tphakala/lcbimport/internal/conf"
	"github.com/tphakala/lcbimport/internal/logger"
)

// RootCommand creates and returns the root command. settings is filled in
// before any subcommand runs.
func RootCommand(build *buildinfo.Context, settings *conf.Settings) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "lcbimport",
		Short:         "Import Living Cookbook archives into a recipe library",
		Version:       build.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		panic(fmt.Sprintf("error binding debug flag: %v", err))
	}

	rootCmd.AddCommand(
		importer.Command(settings),
		config.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := conf.Load(configFile)
		if err != nil {
			return err
		}
		*settings = *loaded
		settings.Version = build.GetVersion()
		return initialize(settings)
	}

	return rootCmd
}

// initialize sets up the global logger from the loaded settings.
func initialize(settings *conf.Settings) error {
	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	cl, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(cl)

	logger.Global().Module("main").Debug("configuration loaded",
		logger.String("version", settings.Version),
		logger.String("environment", settings.Environment),
		logger.String("store", settings.Store.Type),
		logger.String("storage", settings.Storage.Type))
	return nil
}
