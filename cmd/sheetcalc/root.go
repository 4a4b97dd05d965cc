package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.alis.build/alog"

	"github.com/vogtb/sheetcalc/packages/config"
	"github.com/vogtb/sheetcalc/packages/spreadsheet"
)

// app carries the loaded settings to every subcommand
type app struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
	engine     *spreadsheet.Engine
}

func newRootCommand() *cobra.Command {
	a := &app{v: config.New()}

	cmd := &cobra.Command{
		Use:          "sheetcalc",
		Short:        "Formula evaluation and dependency propagation for spreadsheet grids",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a YAML config file")
	flags.String("log-level", "", "minimum log level: debug, info, warn or error")
	flags.String("propagation", "", "propagation mode: direct or transitive")
	flags.Bool("preserve-literal-case", false, "keep the case of text arguments")
	flags.String("store", "", "path to the grid database")
	a.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	a.v.BindPFlag(config.KeyPropagation, flags.Lookup("propagation"))
	a.v.BindPFlag(config.KeyPreserveLiteralCase, flags.Lookup("preserve-literal-case"))
	a.v.BindPFlag(config.KeyStorePath, flags.Lookup("store"))

	cmd.AddCommand(newClassifyCommand(a))
	cmd.AddCommand(newEvalCommand(a))
	cmd.AddCommand(newSetCommand(a))
	cmd.AddCommand(newRecalcCommand(a))
	cmd.AddCommand(newSaveCommand(a))
	cmd.AddCommand(newLoadCommand(a))
	cmd.AddCommand(newListCommand(a))
	cmd.AddCommand(newDeleteCommand(a))
	cmd.AddCommand(newServeCommand(a))
	return cmd
}

func (a *app) load() error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	opts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}
	alog.SetLevel(level)

	a.cfg = cfg
	a.engine = spreadsheet.NewEngine(opts)
	return nil
}
