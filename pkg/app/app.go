// Copyright 2025 The Groundlink Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/term"

	"github.com/autopeer-io/groundlink/pkg/log"
)

// App is the main structure of a cli application.
type App struct {
	name        string
	shortDesc   string
	description string
	options     NamedFlagSetOptions
	runFunc     RunFunc
	silence     bool
	noConfig    bool
	args        cobra.PositionalArgs
	viper       *viper.Viper
	cmd         *cobra.Command
}

// RunFunc is the application's startup callback function.
type RunFunc func() error

// Option defines optional parameters for initializing the application structure.
type Option func(*App)

// WithOptions opens the application's function to read from the command line
// or read parameters from the configuration file.
func WithOptions(opts NamedFlagSetOptions) Option {
	return func(app *App) {
		app.options = opts
	}
}

// WithRunFunc is used to set the application startup callback function option.
func WithRunFunc(run RunFunc) Option {
	return func(app *App) {
		app.runFunc = run
	}
}

// WithDescription is used to set the description of the application.
func WithDescription(desc string) Option {
	return func(app *App) {
		app.description = desc
	}
}

// WithSilence sets the application to silent mode, in which the program startup
// information, configuration information, and version information are not
// printed in the console.
func WithSilence() Option {
	return func(app *App) {
		app.silence = true
	}
}

// WithNoConfig set the application does not provide config flag.
func WithNoConfig() Option {
	return func(app *App) {
		app.noConfig = true
	}
}

// WithValidArgs set the validation function to valid non-flag arguments.
func WithValidArgs(args cobra.PositionalArgs) Option {
	return func(app *App) {
		app.args = args
	}
}

// WithDefaultValidArgs set default validation function to valid non-flag arguments.
func WithDefaultValidArgs() Option {
	return func(app *App) {
		app.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}

			return nil
		}
	}
}

// NewApp creates a new application instance based on the given application name,
// short description, and other options.
func NewApp(name string, shortDesc string, opts ...Option) *App {
	app := &App{
		name:      name,
		shortDesc: shortDesc,
		runFunc:   func() error { return nil },
		viper:     viper.New(),
	}

	for _, o := range opts {
		o(app)
	}

	app.buildCommand()

	return app
}

// Command returns the cobra command of the application.
func (app *App) Command() *cobra.Command {
	return app.cmd
}

func (app *App) buildCommand() {
	cmd := &cobra.Command{
		Use:   app.name,
		Short: app.shortDesc,
		Long:  app.description,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run()
		},
		// Only print usage on flag errors, not on runtime failures.
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          app.args,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	var fss cliflag.NamedFlagSets
	if app.options != nil {
		fss = app.options.Flags()
	}
	if !app.noConfig {
		AddConfigFlag(fss.FlagSet("global"), app.name)
	}

	for _, f := range fss.FlagSets {
		cmd.Flags().AddFlagSet(f)
	}

	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, fss, cols)

	app.cmd = cmd
}

// Run is used to launch the application.
func (app *App) Run() {
	if err := app.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v %v\n", "Error:", err)
		os.Exit(1)
	}
}

func (app *App) run() error {
	if app.options != nil {
		if err := app.applyConfig(); err != nil {
			return err
		}
		if err := app.options.Complete(); err != nil {
			return err
		}
		if err := app.options.Validate(); err != nil {
			return err
		}
	}

	if lp, ok := app.options.(LogOptionsProvider); ok {
		log.Init(lp.LogOptions())
		defer log.Sync()
	}

	if !app.silence {
		log.Info("Starting application", "name", app.name)
		if cfgFile != "" {
			log.Info("Config file used", "file", app.viper.ConfigFileUsed())
		}
	}

	return app.runFunc()
}

// applyConfig layers the config file and environment under the flags the
// user set explicitly, then decodes the result into the options.
func (app *App) applyConfig() error {
	if app.noConfig {
		return nil
	}

	if err := app.viper.BindPFlags(app.cmd.Flags()); err != nil {
		return err
	}
	if err := loadConfig(app.viper, app.name); err != nil {
		return err
	}

	if err := app.viper.Unmarshal(app.options); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	return nil
}
