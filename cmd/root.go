package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/josephlewis42/jobsh/commands"
	"github.com/josephlewis42/jobsh/core"
	"github.com/josephlewis42/jobsh/core/config"
	"github.com/josephlewis42/jobsh/core/logger"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	cfgPath string
	command string
)

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".jobsh")
}

func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jobsh",
	Short: "A shell with job control",
	Long: `An interactive shell that runs pipelines as process groups and tracks
background and stopped pipelines as jobs.

Builtins: hop, reveal, log, ping, activities, fg, bg, exit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		diag := log.New(cmd.ErrOrStderr(), "[jobsh] ", 0)

		cfg, err := config.Load(cfgPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			cfg = config.Default()
		case err != nil:
			return err
		}

		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		os.Setenv(commands.EnvShellHome, wd)

		events := logger.Discard()
		if cfg.EventLog {
			fd, err := cfg.OpenAppLog()
			if err != nil {
				diag.Printf("couldn't open the event log: %v", err)
			} else {
				defer fd.Close()
				events = logger.NewJsonLinesLogRecorder(fd)
			}
		}

		sh, err := core.NewShell(core.Options{
			Config:      cfg,
			Events:      events.NewSession(),
			Interactive: command == "" && term.IsTerminal(int(os.Stdin.Fd())),
		})
		if err != nil {
			return err
		}

		var status int
		if cmd.Flags().Changed("command") {
			status = sh.RunOnce(command)
		} else {
			status = sh.Run()
		}

		if status != 0 {
			cmd.SilenceErrors = true
			return exitStatus(status)
		}
		return nil
	},
}

// exitStatus carries a failing shell status out of cobra so deferred
// cleanup runs before the process exits.
type exitStatus int

func (e exitStatus) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()

	var status exitStatus
	if errors.As(err, &status) {
		os.Exit(int(status))
	}
	cobra.CheckErr(err)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "config path")
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "run a single line and exit")
}
