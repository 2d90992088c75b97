package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/josephlewis42/vmsh/commands"
	"github.com/josephlewis42/vmsh/core/config"
	"github.com/josephlewis42/vmsh/core/env"
	"github.com/josephlewis42/vmsh/core/logger"
	"github.com/josephlewis42/vmsh/core/vm"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	cfgPath     string
	commandLine string

	// exitCode is the status of the shell once rootCmd returns.
	exitCode int
)

func configDir() (string, error) {
	if cfgPath != "" {
		return cfgPath, nil
	}
	return config.DefaultDir()
}

func loadConfig() (*config.Configuration, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}

	configuration, err := config.Load(dir)
	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// shellConfig loads the configuration, falling back to the defaults kept in
// memory when none was initialized.
func shellConfig() (*config.Configuration, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}

	configuration, err := config.Load(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(afero.NewMemMapFs()), nil
	}
	return configuration, err
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vmsh [SCRIPT]",
	Short: "A small interactive command shell",
	Long: `vmsh reads command lines, splits them into words and operators and runs
pipelines of programs with redirection, background jobs and a few builtins.

With no SCRIPT and a terminal on stdin the shell is interactive, otherwise
lines are read from SCRIPT or stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := shellConfig()
		if err != nil {
			return err
		}

		appLogFd, err := configuration.OpenAppLog()
		if err != nil {
			return err
		}
		defer appLogFd.Close()
		appLog := log.New(appLogFd, fmt.Sprintf("vmsh[%d] ", os.Getpid()), log.LstdFlags)

		eventLogFd, err := configuration.OpenEventLog()
		if err != nil {
			return err
		}
		defer eventLogFd.Close()
		sessionID := fmt.Sprintf("%d-%d", time.Now().Unix(), os.Getpid())
		events := logger.NewJsonLinesLogRecorder(eventLogFd).NewSession(sessionID)

		sh, err := commands.NewShell(commands.Options{
			Config: configuration,
			Env:    env.FromOS(),
			Files:  vm.Files{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr},
			Events: events,
			Log:    appLog,
		})
		if err != nil {
			return err
		}

		appLog.Printf("session %s started", sessionID)
		defer func() {
			appLog.Printf("session %s ended with status %d", sessionID, exitCode)
		}()

		ctx := cmd.Context()
		switch {
		case commandLine != "":
			stop := sh.Relay.Start()
			sh.RunCommand(ctx, commandLine)
			stop()

		case len(args) == 1:
			script, openErr := os.Open(args[0])
			if openErr != nil {
				return openErr
			}
			defer script.Close()
			err = sh.RunScript(ctx, script)

		case term.IsTerminal(int(os.Stdin.Fd())):
			err = sh.RunInteractive(ctx)

		default:
			err = sh.RunScript(ctx, os.Stdin)
		}

		exitCode = sh.ExitCode()
		if err != nil {
			appLog.Printf("fatal: %v", err)
		}
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
	os.Exit(exitCode)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config directory (default $XDG_CONFIG_HOME/vmsh)")
	rootCmd.Flags().StringVarP(&commandLine, "command", "c", "", "run one command line and exit")
}
