package main

import (
	"errors"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"large-file-man/internal/config"
	"large-file-man/internal/scanner"
)

// version is the application version, set via ldflags.
var version = "dev"

const (
	exitOK      = 0
	exitFatal   = 1
	exitBadRoot = 2
)

// app carries what every subcommand shares. Tests build their own with
// buffers in place of the standard streams.
type app struct {
	v      *viper.Viper
	log    *logrus.Logger
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	cfgFile  string
	logLevel string
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	log := logrus.New()
	log.SetOutput(errOut)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	v := viper.New()
	config.SetDefaults(v)
	return &app{v: v, log: log, in: in, out: out, errOut: errOut}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "large-file-man",
		Short: "Find the largest files under a directory and prepare their deletion.",
		Long: `large-file-man inventories a directory tree, keeps the largest files
above a size threshold in a JSON inventory, lets you pick some of them and
writes a deletion script that asks twice for confirmation before removing
anything. It never deletes files itself.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig(cmd)
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default ~/.config/large-file-man/config.toml or ./config.toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().String("inventory", "", "inventory JSON file (default fichiers_gros.json next to the executable)")

	root.AddCommand(newScanCmd(a), newSelectCmd(a), newScriptCmd(a))
	return root
}

// initConfig reads the config file and environment, then binds the flags of
// the command being run so they take precedence.
func (a *app) initConfig(cmd *cobra.Command) error {
	used, err := config.Init(a.v, a.cfgFile)
	if err != nil {
		return err
	}

	if err := a.v.BindPFlag(config.KeyInventory, cmd.Flags().Lookup("inventory")); err != nil {
		return err
	}
	if a.logLevel != "" {
		a.v.Set(config.KeyLogLevel, a.logLevel)
	}
	level, err := logrus.ParseLevel(a.v.GetString(config.KeyLogLevel))
	if err != nil {
		a.log.WithError(err).Warn("invalid log level, using info")
		level = logrus.InfoLevel
	}
	a.log.SetLevel(level)

	if used != "" {
		a.log.WithField("file", used).Debug("using config file")
	}
	return nil
}

// bindFlags binds flag names of cmd to viper keys. It runs when the command
// executes, so commands sharing a key do not shadow each other.
func (a *app) bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, name := range keys {
		if err := a.v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, scanner.ErrDirectoryNotFound):
		return exitBadRoot
	default:
		return exitFatal
	}
}

func run(args []string, in io.Reader, out, errOut io.Writer) int {
	a := newApp(in, out, errOut)
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err != nil {
		a.log.Error(err)
	}
	return exitCode(err)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
