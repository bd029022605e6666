package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli carries global flag values and the loaded Config.
type cli struct {
	configFile string
	logOut     io.Writer
	v          *viper.Viper
	cfg        *Config
}

// newRootCommand builds the command tree. Logs go to logOut; command
// output goes to cmd.OutOrStdout().
func newRootCommand(logOut io.Writer) *cobra.Command {
	c := &cli{logOut: logOut, v: viper.New()}

	root := &cobra.Command{
		Use:           "flowengine",
		Short:         "Run linear workflows of typed steps",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(c.v, c.configFile)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default: ./flowengine.yaml or ~/.flowengine/flowengine.yaml)")
	flags.String("storage-driver", "", "storage driver: json or libsql")
	flags.String("data-dir", "", "data directory")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	_ = c.v.BindPFlag("storage.driver", flags.Lookup("storage-driver"))
	_ = c.v.BindPFlag("storage.dir", flags.Lookup("data-dir"))
	_ = c.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = c.v.BindPFlag("log.format", flags.Lookup("log-format"))

	root.AddCommand(
		newServeCommand(c),
		newMCPCommand(c),
		newRunCommand(c),
		newSamplesCommand(c),
		newRunsCommand(c),
		newValidateCommand(c),
		newDiagramCommand(c),
	)
	return root
}

// withApp builds the App, runs fn and closes the App again.
func (c *cli) withApp(ctx context.Context, fn func(*App) error) (err error) {
	app, err := newApp(ctx, c.cfg, c.logOut)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(app)
}

func jsonCompact(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
