package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/kyleking/gh-runtail/internal/config"
)

func configCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(configInitCmd(st))
	return cmd
}

func configInitCmd(st *state) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Long: "Write the configuration built from defaults, the environment and flags to the\n" +
			"file named by --config. Tokens are never written.",
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			path := st.configFile
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists, use --force to overwrite it", path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}
			if err := config.Save(path, st.cfg); err != nil {
				return err
			}
			st.logger.Info("config written", "path", path)
			fmt.Fprintln(st.stdout, path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// writesConfig reports whether cmd creates the config file rather than
// reading it.
func writesConfig(cmd *cobra.Command) bool {
	return cmd.Name() == "init" && cmd.HasParent() && cmd.Parent().Name() == "config"
}
