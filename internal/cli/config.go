package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mrcode/nightscout-fpu/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const masked = "********"

func newConfigCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create the settings file",
	}

	cmd.AddCommand(
		newConfigShowCmd(st),
		newConfigInitCmd(st),
		newConfigTestCmd(st),
	)

	return cmd
}

func newConfigShowCmd(st *state) *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view, err := settingsView(st.settings, showSecrets)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", st.configPath)
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(view); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "print the API secret and token")

	return cmd
}

// settingsView turns settings into a generic map for printing, masking credentials
func settingsView(settings *models.Settings, showSecrets bool) (map[string]any, error) {
	data, err := json.Marshal(settings.Clone())
	if err != nil {
		return nil, err
	}

	var view map[string]any
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, err
	}

	if !showSecrets {
		for _, key := range []string{"apiSecret", "apiToken"} {
			if v, ok := view[key].(string); ok && v != "" {
				view[key] = masked
			}
		}
	}

	return view, nil
}

func newConfigInitCmd(st *state) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a settings file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(st.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", st.configPath)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(st.configPath), 0o750); err != nil {
				return err
			}
			if err := models.DefaultSettings().SaveTo(st.configPath); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", st.configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}

func newConfigTestCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check the Nightscout connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := st.openApp()
			if err != nil {
				return err
			}

			if err := a.TestConnection(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Nightscout connection OK.")
			return nil
		},
	}
}
