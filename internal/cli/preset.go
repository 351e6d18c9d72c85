package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/mrcode/nightscout-fpu/internal/models"
	"github.com/spf13/cobra"
)

func newPresetCmd(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage saved dishes",
	}

	cmd.AddCommand(
		newPresetSaveCmd(st),
		newPresetListCmd(st),
		newPresetDeleteCmd(st),
	)

	return cmd
}

func newPresetSaveCmd(st *state) *cobra.Command {
	var (
		macros macroFlags
		id     string
	)

	cmd := &cobra.Command{
		Use:   "save <dish>",
		Short: "Save a dish with its macros",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			carbs, fat, protein, err := macros.parse()
			if err != nil {
				return err
			}

			a, err := st.openApp()
			if err != nil {
				return err
			}

			preset := &models.MealPreset{
				ID:      id,
				Dish:    args[0],
				Carbs:   carbs,
				Fat:     fat,
				Protein: protein,
			}
			if err := a.SavePreset(cmd.Context(), preset); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved %q as %s\n", preset.Dish, preset.ID)
			return nil
		},
	}

	macros.register(cmd)
	cmd.Flags().StringVar(&id, "id", "", "overwrite the preset with this id")

	return cmd
}

func newPresetListCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved dishes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := st.openApp()
			if err != nil {
				return err
			}

			presets, err := a.Presets(cmd.Context())
			if err != nil {
				return err
			}
			if len(presets) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No presets.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDISH\tCARBS\tFAT\tPROTEIN")
			for _, p := range presets {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					p.ID, p.Dish, p.Carbs.String(), p.Fat.String(), p.Protein.String())
			}
			return tw.Flush()
		},
	}
}

func newPresetDeleteCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved dish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.openApp()
			if err != nil {
				return err
			}

			if err := a.DeletePreset(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("deleting preset %s: %w", args[0], err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Deleted.")
			return nil
		},
	}
}
