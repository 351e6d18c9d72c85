package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/mrcode/nightscout-fpu/internal/chart"
	"github.com/spf13/cobra"
)

func newChartCmd(st *state) *cobra.Command {
	var (
		hours  int
		bin    time.Duration
		out    string
		width  int
		height int
	)

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Draw the recorded carb timeline",
		Long: `Draw the recorded carb timeline. Without --out a Braille sparkline ` +
			`is printed; with --out a PNG is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := st.openApp()
			if err != nil {
				return err
			}

			records, err := a.Records(cmd.Context(), hours)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No records.")
				return nil
			}

			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), chart.Sparkline(records, bin))
				return nil
			}

			data, err := chart.RenderPNG(records, chart.Options{
				Width:    width,
				Height:   height,
				BinWidth: bin,
				Title:    fmt.Sprintf("Last %d h", hours),
			})
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 24, "how far back to draw")
	cmd.Flags().DurationVar(&bin, "bin", time.Hour, "width of one bar")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write a PNG to this file")
	cmd.Flags().IntVar(&width, "width", 640, "PNG width")
	cmd.Flags().IntVar(&height, "height", 240, "PNG height")

	return cmd
}
