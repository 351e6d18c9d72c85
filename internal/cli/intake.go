package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mrcode/nightscout-fpu/internal/chart"
	"github.com/mrcode/nightscout-fpu/internal/fpu"
	"github.com/mrcode/nightscout-fpu/internal/intake"
	"github.com/mrcode/nightscout-fpu/internal/models"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const (
	clockFormat    = "15:04"
	dateTimeFormat = "2006-01-02 15:04"
)

// macroFlags are the meal quantities shared by add, plan and preset save
type macroFlags struct {
	carbs, fat, protein string
}

func (m *macroFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&m.carbs, "carbs", "c", "0", "carbohydrates in grams")
	cmd.Flags().StringVarP(&m.fat, "fat", "f", "0", "fat in grams")
	cmd.Flags().StringVarP(&m.protein, "protein", "p", "0", "protein in grams")
}

func (m *macroFlags) parse() (carbs, fat, protein decimal.Decimal, err error) {
	if carbs, err = parseGrams("carbs", m.carbs); err != nil {
		return
	}
	if fat, err = parseGrams("fat", m.fat); err != nil {
		return
	}
	protein, err = parseGrams("protein", m.protein)
	return
}

func parseGrams(name, v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	return d, nil
}

// parseTime accepts RFC3339, a clock time today ("18:30") or an offset from
// now ("-45m"). An empty value is now.
func parseTime(v string, now time.Time) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" || v == "now" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(clockFormat, v, now.Location()); err == nil {
		return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return now.Add(d), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use RFC3339, HH:MM or an offset like -30m", v)
}

func newAddCmd(st *state) *cobra.Command {
	var (
		macros   macroFlags
		at       string
		presetID string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a meal",
		Long: `Record a meal. Carbs are stored as entered. With conversion enabled, ` +
			`fat and protein are stored as a schedule of carb equivalents.`,
		Example: `  nightscout-fpu add --carbs 45 --fat 30 --protein 25
  nightscout-fpu add --preset <id> --at 18:30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			when, err := parseTime(at, time.Now())
			if err != nil {
				return err
			}

			a, err := st.openApp()
			if err != nil {
				return err
			}

			var res intake.Result
			if presetID != "" {
				res, err = a.AddPreset(cmd.Context(), presetID, when)
			} else {
				carbs, fat, protein, perr := macros.parse()
				if perr != nil {
					return perr
				}
				res, err = a.AddIntake(cmd.Context(), intake.Request{
					Carbs: carbs, Fat: fat, Protein: protein, At: when,
				})
			}
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	macros.register(cmd)
	cmd.Flags().StringVar(&at, "at", "", "meal time (RFC3339, HH:MM or offset like -30m)")
	cmd.Flags().StringVar(&presetID, "preset", "", "record a saved dish instead of macros")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.MarkFlagsMutuallyExclusive("preset", "carbs")
	cmd.MarkFlagsMutuallyExclusive("preset", "fat")
	cmd.MarkFlagsMutuallyExclusive("preset", "protein")

	return cmd
}

func newPlanCmd(st *state) *cobra.Command {
	var (
		macros macroFlags
		at     string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Preview the carb equivalents for fat and protein without storing them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			when, err := parseTime(at, time.Now())
			if err != nil {
				return err
			}
			_, fat, protein, err := macros.parse()
			if err != nil {
				return err
			}
			if fat.IsNegative() || protein.IsNegative() {
				return intake.ErrNegativeQuantity
			}

			plan, err := fpu.NewPlan(fat, protein, st.settings.FPU(), when)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), plan)
			}
			printPlan(cmd.OutOrStdout(), plan)
			return nil
		},
	}

	macros.register(cmd)
	cmd.Flags().StringVar(&at, "at", "", "meal time (RFC3339, HH:MM or offset like -30m)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the plan as JSON")

	return cmd
}

func newListCmd(st *state) *cobra.Command {
	var hours int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded carbs and carb equivalents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := st.openApp()
			if err != nil {
				return err
			}

			records, err := a.Records(cmd.Context(), hours)
			if err != nil {
				return err
			}

			printRecords(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 24, "how far back to list")

	return cmd
}

func newDeleteGroupCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-group <group-id>",
		Short: "Delete all carb equivalents of one conversion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := st.openApp()
			if err != nil {
				return err
			}

			n, err := a.DeleteGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("group %s not found", args[0])
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d carb equivalents.\n", n)
			return nil
		},
	}
}

func printResult(w io.Writer, res intake.Result) {
	switch res.Outcome {
	case intake.NothingToRecord:
		fmt.Fprintln(w, "Nothing to record.")
		return
	case intake.AutoDosed:
		fmt.Fprintln(w, "Recorded, dosing recalculated.")
	case intake.AwaitingConfirmation:
		fmt.Fprintln(w, "Recorded, waiting for bolus confirmation.")
	}

	if res.Carbs != nil {
		fmt.Fprintf(w, "Carbs: %s g at %s\n", res.Carbs.Grams.String(), res.Carbs.Timestamp.Format(clockFormat))
	}
	if res.Plan != nil {
		printPlan(w, res.Plan)
	}
}

func printPlan(w io.Writer, plan *fpu.Plan) {
	fmt.Fprintf(w, "Energy: %s kcal, %s FPU -> %s g carb equivalents over %d h\n",
		plan.Energy.Kilocalories.String(), plan.Energy.Units.String(),
		plan.Energy.EquivalentGrams.String(), plan.DurationHours)

	if plan.Empty() {
		fmt.Fprintln(w, "No carb equivalents scheduled.")
		return
	}

	first, last := plan.Records[0].Timestamp, plan.Records[len(plan.Records)-1].Timestamp
	fmt.Fprintf(w, "Schedule: %d x %s g every %d min, %s to %s\n",
		len(plan.Records), plan.EquivalentSize.String(), plan.IntervalMinutes,
		first.Format(clockFormat), last.Format(clockFormat))
	fmt.Fprintf(w, "Scheduled: %s g (%s g dropped), group %s\n",
		plan.ScheduledGrams.String(), plan.DroppedGrams.String(), plan.GroupID)
	fmt.Fprintln(w, chart.Sparkline(plan.Records, time.Hour))
}

func printRecords(w io.Writer, records []models.IntakeRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}

	type row struct {
		at   time.Time
		line string
	}
	var rows []row

	for _, r := range lo.Filter(records, func(r models.IntakeRecord, _ int) bool { return !r.IsEquivalent }) {
		rows = append(rows, row{r.Timestamp, fmt.Sprintf("%s\t%s\tcarbs\t",
			r.Timestamp.Format(dateTimeFormat), r.Grams.String())})
	}

	groups := lo.GroupBy(
		lo.Filter(records, func(r models.IntakeRecord, _ int) bool { return r.IsEquivalent }),
		func(r models.IntakeRecord) string { return r.Group() },
	)
	for id, group := range groups {
		first := lo.MinBy(group, func(a, b models.IntakeRecord) bool { return a.Timestamp.Before(b.Timestamp) })
		last := lo.MaxBy(group, func(a, b models.IntakeRecord) bool { return a.Timestamp.After(b.Timestamp) })
		rows = append(rows, row{first.Timestamp, fmt.Sprintf("%s - %s\t%s\t%d equivalents\t%s",
			first.Timestamp.Format(dateTimeFormat), last.Timestamp.Format(clockFormat),
			models.TotalGrams(group).String(), len(group), id)})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].at.Before(rows[j].at) })

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tGRAMS\tKIND\tGROUP")
	for _, r := range rows {
		fmt.Fprintln(tw, r.line)
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "Total: %s g\n", models.TotalGrams(records).String())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
