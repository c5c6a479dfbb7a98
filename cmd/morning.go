package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sells-group/leadsplit/internal/config"
	"github.com/sells-group/leadsplit/internal/model"
)

var morningCmd = &cobra.Command{
	Use:   "morning",
	Short: "Balance the base and build the morning dialer files",
	Example: `  leadsplit morning --input base.xlsx
  leadsplit morning --input base.xlsx --relevel --seed 7 -o out/morning.zip`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		applyFlowFlags(cmd.Flags(), cfg)
		if err := cfg.Validate(string(model.FlowMorning)); err != nil {
			return err
		}

		input, _ := cmd.Flags().GetString("input")
		name, data, err := readInput(input)
		if err != nil {
			return err
		}

		env, err := initFlow(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		in, err := env.readWorkbook(name, data)
		if err != nil {
			return err
		}
		res, b, err := env.run(ctx, model.FlowMorning, in, name)
		if err != nil {
			return eris.Wrap(err, "morning")
		}

		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = outputPath(cfg.Export.OutputDir, model.FlowMorning, time.Now())
		}
		return writeRun(os.Stdout, res, b, out)
	},
}

// addFlowFlags registers the flags shared by the morning and afternoon
// commands.
func addFlowFlags(fs *pflag.FlagSet) {
	fs.StringP("input", "i", "", "workbook with the mailing and dialer sheets (.xlsx or .csv)")
	fs.StringP("output", "o", "", "archive path (default <export.output_dir>/leadsplit_<flow>_<time>.zip)")
	fs.String("owner-column", "", "owner column (default from config)")
	fs.Bool("relevel", false, "move accounts from overloaded agents after the orphan fill")
	fs.Uint64("seed", 0, "random seed for tie breaking (0 picks one per run)")
	fs.Bool("no-mailing", false, "skip the MAILING_ files")
}

// applyFlowFlags overrides config values with explicitly set flags.
func applyFlowFlags(fs *pflag.FlagSet, c *config.Config) {
	if fs.Changed("owner-column") {
		c.Columns.Owner, _ = fs.GetString("owner-column")
	}
	if fs.Changed("relevel") {
		c.Balance.Relevel, _ = fs.GetBool("relevel")
	}
	if fs.Changed("seed") {
		c.Balance.Seed, _ = fs.GetUint64("seed")
	}
	if fs.Changed("no-mailing") {
		noMailing, _ := fs.GetBool("no-mailing")
		c.Export.IncludeMailing = !noMailing
	}
}

func init() {
	addFlowFlags(morningCmd.Flags())
	_ = morningCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(morningCmd)
}
