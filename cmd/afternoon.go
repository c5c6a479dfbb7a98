package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadsplit/internal/model"
)

var afternoonCmd = &cobra.Command{
	Use:   "afternoon",
	Short: "Drop worked fleet-owner accounts and build the afternoon dialer files",
	Example: `  leadsplit afternoon --input base.xlsx --log calls.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		applyFlowFlags(cmd.Flags(), cfg)
		if cmd.Flags().Changed("log-charset") {
			cfg.Input.LogCharset, _ = cmd.Flags().GetString("log-charset")
		}
		if err := cfg.Validate(string(model.FlowAfternoon)); err != nil {
			return err
		}

		input, _ := cmd.Flags().GetString("input")
		name, data, err := readInput(input)
		if err != nil {
			return err
		}
		logPath, _ := cmd.Flags().GetString("log")
		logName, logData, err := readInput(logPath)
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
		if err := env.readCallLog(&in, logName, logData); err != nil {
			return err
		}
		res, b, err := env.run(ctx, model.FlowAfternoon, in, name)
		if err != nil {
			return eris.Wrap(err, "afternoon")
		}

		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = outputPath(cfg.Export.OutputDir, model.FlowAfternoon, time.Now())
		}
		return writeRun(os.Stdout, res, b, out)
	},
}

func init() {
	addFlowFlags(afternoonCmd.Flags())
	afternoonCmd.Flags().StringP("log", "l", "", "dialer call log of worked accounts (.csv or .xlsx)")
	afternoonCmd.Flags().String("log-charset", "", "call log charset, e.g. iso-8859-1 (default from config)")
	_ = afternoonCmd.MarkFlagRequired("input")
	_ = afternoonCmd.MarkFlagRequired("log")
	rootCmd.AddCommand(afternoonCmd)
}
