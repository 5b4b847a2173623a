package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"labelprint/internal/app"
	"labelprint/internal/config"
	"labelprint/internal/domain"
)

type printFlags struct {
	text       string
	subtitle   string
	largeTitle bool
	printer    string
}

func newPrintCmd() *cobra.Command {
	var f printFlags
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Render and print one label without starting the server",
		Long: `Print runs the same pipeline as POST /print once and exits.

Examples:
  labelprint print --text Milk --subtitle "2%"
  labelprint print --text Eggs --large-title --printer Pantry_DYMO`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrint(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.text, "text", "", "Label text (required)")
	cmd.Flags().StringVar(&f.subtitle, "subtitle", "", "Optional subtitle")
	cmd.Flags().BoolVar(&f.largeTitle, "large-title", false, "Use the large title layout")
	cmd.Flags().StringVar(&f.printer, "printer", "", "Printer name (overrides PRINTER_NAME)")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func runPrint(cmd *cobra.Command, f printFlags) error {
	cfg := config.Load()
	if f.printer != "" {
		cfg.Label.PrinterName = f.printer
	}
	initLogger(cfg)

	rdb := newRedisClient(cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	smallTitle := !f.largeTitle
	req := domain.PrintRequest{LabelText: f.text, SmallTitle: &smallTitle}
	if f.subtitle != "" {
		req.Subtitle = &f.subtitle
	}

	if err := app.NewLabelService(cfg, rdb).Submit(cmd.Context(), req); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "queued")
	return nil
}
