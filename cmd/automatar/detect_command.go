package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teslashibe/automatar/pkg/marker/aruco"
)

func newDetectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <image>",
		Short: "Detect markers in a JPEG/PNG image and show what they map to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			catalog, err := ctx.catalog()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			detector, err := aruco.New(aruco.Config{Dictionary: cfg.Detector.Dictionary})
			if err != nil {
				return err
			}
			defer detector.Close()

			markers, err := detector.Detect(data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(markers) == 0 {
				fmt.Fprintln(out, "No markers detected")
				return nil
			}

			rows := make([][]string, 0, len(markers))
			for _, m := range markers {
				c := m.Center()
				content := "-"
				if sc, err := catalog.Get(m.ID); err == nil {
					content = "scenario: " + sc.Name
				} else if model, ok := catalog.DirectModel(m.ID); ok {
					content = "model: " + model
				}
				rows = append(rows, []string{
					strconv.Itoa(m.ID),
					fmt.Sprintf("%.0f,%.0f", c.X, c.Y),
					fmt.Sprintf("%.1f", m.Size()),
					content,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Center", "Size", "Content"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}
