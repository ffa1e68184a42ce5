package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/automatar/internal/httpc"
	"github.com/teslashibe/automatar/pkg/animation"
)

func newPrefsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Manage stored per-marker animation choices",
	}
	cmd.AddCommand(newPrefsListCommand(ctx))
	cmd.AddCommand(newPrefsResetCommand(ctx))
	return cmd
}

func loadPreferences(ctx *commandContext) (*animation.Preferences, error) {
	store, err := ctx.store()
	if err != nil {
		return nil, err
	}
	prefs := animation.NewPreferences(store)
	if err := prefs.Load(); err != nil {
		return nil, err
	}
	return prefs, nil
}

func newPrefsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show stored choices",
		RunE: func(cmd *cobra.Command, args []string) error {
			prefs, err := loadPreferences(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if prefs.Len() == 0 {
				fmt.Fprintln(out, "No preferences stored")
				return nil
			}

			all := prefs.All()
			rows := make([][]string, 0, len(all))
			for _, id := range prefs.Markers() {
				rows = append(rows, []string{strconv.Itoa(id), all[id]})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Marker", "Animation"},
				rows,
				[]columnAlignment{alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newPrefsResetCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var server string

	cmd := &cobra.Command{
		Use:   "reset [marker-id...]",
		Short: "Forget stored choices",
		Long: "Forget stored choices.\n\n" +
			"With --server the reset goes through a running `serve`, which reopens the\n" +
			"selection menu for markers that are on screen. Without it the preference\n" +
			"file is edited directly; do that only while the server is stopped, since a\n" +
			"running server keeps its own copy and writes it back on the next change.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("give one or more marker ids, or --all")
			}
			prefs, err := loadPreferences(ctx)
			if err != nil {
				return err
			}

			ids := prefs.Markers()
			if !all {
				ids = nil
				for _, arg := range args {
					id, err := strconv.Atoi(arg)
					if err != nil || id < 0 {
						return fmt.Errorf("invalid marker id %q", arg)
					}
					ids = append(ids, id)
				}
			}

			out := cmd.OutOrStdout()
			if server != "" {
				base := strings.TrimRight(server, "/")
				for _, id := range ids {
					if err := deletePreference(cmd.Context(), base, id); err != nil {
						return err
					}
				}
				fmt.Fprintf(out, "Reset %d marker(s) on %s\n", len(ids), base)
				return nil
			}

			removed := 0
			for _, id := range ids {
				if prefs.Delete(id) {
					removed++
				}
			}
			if err := prefs.Save(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %d preference(s)\n", removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Forget every stored choice")
	cmd.Flags().StringVar(&server, "server", "", "Reset through a running server at this base URL")
	return cmd
}

func deletePreference(ctx context.Context, base string, markerID int) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/api/markers/%d/preference", base, markerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpc.Client.Do(req)
	if err != nil {
		return fmt.Errorf("contact server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("reset marker %d failed (%d): %s", markerID, resp.StatusCode, body.Error)
	}
	return nil
}
