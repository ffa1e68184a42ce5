package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/automatar/internal/httpc"
	"github.com/teslashibe/automatar/pkg/animation"
	"github.com/teslashibe/automatar/pkg/marker"
)

func newAnimationsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "animations",
		Short: "Inspect and edit the animation catalog",
	}
	cmd.AddCommand(newAnimationsListCommand(ctx))
	cmd.AddCommand(newAnimationsSaveCommand(ctx))
	cmd.AddCommand(newAnimationsDeleteCommand(ctx))
	cmd.AddCommand(newAnimationsRefreshCommand(ctx))
	return cmd
}

func newAnimationsListCommand(ctx *commandContext) *cobra.Command {
	var markerID int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved animations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.supabase()
			if err != nil {
				return err
			}

			var rows []animation.Row
			if markerID >= 0 {
				rows, err = client.ListByMarker(cmd.Context(), markerID)
			} else {
				rows, err = client.ListAnimations(cmd.Context())
			}
			if err != nil {
				return err
			}

			lib := animation.NewLibrary()
			anims := make([]animation.Animation, 0, len(rows))
			for _, r := range rows {
				a, err := animation.Decode(r)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipping record: %v\n", err)
					continue
				}
				anims = append(anims, a)
			}
			lib.Replace(anims)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderAnimations(lib.All()))
			fmt.Fprintf(out, "%d animations, %d markers, %d with multiple animations\n",
				lib.Len(), lib.MarkerCount(), lib.MultiMarkers())
			return nil
		},
	}

	cmd.Flags().IntVarP(&markerID, "marker", "m", -1, "Only animations tagged with this marker id")
	return cmd
}

func newAnimationsSaveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "save <row.json>",
		Short: "Insert an animation record from a JSON file (- for stdin)",
		Long: "Insert an animation record. The file holds one row in the storage shape:\n" +
			"name, frame_rate, marker_tags and frame_urls. A missing id gets a new UUID.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := readRow(cmd, args[0])
			if err != nil {
				return err
			}
			if len(row.FrameURLs) == 0 {
				return fmt.Errorf("%s: frame_urls is empty", args[0])
			}
			if len(marker.NormalizeIDs(row.MarkerTags)) == 0 {
				return fmt.Errorf("%s: marker_tags has no valid marker id", args[0])
			}

			client, err := ctx.supabase()
			if err != nil {
				return err
			}
			saved, err := client.SaveAnimation(cmd.Context(), row)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved animation %s (%s)\n", animation.IDString(saved.ID), saved.Name)
			return nil
		},
	}
}

func readRow(cmd *cobra.Command, path string) (animation.Row, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return animation.Row{}, err
		}
		defer f.Close()
		r = f
	}

	var row animation.Row
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&row); err != nil {
		return animation.Row{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return row, nil
}

func newAnimationsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an animation record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return fmt.Errorf("animation id is empty")
			}
			client, err := ctx.supabase()
			if err != nil {
				return err
			}
			if err := client.DeleteAnimation(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted animation %s\n", id)
			return nil
		},
	}
}

func renderAnimations(anims []animation.Animation) string {
	rows := make([][]string, 0, len(anims))
	for _, a := range anims {
		tags := make([]string, 0, len(a.Tags))
		for _, t := range a.Tags {
			tags = append(tags, strconv.Itoa(t))
		}
		created := ""
		if !a.Metadata.CreatedAt.IsZero() {
			created = a.Metadata.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			a.ID,
			a.Name,
			strconv.Itoa(len(a.Frames)),
			strconv.FormatFloat(a.FrameRate(), 'g', -1, 64),
			strings.Join(tags, ","),
			created,
		})
	}
	return renderTable(
		[]string{"ID", "Name", "Frames", "FPS", "Markers", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	)
}

func newAnimationsRefreshCommand(ctx *commandContext) *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Ask a running server to reload its animation catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if server == "" {
				server = "http://localhost:" + cfg.Server.Port
			}

			result, err := postRefresh(cmd.Context(), strings.TrimRight(server, "/"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Catalog reloaded: %d animations\n", result.Animations)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server base URL (default http://localhost:<server.port>)")
	return cmd
}

type refreshResult struct {
	Animations int    `json:"animations"`
	Loaded     bool   `json:"loaded"`
	Error      string `json:"error"`
}

func postRefresh(ctx context.Context, base string) (refreshResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/animations/refresh", nil)
	if err != nil {
		return refreshResult{}, err
	}
	resp, err := httpc.Client.Do(req)
	if err != nil {
		return refreshResult{}, fmt.Errorf("contact server: %w", err)
	}
	defer resp.Body.Close()

	var result refreshResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return refreshResult{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("refresh failed (%d): %s", resp.StatusCode, result.Error)
	}
	return result, nil
}
