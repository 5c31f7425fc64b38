package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stagehand/internal/api"
	"stagehand/internal/client"
)

func newFramesCommand(ctx *commandContext) *cobra.Command {
	framesCmd := &cobra.Command{
		Use:     "frames",
		Aliases: []string{"frame"},
		Short:   "Inspect and edit timeline frames",
	}

	framesCmd.AddCommand(newFramesListCommand(ctx))
	framesCmd.AddCommand(newFramesAtCommand(ctx))
	framesCmd.AddCommand(newFramesShowCommand(ctx))
	framesCmd.AddCommand(newFramesMapCommand(ctx))
	framesCmd.AddCommand(newFramesAddCommand(ctx))
	framesCmd.AddCommand(newFramesEditCommand(ctx))
	framesCmd.AddCommand(newFramesDeleteCommand(ctx))

	return framesCmd
}

func newFramesListCommand(ctx *commandContext) *cobra.Command {
	var idsOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List frames in timeline order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				if idsOnly {
					ids, err := c.FrameIDs(cmd.Context())
					if err != nil {
						return err
					}
					if ctx.jsonOutput() {
						return writeJSON(cmd, api.FrameIDsResponse{IDs: ids})
					}
					out := cmd.OutOrStdout()
					for _, id := range ids {
						fmt.Fprintln(out, id)
					}
					return nil
				}
				frames, err := c.Frames(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.FrameListResponse{Frames: frames})
				}
				if len(frames) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No frames")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderFrameTable(frames))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&idsOnly, "ids", false, "Print frame ids only")
	return cmd
}

func newFramesAtCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "at <start>",
		Short: "Show the frame that starts at the given time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseInt("start", args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(c *client.Client) error {
				frame, err := c.FrameAt(cmd.Context(), start)
				if err != nil {
					return err
				}
				return printFrameResult(cmd, ctx, frame, fmt.Sprintf("No frame starts at %d", start))
			})
		},
	}
}

func newFramesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a frame with its performer positions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseInt("frame id", args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(c *client.Client) error {
				snap, err := c.Frame(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, snap)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderSnapshot(snap))
				return nil
			})
		},
	}
}

func newFramesMapCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "map",
		Short: "Show every frame with its positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				snaps, err := c.PositionMap(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.PositionMapResponse{Frames: snaps})
				}
				out := cmd.OutOrStdout()
				if len(snaps) == 0 {
					fmt.Fprintln(out, "No frames")
					return nil
				}
				for i := range snaps {
					fmt.Fprint(out, renderSnapshot(&snaps[i]))
				}
				return nil
			})
		},
	}
}

func newFramesAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <start>",
		Short: "Create a frame at the given start time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseInt("start", args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(c *client.Client) error {
				frame, err := c.AddFrame(cmd.Context(), start)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, frame)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created frame %d at %d\n", frame.ID, frame.Start)
				return nil
			})
		},
	}
}

func newFramesEditCommand(ctx *commandContext) *cobra.Command {
	var startFlag string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Move a frame to a new start time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseInt("frame id", args[0])
			if err != nil {
				return err
			}
			var start *int64
			if strings.TrimSpace(startFlag) != "" {
				value, err := parseInt("start", startFlag)
				if err != nil {
					return err
				}
				start = &value
			}
			return ctx.withClient(func(c *client.Client) error {
				frame, err := c.EditFrame(cmd.Context(), id, start)
				if err != nil {
					return err
				}
				return printFrameResult(cmd, ctx, frame, fmt.Sprintf("Frame %d not found", id))
			})
		},
	}
	cmd.Flags().StringVar(&startFlag, "start", "", "New start time")
	return cmd
}

func newFramesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a frame and its position data",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseInt("frame id", args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(c *client.Client) error {
				frame, err := c.DeleteFrame(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, frame)
				}
				out := cmd.OutOrStdout()
				if frame == nil {
					fmt.Fprintf(out, "Frame %d not found\n", id)
					return nil
				}
				fmt.Fprintf(out, "Deleted frame %d (start %d)\n", frame.ID, frame.Start)
				return nil
			})
		},
	}
}

func printFrameResult(cmd *cobra.Command, ctx *commandContext, frame *api.PositionFrame, missing string) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, frame)
	}
	if frame == nil {
		fmt.Fprintln(cmd.OutOrStdout(), missing)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderFrameTable([]api.PositionFrame{*frame}))
	return nil
}

func renderFrameTable(frames []api.PositionFrame) string {
	rows := make([][]string, 0, len(frames))
	for i, f := range frames {
		rows = append(rows, []string{
			strconv.Itoa(i),
			strconv.FormatInt(f.ID, 10),
			strconv.FormatInt(f.Start, 10),
			f.UpdatedAt,
		})
	}
	return renderTable([]string{"Index", "ID", "Start", "Updated"}, rows, []columnAlignment{alignRight, alignRight, alignRight})
}

func renderSnapshot(snap *api.FrameSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Frame %d @ %d\n", snap.FrameID, snap.Start)
	if len(snap.Positions) == 0 {
		b.WriteString("  (no performers)\n")
		return b.String()
	}
	rows := make([][]string, 0, len(snap.Positions))
	for _, p := range snap.Positions {
		rows = append(rows, []string{p.Performer, formatCoord(p.X), formatCoord(p.Y), formatCoord(p.Z)})
	}
	b.WriteString(renderTable([]string{"Performer", "X", "Y", "Z"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight}))
	b.WriteString("\n")
	return b.String()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseInt(label, raw string) (int64, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", label, raw)
	}
	return value, nil
}
