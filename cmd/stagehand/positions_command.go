package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stagehand/internal/api"
	"stagehand/internal/client"
)

func newPositionsCommand(ctx *commandContext) *cobra.Command {
	positionsCmd := &cobra.Command{
		Use:   "positions",
		Short: "Edit performer positions within a frame",
	}
	positionsCmd.AddCommand(&cobra.Command{
		Use:   "set <frame-id> <performer=x,y,z>...",
		Short: "Set coordinates for one or more performers",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseInt("frame id", args[0])
			if err != nil {
				return err
			}
			inputs := make([]api.PositionInput, 0, len(args)-1)
			for _, arg := range args[1:] {
				input, err := parsePositionArg(arg)
				if err != nil {
					return err
				}
				inputs = append(inputs, input)
			}
			return ctx.withClient(func(c *client.Client) error {
				snap, err := c.SetPositions(cmd.Context(), id, inputs)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, snap)
				}
				if snap == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Frame %d not found\n", id)
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderSnapshot(snap))
				return nil
			})
		},
	})
	return positionsCmd
}

// parsePositionArg reads "name=x,y,z". The name may contain '=' only before
// the last one.
func parsePositionArg(arg string) (api.PositionInput, error) {
	idx := strings.LastIndex(arg, "=")
	if idx <= 0 {
		return api.PositionInput{}, fmt.Errorf("invalid position %q (want performer=x,y,z)", arg)
	}
	name := strings.TrimSpace(arg[:idx])
	coords := strings.Split(arg[idx+1:], ",")
	if len(coords) != 3 {
		return api.PositionInput{}, fmt.Errorf("invalid position %q (want three coordinates)", arg)
	}
	values := make([]float64, 3)
	for i, raw := range coords {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return api.PositionInput{}, fmt.Errorf("invalid coordinate %q in %q", raw, arg)
		}
		values[i] = v
	}
	return api.PositionInput{DancerName: name, X: values[0], Y: values[1], Z: values[2]}, nil
}
