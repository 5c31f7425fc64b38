package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stagehand/internal/api"
	"stagehand/internal/client"
)

func newPerformersCommand(ctx *commandContext) *cobra.Command {
	performersCmd := &cobra.Command{
		Use:     "performers",
		Aliases: []string{"dancers"},
		Short:   "Manage the performer roster",
	}

	performersCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List performers with their parts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				performers, err := c.Performers(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.PerformerListResponse{Performers: performers})
				}
				if len(performers) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No performers")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderPerformerTable(performers))
				return nil
			})
		},
	})

	performersCmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a performer to every frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				performer, err := c.AddPerformer(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, performer)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added performer %s (id %d)\n", performer.Name, performer.ID)
				return nil
			})
		},
	})

	performersCmd.AddCommand(&cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a performer with its parts and positions",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				performer, err := c.DeletePerformer(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, performer)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed performer %s\n", performer.Name)
				return nil
			})
		},
	})

	return performersCmd
}

func renderPerformerTable(performers []api.Performer) string {
	rows := make([][]string, 0, len(performers))
	for _, p := range performers {
		parts := make([]string, 0, len(p.Parts))
		for _, part := range p.Parts {
			parts = append(parts, fmt.Sprintf("%s#%d(%s)", part.Name, part.ID, part.Type))
		}
		rows = append(rows, []string{strconv.FormatInt(p.ID, 10), p.Name, strings.Join(parts, ", ")})
	}
	return renderTable([]string{"ID", "Name", "Parts"}, rows, []columnAlignment{alignRight})
}
