package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stagehand/internal/api"
	"stagehand/internal/client"
)

func newPartsCommand(ctx *commandContext) *cobra.Command {
	partsCmd := &cobra.Command{
		Use:   "parts",
		Short: "Manage performer parts",
	}

	var addType string
	addCmd := &cobra.Command{
		Use:   "add <performer> <name>",
		Short: "Add a part to a performer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				part, err := c.AddPart(cmd.Context(), api.AddPartRequest{DancerName: args[0], Name: args[1], Type: addType})
				if err != nil {
					return err
				}
				return printPart(cmd, ctx, "Added", part)
			})
		},
	}
	addCmd.Flags().StringVarP(&addType, "type", "t", "LED", "Control type (LED or FIBER)")
	partsCmd.AddCommand(addCmd)

	var editType string
	editCmd := &cobra.Command{
		Use:   "edit <performer> <id> <name>",
		Short: "Rename or retype a part",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseInt("part id", args[1])
			if err != nil {
				return err
			}
			return ctx.withClient(func(c *client.Client) error {
				part, err := c.EditPart(cmd.Context(), api.EditPartRequest{ID: id, DancerName: args[0], Name: args[2], Type: editType})
				if err != nil {
					return err
				}
				return printPart(cmd, ctx, "Updated", part)
			})
		},
	}
	editCmd.Flags().StringVarP(&editType, "type", "t", "LED", "Control type (LED or FIBER)")
	partsCmd.AddCommand(editCmd)

	partsCmd.AddCommand(&cobra.Command{
		Use:     "delete <performer> <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a part",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseInt("part id", args[1])
			if err != nil {
				return err
			}
			return ctx.withClient(func(c *client.Client) error {
				part, err := c.DeletePart(cmd.Context(), api.DeletePartRequest{ID: id, DancerName: args[0]})
				if err != nil {
					return err
				}
				return printPart(cmd, ctx, "Removed", part)
			})
		},
	})

	return partsCmd
}

func printPart(cmd *cobra.Command, ctx *commandContext, verb string, part *api.Part) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, part)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s part %s#%d (%s)\n", verb, part.Name, part.ID, part.Type)
	return nil
}
