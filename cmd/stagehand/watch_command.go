package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"stagehand/internal/client"
	"stagehand/internal/pubsub"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var poll bool
	var since uint64

	cmd := &cobra.Command{
		Use:   "watch [positionMap|positionRecord]",
		Short: "Stream change notifications",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := pubsub.TopicPositionRecord
			if len(args) == 1 {
				parsed, err := pubsub.ParseTopic(args[0])
				if err != nil {
					return err
				}
				topic = parsed
			}
			out := cmd.OutOrStdout()
			emit := func(evt pubsub.Event) error {
				if ctx.jsonOutput() {
					return writeJSON(cmd, evt)
				}
				writeEventLine(out, evt)
				return nil
			}
			return ctx.withClient(func(c *client.Client) error {
				if !poll {
					return c.Watch(cmd.Context(), topic, emit)
				}
				cursor := since
				for cmd.Context().Err() == nil {
					page, err := c.Events(cmd.Context(), topic, cursor, 0, true)
					if err != nil {
						if cmd.Context().Err() != nil {
							return nil
						}
						return err
					}
					if page.Gap {
						fmt.Fprintf(cmd.ErrOrStderr(), "missed events after #%d (history starts at #%d); reload frame ids\n", cursor, page.Oldest)
					}
					for _, evt := range page.Events {
						if err := emit(evt); err != nil {
							return err
						}
					}
					cursor = page.Next
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&poll, "poll", false, "Use the long-poll feed instead of a websocket")
	cmd.Flags().Uint64Var(&since, "since", 0, "Start after this sequence (long-poll only)")
	return cmd
}

func writeEventLine(w io.Writer, evt pubsub.Event) {
	ts := evt.Timestamp.Local().Format("15:04:05.000")
	switch {
	case evt.Map != nil:
		f := evt.Map.Frame
		fmt.Fprintf(w, "%s #%d %s by %s create=%v update=%v delete=%v\n",
			ts, evt.Sequence, evt.Topic, evt.Map.EditBy, f.CreateList, f.UpdateList, f.DeleteList)
	case evt.Record != nil:
		r := evt.Record
		ids := r.AddID
		switch r.Mutation {
		case pubsub.MutationUpdated:
			ids = r.UpdateID
		case pubsub.MutationDeleted:
			ids = r.DeleteID
		}
		fmt.Fprintf(w, "%s #%d %s %s by %s ids=%v index=%d\n",
			ts, evt.Sequence, evt.Topic, strings.ToLower(string(r.Mutation)), r.EditBy, ids, r.Index)
	default:
		fmt.Fprintf(w, "%s #%d %s\n", ts, evt.Sequence, evt.Topic)
	}
}
