package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stagehand/internal/api"
	"stagehand/internal/client"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server, database, and notifier status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				status, err := c.Status(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, status)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderStatus(status))
				return nil
			})
		},
	}
}

func renderStatus(status *api.StatusResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Server:     running=%s pid=%d since %s\n", yesNo(status.Running), status.PID, status.StartedAt)
	db := status.Database
	fmt.Fprintf(&b, "Database:   %s (readable=%s integrity=%s)\n", db.Path, yesNo(db.Readable), yesNo(db.IntegrityOK))
	if db.Error != "" {
		fmt.Fprintf(&b, "            error: %s\n", db.Error)
	}
	fmt.Fprintf(&b, "Records:    %d performers, %d parts, %d frames, %d position rows\n",
		db.Performers, db.Parts, db.Frames, db.PositionRows)
	fmt.Fprintf(&b, "Cache:      %d snapshots\n", status.CacheEntries)

	topics := make([]string, 0, len(status.Notifier.Subscribers))
	for topic := range status.Notifier.Subscribers {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	subs := make([]string, 0, len(topics))
	for _, topic := range topics {
		subs = append(subs, fmt.Sprintf("%s=%d", topic, status.Notifier.Subscribers[topic]))
	}
	fmt.Fprintf(&b, "Notifier:   seq %d, subscribers %s\n", status.Notifier.LastSequence, strings.Join(subs, " "))

	if len(status.EditLocks) == 0 {
		b.WriteString("Edit locks: none\n")
		return b.String()
	}
	b.WriteString("Edit locks:\n")
	rows := make([][]string, 0, len(status.EditLocks))
	for _, lock := range status.EditLocks {
		rows = append(rows, []string{strconv.FormatInt(lock.FrameID, 10), lock.UserID, lock.AcquiredAt})
	}
	b.WriteString(renderTable([]string{"Frame", "User", "Acquired"}, rows, []columnAlignment{alignRight}))
	b.WriteString("\n")
	return b.String()
}
