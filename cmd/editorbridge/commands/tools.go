package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/editorbridge/internal/client"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List tools exposed by a running server",
	RunE:  runTools,
}

func runTools(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := client.Connect(ctx, resolveServerURL())
	if err != nil {
		return err
	}
	defer c.Close()

	tools, err := c.ListTools(ctx)
	if err != nil {
		return err
	}

	for _, t := range tools {
		fmt.Printf("%-18s %s\n", t.Name, t.Description)
	}
	return nil
}
