package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/editorbridge/internal/client"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show status of a running editorbridge server",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := resolveServerURL()

	status, tools, err := client.Health(ctx, url)
	if err != nil {
		return fmt.Errorf("server unreachable at %s: %w", url, err)
	}
	fmt.Printf("health: %s (%d tools)\n", status, tools)

	body, err := client.Status(ctx, url)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(body)
}
