package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/editorbridge/internal/client"
)

var callArgsJSON string

var callCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Invoke a tool on a running server",
	Long: `Invoke a single tool and print its result.

Arguments are passed as a JSON object:

  editorbridge call openFile --args '{"path": "main.go", "line": 42}'`,
	Args: cobra.ExactArgs(1),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVar(&callArgsJSON, "args", "{}", "Tool arguments as a JSON object")
}

func runCall(cmd *cobra.Command, args []string) error {
	var toolArgs map[string]any
	if err := json.Unmarshal([]byte(callArgsJSON), &toolArgs); err != nil {
		return fmt.Errorf("invalid --args: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := client.Connect(ctx, resolveServerURL())
	if err != nil {
		return err
	}
	defer c.Close()

	result, err := c.CallTool(ctx, args[0], toolArgs)
	if err != nil {
		return err
	}

	for _, content := range result.Content {
		fmt.Println(content.Text)
	}
	if result.IsError {
		return fmt.Errorf("tool %s failed", args[0])
	}
	return nil
}
