package cli

import (
	"fmt"

	"github.com/neilberkman/oralvis/cmd/oralvis/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start MCP server for session lookup",
	Long: `Start an MCP (Model Context Protocol) server over stdio that lets an
assistant list, look up, and export capture sessions.

Configure in your MCP client:
  {
    "mcpServers": {
      "oralvis": {
        "command": "oralvis",
        "args": ["serve-mcp"]
      }
    }
  }
`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	if err := mcp.StartServer(cfg.DBPath, cfg.PicturesRoot, cfg.ReportTemplate); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
