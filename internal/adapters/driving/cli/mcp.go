package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsync/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can search the
index.

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead.

Tools:
  search_context   similarity search with team, source and time filters
  index_status     document and chunk counts
  repair_index     verify the index and repair drift

Examples:
  # Stdio mode (default)
  docsync mcp

  # HTTP mode (for MCP Inspector, remote access)
  docsync mcp --port 8080

Client configuration:
  {
    "mcpServers": {
      "docsync": {
        "command": "/path/to/docsync",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	svc, err := services(cmd)
	if err != nil {
		return err
	}
	if svc.Search == nil {
		return errors.New("search service not configured")
	}

	ports := &mcp.Ports{
		Search: svc.Search,
		Repair: svc.Repairer,
	}
	if svc.Dispatcher != nil {
		ports.Dispatcher = svc.Dispatcher
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
