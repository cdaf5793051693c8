package reinforce

import (
	"context"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Middleware runs every successful tool result through the session. The
// text of the result is measured but never edited: when a reminder fires
// it is appended as its own text block, so JSON payloads stay parseable.
// Error results and the tools named in skip pass through untouched and do
// not count as turns.
func (m *Manager) Middleware(skip ...string) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			res, err := next(ctx, req)
			if err != nil || res == nil || res.IsError || slices.Contains(skip, req.Params.Name) {
				return res, err
			}

			var texts []string
			for _, c := range res.Content {
				if tc, ok := c.(mcp.TextContent); ok {
					texts = append(texts, tc.Text)
				}
			}
			if len(texts) == 0 {
				return res, nil
			}

			out := m.EnrichResponseWithContext(strings.Join(texts, "\n"))
			if out.ContextInjected {
				res.Content = append(res.Content, mcp.NewTextContent(out.Reminder))
			}
			return res, nil
		}
	}
}
