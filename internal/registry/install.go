// file: internal/registry/install.go
package registry

import (
	"context"

	"github.com/marekdano/weather-mcp-server/internal/mcperror"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Install seals the registry and exposes every tool and resource template on
// srv. Dispatch failures are reported to clients as tool results with IsError
// set, with any schema violations as structured content. Resource read
// failures are protocol errors carrying the code from mcperror.GetErrorCode.
func (r *Registry) Install(srv *mcp.Server) {
	r.Seal()

	tools, resources := r.Tools(), r.Resources()
	for _, t := range tools {
		srv.AddTool(&mcp.Tool{
			Name:         t.Name,
			Title:        t.Title,
			Description:  t.Description,
			InputSchema:  t.InputSchema,
			OutputSchema: outputSchema(t),
		}, r.toolHandler(t.Name))
	}

	for _, res := range resources {
		srv.AddResourceTemplate(&mcp.ResourceTemplate{
			Name:        res.Name,
			Title:       res.Title,
			Description: res.Description,
			URITemplate: res.URITemplate,
			MIMEType:    res.MIMEType,
		}, r.resourceHandler())
	}

	r.logger.Info("Registry installed on MCP server.", "tools", len(tools), "resources", len(resources))
}

// outputSchema avoids handing the SDK a typed nil inside a non-nil interface.
func outputSchema(t Tool) any {
	if t.OutputSchema == nil {
		return nil
	}
	return t.OutputSchema
}

func (r *Registry) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := r.Dispatch(ctx, name, req.Params.Arguments)
		if err != nil {
			out := &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}
			if violations := mcperror.ViolationsOf(err); len(violations) > 0 {
				out.StructuredContent = map[string]any{"violations": violations}
			}
			return out, nil
		}
		return &mcp.CallToolResult{
			Content:           res.Content,
			StructuredContent: res.StructuredContent,
		}, nil
	}
}

func (r *Registry) resourceHandler() mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := req.Params.URI
		contents, err := r.ReadResource(ctx, uri)
		if err != nil {
			return nil, protocolError(uri, err)
		}
		out := make([]*mcp.ResourceContents, 0, len(contents))
		for _, c := range contents {
			out = append(out, &mcp.ResourceContents{URI: c.URI, MIMEType: c.MIMEType, Text: c.Text})
		}
		return &mcp.ReadResourceResult{Contents: out}, nil
	}
}

// protocolError converts a read failure into the JSON-RPC error sent to the
// client.
func protocolError(uri string, err error) error {
	code := mcperror.GetErrorCode(err)
	if code == mcperror.CodeResourceNotFound {
		return mcp.ResourceNotFoundError(uri)
	}
	return &jsonrpc.Error{Code: int64(code), Message: err.Error()}
}
