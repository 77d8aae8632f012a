// Package agentgate is the Go client for the agentgate gateway. It
// handles credential exchange, attaches the token to every call, and
// speaks the gateway's JSON-RPC 2.0 action surface.
//
// Usage:
//
//	c, err := agentgate.New("https://gate.example.com",
//	    agentgate.WithCredentials("agent-1", secret))
//	if err := c.Authenticate(ctx); err != nil { ... }
//	tools, err := c.ListTools(ctx)
//	out, err := c.CallTool(ctx, "search_products", map[string]any{"query": "keyboard"})
//
// External users import github.com/okhotin/agentgate/sdk/go/agentgate.
package agentgate
