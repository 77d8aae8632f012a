package rpc

import (
	"context"
	"encoding/json"

	"github.com/okhotin/agentgate/internal/permission"
)

// Resource is a URI-addressed, read-only document exposed over
// resources/list and resources/read. Scope, when set, must be granted
// by the caller's token for the read to succeed.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Scope       string `json:"-"`

	Fetch func(ctx context.Context) (any, error) `json:"-"`
}

// ResourceSet holds the resources in listing order.
type ResourceSet struct {
	resources []Resource
	byURI     map[string]Resource
}

// NewResourceSet builds a set preserving declaration order.
func NewResourceSet(resources ...Resource) *ResourceSet {
	s := &ResourceSet{byURI: make(map[string]Resource, len(resources))}
	for _, r := range resources {
		if _, dup := s.byURI[r.URI]; dup {
			continue
		}
		s.resources = append(s.resources, r)
		s.byURI[r.URI] = r
	}
	return s
}

// DefaultResources exposes the product catalog snapshot.
func DefaultResources() *ResourceSet {
	return NewResourceSet(Resource{
		URI:         "catalog://products",
		Name:        "Product catalog",
		Description: "Read-only snapshot of the product catalog",
		MimeType:    "application/json",
		Scope:       "catalog:read",
		Fetch: func(ctx context.Context) (any, error) {
			return sampleProducts, nil
		},
	})
}

var sampleProducts = []map[string]any{
	{"id": "p-1001", "name": "Wireless Keyboard", "price": 49.90, "inStock": true},
	{"id": "p-1002", "name": "USB-C Dock", "price": 129.00, "inStock": true},
	{"id": "p-1003", "name": "27in Monitor", "price": 279.50, "inStock": false},
}

func (d *Dispatcher) handleResourcesList(ctx context.Context, req Request) *Response {
	scopes := callerScopes(ctx)

	list := make([]map[string]any, 0, len(d.resources.resources))
	for _, r := range d.resources.resources {
		if r.Scope != "" && scopes != nil && !permission.HasScope(scopes, r.Scope) {
			continue
		}
		list = append(list, map[string]any{
			"uri":         r.URI,
			"name":        r.Name,
			"description": r.Description,
			"mimeType":    r.MimeType,
		})
	}
	return result(req.ID, map[string]any{"resources": list})
}

func (d *Dispatcher) handleResourcesRead(ctx context.Context, req Request) *Response {
	var params struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.URI == "" {
		return errorResponse(req.ID, CodeInvalidParams, "resources/read requires params.uri", nil)
	}

	res, ok := d.resources.byURI[params.URI]
	if !ok {
		return errorResponse(req.ID, CodeInvalidParams, "resource not found",
			map[string]any{"uri": params.URI})
	}

	if res.Scope != "" {
		if scopes := callerScopes(ctx); scopes != nil && !permission.HasScope(scopes, res.Scope) {
			return errorResponse(req.ID, CodePermissionDenied, "scope not granted",
				map[string]any{"required": res.Scope})
		}
	}

	content, err := res.Fetch(ctx)
	if err != nil {
		return errorResponse(req.ID, CodeInternalError, "resource fetch failed", nil)
	}

	return result(req.ID, map[string]any{
		"contents": []map[string]any{
			{"uri": res.URI, "mimeType": res.MimeType, "text": renderText(content)},
		},
	})
}
