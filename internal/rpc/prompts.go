package rpc

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PromptArg is a named placeholder a prompt template accepts.
type PromptArg struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Prompt is a named template materialized via prompts/get. Placeholders
// use {{name}} syntax.
type Prompt struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Arguments   []PromptArg `json:"arguments,omitempty"`
	Template    string      `json:"-"`
}

// Render substitutes the provided arguments into the template.
func (p Prompt) Render(args map[string]string) string {
	out := p.Template
	for k, v := range args {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}

// PromptSet holds prompts in listing order.
type PromptSet struct {
	prompts []Prompt
	byName  map[string]Prompt
}

// NewPromptSet builds a set preserving declaration order.
func NewPromptSet(prompts ...Prompt) *PromptSet {
	s := &PromptSet{byName: make(map[string]Prompt, len(prompts))}
	for _, p := range prompts {
		if _, dup := s.byName[p.Name]; dup {
			continue
		}
		s.prompts = append(s.prompts, p)
		s.byName[p.Name] = p
	}
	return s
}

// DefaultPrompts are the built-in shopping assistance templates.
func DefaultPrompts() *PromptSet {
	return NewPromptSet(
		Prompt{
			Name:        "find_product",
			Description: "Search guidance for a product query",
			Arguments: []PromptArg{
				{Name: "query", Description: "what the user is looking for", Required: true},
			},
			Template: "Find products matching {{query}}. Prefer in-stock items and list price for each.",
		},
		Prompt{
			Name:        "order_help",
			Description: "Assistance template for an existing order",
			Arguments: []PromptArg{
				{Name: "order_id", Description: "the order to look up", Required: true},
			},
			Template: "Look up order {{order_id}} and summarize its status, items and expected delivery.",
		},
	)
}

func (d *Dispatcher) handlePromptsList(req Request) *Response {
	list := make([]map[string]any, 0, len(d.prompts.prompts))
	for _, p := range d.prompts.prompts {
		list = append(list, map[string]any{
			"name":        p.Name,
			"description": p.Description,
			"arguments":   p.Arguments,
		})
	}
	return result(req.ID, map[string]any{"prompts": list})
}

func (d *Dispatcher) handlePromptsGet(req Request) *Response {
	var params struct {
		Name      string            `json:"name"`
		Arguments map[string]string `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return errorResponse(req.ID, CodeInvalidParams, "prompts/get requires params.name", nil)
	}

	p, ok := d.prompts.byName[params.Name]
	if !ok {
		return errorResponse(req.ID, CodeInvalidParams, "prompt not found",
			map[string]any{"name": params.Name})
	}

	for _, arg := range p.Arguments {
		if !arg.Required {
			continue
		}
		if _, present := params.Arguments[arg.Name]; !present {
			return errorResponse(req.ID, CodeInvalidParams,
				fmt.Sprintf("missing required argument %q", arg.Name), nil)
		}
	}

	return result(req.ID, map[string]any{
		"description": p.Description,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": map[string]any{
					"type": "text",
					"text": p.Render(params.Arguments),
				},
			},
		},
	})
}
