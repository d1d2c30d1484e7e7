// Package topology parses AIF and AIW metadata documents and resolves a
// workflow's declared port bindings into message store channels.
package topology

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	aif "github.com/goliatone/go-aif"
	"gopkg.in/yaml.v3"
)

// AIF is the parsed AIF metadata document.
type AIF struct {
	Title string
	Raw   map[string]any
}

// Binding routes the channel named PortName into the inputs of AIMName.
type Binding struct {
	AIMName  string
	PortName string
	Index    int
}

func (b Binding) String() string {
	return b.AIMName + ":" + b.PortName
}

// Graph is the parsed AIW metadata document.
type Graph struct {
	Title    string
	Bindings []Binding
	SubAIMs  []string
}

// PortNames returns the distinct port names in declaration order.
func (g Graph) PortNames() []string {
	seen := make(map[string]bool, len(g.Bindings))
	out := make([]string, 0, len(g.Bindings))
	for _, b := range g.Bindings {
		if seen[b.PortName] {
			continue
		}
		seen[b.PortName] = true
		out = append(out, b.PortName)
	}
	return out
}

// HasAIM reports whether name is listed in SubAIMs.
func (g Graph) HasAIM(name string) bool {
	for _, n := range g.SubAIMs {
		if n == name {
			return true
		}
	}
	return false
}

// decode parses JSON or YAML into a generic tree. yaml handles JSON too,
// except for tab indentation, which falls back to encoding/json.
func decode(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, aif.CloneError(aif.ErrMalformedMetadata, "metadata document is empty", nil, nil)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		if !json.Valid(data) {
			return nil, aif.CloneError(aif.ErrMalformedMetadata, "metadata document is not valid JSON or YAML", err, nil)
		}
		tree = nil
		if jerr := json.Unmarshal(data, &tree); jerr != nil {
			return nil, aif.CloneError(aif.ErrMalformedMetadata, "metadata document is not an object", jerr, nil)
		}
	}
	if tree == nil {
		return nil, aif.CloneError(aif.ErrMalformedMetadata, "metadata document is not an object", nil, nil)
	}
	return tree, nil
}

// ParseAIF parses an AIF document. Only the title is required.
func ParseAIF(data []byte) (AIF, error) {
	tree, err := decode(data)
	if err != nil {
		return AIF{}, err
	}
	title, err := requireString(tree, "title", "title")
	if err != nil {
		return AIF{}, err
	}
	return AIF{Title: title, Raw: tree}, nil
}

// ParseAIW parses an AIW document into its bindings and sub-AIM list.
// Topology entries without an Output object are ignored.
func ParseAIW(data []byte) (Graph, error) {
	tree, err := decode(data)
	if err != nil {
		return Graph{}, err
	}

	title, err := requireString(tree, "title", "title")
	if err != nil {
		return Graph{}, err
	}
	graph := Graph{Title: title}

	if raw, ok := tree["Topology"]; ok && raw != nil {
		items, ok := raw.([]any)
		if !ok {
			return Graph{}, malformed("Topology", "must be an array")
		}
		for idx, item := range items {
			el, ok := item.(map[string]any)
			if !ok {
				return Graph{}, malformed(fmt.Sprintf("Topology[%d]", idx), "must be an object")
			}
			outRaw, ok := el["Output"]
			if !ok || outRaw == nil {
				continue
			}
			out, ok := outRaw.(map[string]any)
			if !ok {
				return Graph{}, malformed(fmt.Sprintf("Topology[%d].Output", idx), "must be an object")
			}
			path := fmt.Sprintf("Topology[%d].Output", idx)
			aimName, err := requireString(out, "AIMName", path+".AIMName")
			if err != nil {
				return Graph{}, err
			}
			port, err := requireString(out, "PortName", path+".PortName")
			if err != nil {
				return Graph{}, err
			}
			graph.Bindings = append(graph.Bindings, Binding{AIMName: aimName, PortName: port, Index: idx})
		}
	}

	raw, ok := tree["SubAIMs"]
	if !ok {
		return Graph{}, malformed("SubAIMs", "is required")
	}
	items, ok := raw.([]any)
	if !ok {
		return Graph{}, malformed("SubAIMs", "must be an array")
	}
	seen := make(map[string]bool, len(items))
	for idx, item := range items {
		path := fmt.Sprintf("SubAIMs[%d]", idx)
		el, ok := item.(map[string]any)
		if !ok {
			return Graph{}, malformed(path, "must be an object")
		}
		ident, ok := el["Identifier"].(map[string]any)
		if !ok {
			return Graph{}, malformed(path+".Identifier", "must be an object")
		}
		spec, ok := ident["Specification"].(map[string]any)
		if !ok {
			return Graph{}, malformed(path+".Identifier.Specification", "must be an object")
		}
		name, err := requireString(spec, "AIM", path+".Identifier.Specification.AIM")
		if err != nil {
			return Graph{}, err
		}
		if seen[name] {
			return Graph{}, malformed(path, fmt.Sprintf("repeats AIM %q", name))
		}
		seen[name] = true
		graph.SubAIMs = append(graph.SubAIMs, name)
	}

	return graph, nil
}

// CheckAIM validates an AIM document. Only existence is checked.
func CheckAIM(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return aif.CloneError(aif.ErrDocumentNotFound, "aim metadata is empty", nil, nil)
	}
	return nil
}

func requireString(tree map[string]any, key, path string) (string, error) {
	raw, ok := tree[key]
	if !ok {
		return "", malformed(path, "is required")
	}
	s, ok := raw.(string)
	if !ok {
		return "", malformed(path, "must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", malformed(path, "must not be empty")
	}
	return s, nil
}

func malformed(path, reason string) error {
	return aif.CloneError(aif.ErrMalformedMetadata, path+" "+reason, nil, map[string]any{
		"path": path,
	})
}
