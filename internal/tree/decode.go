package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"phylo/internal/models"
)

// ErrEmptyTree is returned when the input carries no root node.
var ErrEmptyTree = errors.New("tree data is empty")

// DecodeJSON parses the wire format `{name, branch_length?, children?}`.
func DecodeJSON(r io.Reader) (*Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseJSON(data)
}

// ParseJSON parses a JSON tree document.
func ParseJSON(data []byte) (*Node, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, ErrEmptyTree
	}
	if data[0] != '{' {
		return nil, fmt.Errorf("tree data must be a JSON object")
	}
	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode tree json: %w", err)
	}
	if err := Validate(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// ParseYAML parses a YAML tree document with the same shape as the JSON one.
func ParseYAML(data []byte) (*Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyTree
	}
	var root Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode tree yaml: %w", err)
	}
	if err := Validate(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// LoadFile reads a local tree file. YAML is selected by extension,
// everything else is treated as JSON.
func LoadFile(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// Validate rejects nil children and nesting beyond models.TreeMaxDepth.
func Validate(root *Node) error {
	if root == nil {
		return ErrEmptyTree
	}
	return validate(root, 0)
}

func validate(n *Node, depth int) error {
	if depth > models.TreeMaxDepth {
		return fmt.Errorf("tree nesting exceeds %d levels", models.TreeMaxDepth)
	}
	for i, child := range n.Children {
		if child == nil {
			return fmt.Errorf("node %q has a null child at index %d", n.Name, i)
		}
		if err := validate(child, depth+1); err != nil {
			return err
		}
	}
	return nil
}
