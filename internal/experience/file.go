package experience

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LoadOperationsFile reads a batch of operations from a YAML or JSON file.
// The file holds either a list of operations or a mapping with an "operations" list.
func LoadOperationsFile(logger *zap.Logger, path string) ([]ProposedOperation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading operations file: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing operations file %q: %w", path, err)
	}

	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.MappingNode {
		var wrapped struct {
			Operations []map[string]any `yaml:"operations"`
		}
		if err := root.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("decoding operations file %q: %w", path, err)
		}
		return DecodeOperations(logger, wrapped.Operations)
	}

	var items []map[string]any
	if err := root.Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding operations file %q: %w", path, err)
	}

	return DecodeOperations(logger, items)
}
