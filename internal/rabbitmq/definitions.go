package rabbitmq

import (
	"fmt"

	toml "github.com/pelletier/go-toml"
)

// ParseDefinition decodes a TOML topology document of [[queues]],
// [[exchanges]] and [[bindings]] tables.
func ParseDefinition(document []byte) (*Definition, error) {
	definition := Definition{}
	if err := toml.Unmarshal(document, &definition); err != nil {
		return nil, fmt.Errorf("parse definitions: %w", err)
	}

	for _, e := range definition.Exchanges {
		if err := e.validate(); err != nil {
			return nil, err
		}
	}
	for i, b := range definition.Bindings {
		switch b.Type {
		case "":
			definition.Bindings[i].Type = queueType
		case queueType, exchangeType:
		default:
			return nil, fmt.Errorf("binding %s -> %s: unknown destination type %q", b.Source, b.Destination, b.Type)
		}
	}
	return &definition, nil
}
