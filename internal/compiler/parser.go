package compiler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Parser is responsible for converting raw bytes into a Node.
type Parser struct {
	validate *validator.Validate
}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("flowkind", func(fl validator.FieldLevel) bool {
		return domain.Kind(fl.Field().String()).Valid()
	})
	return &Parser{validate: v}
}

// Parse decodes a node record. Content starting with '{' is read as JSON,
// anything else as YAML.
func (p *Parser) Parse(data []byte) (*domain.Node, error) {
	var node domain.Node
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &node); err != nil {
			return nil, fmt.Errorf("failed to parse node: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(trimmed, &node); err != nil {
			return nil, fmt.Errorf("failed to parse node: %w", err)
		}
	}

	if err := p.validate.Struct(&node); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Tag() == "flowkind" {
					return nil, fmt.Errorf("node '%s': %w: %s", node.ID, domain.ErrUnknownKind, node.Kind)
				}
			}
		}
		return nil, fmt.Errorf("invalid node '%s': %w", node.ID, err)
	}
	return &node, nil
}
