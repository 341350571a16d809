package utils

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/vitwit/openpay/flow"
	"github.com/vitwit/openpay/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ParseCharge parses and validates a charge payload from JSON.
func ParseCharge(data []byte) (*types.Charge, error) {
	var charge types.Charge
	if err := json.Unmarshal(data, &charge); err != nil {
		return nil, types.NewValidationError("failed to parse charge: %v", err)
	}
	if err := validate.Struct(&charge); err != nil {
		return nil, types.NewValidationError("invalid charge: %v", err)
	}
	return &charge, nil
}

// ParseIdentifyInput parses and validates the payload that starts a flow.
func ParseIdentifyInput(data []byte) (*flow.IdentifyInput, error) {
	var in flow.IdentifyInput
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, types.NewValidationError("failed to parse request: %v", err)
	}
	if err := validate.Struct(&in); err != nil {
		return nil, types.NewValidationError("invalid request: %v", err)
	}
	return &in, nil
}

// SerializeContext converts a flow context to JSON for the calling layer to
// persist between stages.
func SerializeContext(c *flow.Context) ([]byte, error) {
	return c.Encode()
}

// SerializeAmount converts an amount to JSON.
func SerializeAmount(a *types.Amount) ([]byte, error) {
	return json.Marshal(a)
}
