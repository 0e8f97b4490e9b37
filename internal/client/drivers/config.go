package drivers

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// DecodeConfig copies the generic config map into out and validates it
// against its `validate` struct tags.
func DecodeConfig(cfg map[string]any, out any) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("invalid driver config: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid driver config: %w", err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("invalid driver config: %w", err)
	}
	return nil
}

// EncodeConfig is the inverse of DecodeConfig, used to report the effective
// config from Init.
func EncodeConfig(in any) map[string]any {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
