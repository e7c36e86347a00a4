package util

import (
	"encoding/json"
	"fmt"
)

// PrintJSON prints v as indented JSON, the output shape behind every
// command's --json flag.
func PrintJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
