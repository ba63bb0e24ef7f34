package config

import (
	"encoding/json"
	"fmt"

	"github.com/ThatsOurJake/simhorse-racing/internal/sim"
)

// Export serializes the current roster and seed as a canonical race file.
// The output always passes Validate, so export followed by import is
// lossless.
func Export(seed int64, horses []sim.Horse) ([]byte, error) {
	file := FromRoster(seed, horses)
	if issues := CheckFile(file); len(issues) > 0 {
		// The live roster should always be exportable; reaching this means
		// something upstream skipped validation or clamping.
		return nil, fmt.Errorf("config: live roster fails its own schema: %s", issues[0])
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("config: failed to marshal race file: %w", err)
	}
	return append(data, '\n'), nil
}
