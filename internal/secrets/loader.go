package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Load reads a secret from the given file and returns it trimmed. API keys
// are configured as file paths so the keys themselves stay out of config
// files and process environments. The name is only used in error messages.
func Load(name, file string) (string, error) {
	if name = strings.TrimSpace(name); name == "" {
		name = "secret"
	}

	if file = strings.TrimSpace(file); file == "" {
		return "", fmt.Errorf("%s file is not configured", name)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
	}

	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("%s file %q is empty", name, file)
	}

	return secret, nil
}
