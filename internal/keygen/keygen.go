// Package keygen produces human-typable license keys.
package keygen

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	DefaultPrefix = "IRON"
	alphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	groups        = 3
	groupSize     = 4
)

// Generate returns a key shaped PREFIX-XXXX-XXXX-XXXX.
func Generate(prefix string) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultPrefix
	}

	raw, err := gonanoid.Generate(alphabet, groups*groupSize)
	if err != nil {
		return "", fmt.Errorf("keygen: %w", err)
	}

	parts := []string{prefix}
	for i := 0; i < groups; i++ {
		parts = append(parts, raw[i*groupSize:(i+1)*groupSize])
	}
	return strings.Join(parts, "-"), nil
}
