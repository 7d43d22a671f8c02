package config

import (
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
)

// Executor overrides are passed through several argv boundaries before they
// reach the executor, so they are base64 encoded and the padding '=' is
// escaped (it would otherwise be eaten by flag parsing).
const equalsEscape = "&equals;"

// EncodeOverrides makes an opaque override string argv-safe.
func EncodeOverrides(overrides string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(overrides))
	return strings.Replace(encoded, "=", equalsEscape, -1)
}

// DecodeOverrides reverses EncodeOverrides.
func DecodeOverrides(encoded string) (string, error) {
	unescaped := strings.Replace(encoded, equalsEscape, "=", -1)
	decoded, err := base64.StdEncoding.DecodeString(unescaped)
	if err != nil {
		return "", errors.Wrap(err, "decoding executor overrides")
	}
	return string(decoded), nil
}
