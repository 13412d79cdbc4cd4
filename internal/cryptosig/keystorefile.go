package cryptosig

import (
	"encoding/base64"
	"encoding/json"
	"os"

	"github.com/google/uuid"
)

// newKeystoreID mints the random key-file identifier go-ethereum's
// keystore.Key embeds in its JSON encoding.
func newKeystoreID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

// writeKeystoreFile persists keystore JSON with owner-only permissions,
// matching the teacher's internal/store.FSStore convention of writing
// secrets at 0600 rather than the default 0644 used for public objects.
func writeKeystoreFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o600)
}

func readKeystoreFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func unmarshalKeystoreMeta(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

func compactBase64FromBytes(compressed []byte) string {
	return base64.StdEncoding.EncodeToString(compressed)
}
