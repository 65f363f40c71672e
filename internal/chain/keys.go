package chain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Storage keys on the node are "0x" + hex(module) + hex(item), with map
// entries appending the hex-encoded map key. The node treats keys as opaque
// byte strings; only prefix matching matters for enumeration.

// StorageKey returns the key of a plain storage value.
func StorageKey(module, item string) string {
	return "0x" + hex.EncodeToString([]byte(module)) + hex.EncodeToString([]byte(item))
}

// EntryKey returns the key of one entry in a storage map. The entry argument
// must already be hex encoded (e.g. a course dna).
func EntryKey(module, mapName, entryHex string) string {
	return StorageKey(module, mapName) + strings.ToLower(entryHex)
}

// EntryArg extracts the hex-encoded map key back out of a full storage key.
func EntryArg(module, mapName, key string) (string, error) {
	prefix := StorageKey(module, mapName)
	if !strings.HasPrefix(key, prefix) {
		return "", fmt.Errorf("key %s does not belong to %s/%s", key, module, mapName)
	}
	return strings.TrimPrefix(key, prefix), nil
}
