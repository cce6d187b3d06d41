package dedup

import (
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

// HashValue returns the BLAKE3 hex digest of a value's canonical
// serialization. Equal values always hash equal regardless of map key order.
func HashValue(v any) (string, error) {
	canon, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256([]byte(canon))
	return hex.EncodeToString(sum[:]), nil
}

// CallHash fingerprints a tool call {name, arguments} so that semantically
// identical calls collide regardless of argument key order.
func CallHash(call map[string]any) (string, error) {
	name, ok := call["name"]
	if !ok {
		return "", fmt.Errorf("tool call has no name")
	}
	args, ok := call["arguments"]
	if !ok {
		return "", fmt.Errorf("tool call has no arguments")
	}
	canon, err := CanonicalJSON(args)
	if err != nil {
		return "", err
	}
	combined := fmt.Sprintf("tool=%v;args=%s", name, canon)
	sum := blake3.Sum256([]byte(combined))
	return hex.EncodeToString(sum[:]), nil
}
