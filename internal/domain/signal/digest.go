package signal

import (
	"crypto/md5" //nolint:gosec // one-way token format fixed by the signal service
	"encoding/hex"
	"fmt"
	"strconv"
)

// Digest returns the hex MD5 of the value's canonical string form
// concatenated with salt. Deterministic across restarts; an empty salt is
// the unsalted form.
func Digest(value any, salt string) string {
	sum := md5.Sum([]byte(Canonical(value) + salt)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// Canonical renders a scalar into the string form used for digests and raw
// comparisons. Outbound tags and inbound term comparisons both go through
// it, so the two sides stay comparable.
func Canonical(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []byte:
		return string(v)
	case interface{ String() string }:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
