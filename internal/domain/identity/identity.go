// Package identity derives stable port identity keys from raw USB topology
// strings.
//
// The operating system reports a hub chip through two device nodes, one per
// negotiated speed class (2.0 vs 3.0). Both nodes share the same parent-chain
// segment up to the chip prefix, so a key built from that prefix plus the
// port index survives speed-induced topology changes.
package identity

import (
	"regexp"
	"strconv"
	"strings"
)

// Key uniquely identifies one physical port slot on one hub chip instance,
// formatted as "<chipPrefix>|<portIndex>".
type Key string

// KeyPattern validates the serialized key form: digits '&' hex digits '|'
// digits, case-insensitive on the hex portion. Shared with the store's
// document validator.
var KeyPattern = regexp.MustCompile(`^\d+&[0-9A-Fa-f]+\|\d+$`)

var (
	chipPrefixRe = regexp.MustCompile(`\\(\d+&[0-9A-Fa-f]+)&`)
	portIndexRe  = regexp.MustCompile(`Port_#(\d+)`)
)

// String returns the key's serialized form.
func (k Key) String() string { return string(k) }

// Chip returns the chip-prefix component of the key.
func (k Key) Chip() string {
	if i := strings.IndexByte(string(k), '|'); i >= 0 {
		return string(k)[:i]
	}
	return string(k)
}

// Port returns the port-index component of the key.
func (k Key) Port() string {
	if i := strings.IndexByte(string(k), '|'); i >= 0 {
		return string(k)[i+1:]
	}
	return ""
}

// ExtractChipPrefix scans a parent-chain identifier for the chip prefix:
// a backslash, then digits '&' hex digits, followed by another '&'. The
// captured segment is returned uppercased. Missing input or no match
// reports ok=false, never an error.
func ExtractChipPrefix(parent string) (string, bool) {
	if parent == "" {
		return "", false
	}
	m := chipPrefixRe.FindStringSubmatch(parent)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

// ExtractPortIndex scans a location string for "Port_#" followed by digits
// and returns the digits with leading zeros stripped.
func ExtractPortIndex(location string) (string, bool) {
	if location == "" {
		return "", false
	}
	m := portIndexRe.FindStringSubmatch(location)
	if m == nil {
		return "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	return strconv.Itoa(n), true
}

// NormalizeLocation derives the identity key for an observation. Both
// sub-extractions must succeed; otherwise ok is false and no key is
// produced. The function is pure: identical raw strings always yield an
// identical key.
func NormalizeLocation(location, parent string) (Key, bool) {
	chip, ok := ExtractChipPrefix(parent)
	if !ok {
		return "", false
	}
	port, ok := ExtractPortIndex(location)
	if !ok {
		return "", false
	}
	return Key(chip + "|" + port), true
}
