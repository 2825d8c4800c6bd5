// Package repo – composite keys
//
// This file encodes key tuples such as ("CHATS", -100123, "SETTINGS") into
// byte-ordered strings. Elements are joined with "/"; strings are
// path-escaped and integers become "#" plus a fixed-width offset-binary
// number, so byte order matches tuple order and prefix scans return children
// in numeric order.
package repo

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Key is a composite key such as ("CHATS", chatID, "SETTINGS"). Elements must
// be strings or integers.
//
// Keys are encoded into a single byte-ordered string:
//   - elements are joined with "/";
//   - strings are path-escaped so they never contain "/" or "#";
//   - integers are written as "#" followed by their offset-binary value
//     zero-padded to 20 digits, so numeric order equals byte order
//     (negative chat ids included).
type Key []any

const (
	keySep    = "/"
	intMarker = "#"
	intWidth  = 20
)

// ErrBadKey is returned for keys with unsupported element types or encodings.
var ErrBadKey = errors.New("bad key")

// K builds a Key from its elements.
func K(parts ...any) Key { return Key(parts) }

// Encode returns the byte-ordered string form of k.
func (k Key) Encode() (string, error) {
	var b strings.Builder
	for i, p := range k {
		if i > 0 {
			b.WriteString(keySep)
		}
		switch v := p.(type) {
		case string:
			if v == "" {
				return "", fmt.Errorf("%w: empty element at %d", ErrBadKey, i)
			}
			b.WriteString(url.PathEscape(v))
		case int:
			b.WriteString(encodeInt(int64(v)))
		case int64:
			b.WriteString(encodeInt(v))
		case int32:
			b.WriteString(encodeInt(int64(v)))
		default:
			return "", fmt.Errorf("%w: unsupported element %T", ErrBadKey, p)
		}
	}
	return b.String(), nil
}

// Prefix returns the encoded range prefix matching every key strictly under k.
// An empty k matches everything.
func (k Key) Prefix() (string, error) {
	if len(k) == 0 {
		return "", nil
	}
	s, err := k.Encode()
	if err != nil {
		return "", err
	}
	return s + keySep, nil
}

// String renders k for logs and dumps, e.g. CHATS/-1001234567890/SETTINGS.
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, p := range k {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, keySep)
}

// DecodeKey parses an encoded key back into its elements. Integer elements
// come back as int64.
func DecodeKey(s string) (Key, error) {
	if s == "" {
		return Key{}, nil
	}
	raw := strings.Split(s, keySep)
	out := make(Key, 0, len(raw))
	for _, r := range raw {
		if strings.HasPrefix(r, intMarker) {
			n, err := decodeInt(r)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
			continue
		}
		v, err := url.PathUnescape(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// encodeInt flips the sign bit and zero-pads to intWidth digits, so that
// lexical order of the result equals numeric order of v.
func encodeInt(v int64) string {
	u := uint64(v) ^ (1 << 63)
	s := strconv.FormatUint(u, 10)
	return intMarker + strings.Repeat("0", intWidth-len(s)) + s
}

// decodeInt reverses encodeInt.
func decodeInt(s string) (int64, error) {
	digits := strings.TrimPrefix(s, intMarker)
	if len(digits) != intWidth {
		return 0, fmt.Errorf("%w: int width %d", ErrBadKey, len(digits))
	}
	u, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadKey, err)
	}
	return int64(u ^ (1 << 63)), nil
}
