// Package report encodes the set of users who reported a relayed message
// inside the visible label of its report button.
//
// Label grammar:
//
//	<glyph>                                  no reports
//	<glyph>{n}<base>: <fp1>, <fp2>, ..., <fpn>
//
// where <base> is the label before the first report (normally the bare
// glyph) and each fp is a reporter fingerprint. The button text is the only
// copy of the ledger.
package report

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
)

const (
	// Glyph marks the report button and is prefixed once per reporter.
	Glyph = "❌"
	// Separator divides the glyph prefix from the fingerprint list.
	Separator = ": "
	// ListSeparator joins fingerprints.
	ListSeparator = ", "
	// CallbackData is the payload carried by the report button.
	CallbackData = "callbackReport"

	fingerprintLen = 5
)

// Outcome is what the reporter is told after a toggle.
type Outcome int

const (
	Delivered Outcome = iota
	Reverted
)

// String returns the outcome name used in logs and metric labels.
func (o Outcome) String() string {
	if o == Reverted {
		return "reverted"
	}
	return "delivered"
}

// Fingerprint returns the last five hex characters of md5(decimal userID).
// Collisions are possible and accepted; this is a dedup tag, not a secret.
func Fingerprint(userID int64) string {
	sum := md5.Sum([]byte(strconv.FormatInt(userID, 10)))
	h := hex.EncodeToString(sum[:])
	return h[len(h)-fingerprintLen:]
}

// Count returns the number of reporters recorded in label.
func Count(label string) int {
	_, fps, ok := split(label)
	if !ok {
		return 0
	}
	return len(fps)
}

// Toggle adds fp to label's ledger, or removes it if already present. It
// returns the new label, the outcome, and the number of reporters afterwards.
func Toggle(label, fp string) (string, Outcome, int) {
	head, fps, ok := split(label)
	if !ok {
		return Glyph + label + Separator + fp, Delivered, 1
	}

	for i, have := range fps {
		if have != fp {
			continue
		}
		rest := append(fps[:i:i], fps[i+1:]...)
		base := strings.TrimPrefix(head, Glyph)
		if len(rest) == 0 {
			return base, Reverted, 0
		}
		return base + Separator + strings.Join(rest, ListSeparator), Reverted, len(rest)
	}

	fps = append(fps, fp)
	return Glyph + head + Separator + strings.Join(fps, ListSeparator), Delivered, len(fps)
}

// ShouldDelete reports whether count reporters reach threshold.
func ShouldDelete(count, threshold int) bool {
	return threshold > 0 && count >= threshold
}

// split separates label into its glyph prefix and fingerprint list. ok is
// false when the label carries no reports.
func split(label string) (head string, fps []string, ok bool) {
	i := strings.LastIndex(label, Separator)
	if i < 0 {
		return label, nil, false
	}
	tail := label[i+len(Separator):]
	if tail == "" {
		return label, nil, false
	}
	return label[:i], strings.Split(tail, ListSeparator), true
}
