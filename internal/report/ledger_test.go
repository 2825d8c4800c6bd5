package report

import (
	"strings"
	"testing"
)

func TestFingerprint_KnownValue(t *testing.T) {
	// md5("123") = 202cb962ac59075b964b07152d234b70
	if got := Fingerprint(123); got != "34b70" {
		t.Fatalf("Fingerprint(123) = %q", got)
	}
	if len(Fingerprint(-1)) != fingerprintLen {
		t.Fatalf("unexpected fingerprint length")
	}
}

func TestToggle_FirstReportAndRevert(t *testing.T) {
	label, out, n := Toggle(Glyph, "aaaaa")
	if label != "❌❌: aaaaa" || out != Delivered || n != 1 {
		t.Fatalf("first report = %q %v %d", label, out, n)
	}
	if Count(label) != 1 {
		t.Fatalf("Count = %d", Count(label))
	}
	label, out, n = Toggle(label, "aaaaa")
	if label != Glyph || out != Reverted || n != 0 {
		t.Fatalf("revert = %q %v %d", label, out, n)
	}
}

func TestToggle_AppendAndRemoveMiddle(t *testing.T) {
	label := Glyph
	for _, fp := range []string{"aaaaa", "bbbbb"} {
		label, _, _ = Toggle(label, fp)
	}
	if label != "❌❌❌: aaaaa, bbbbb" {
		t.Fatalf("two reports = %q", label)
	}
	label, out, n := Toggle(label, "aaaaa")
	if label != "❌❌: bbbbb" || out != Reverted || n != 1 {
		t.Fatalf("remove first = %q %v %d", label, out, n)
	}
}

func TestToggle_RoundTrip(t *testing.T) {
	starts := []string{
		Glyph,
		"❌❌: aaaaa",
		"❌❌❌: aaaaa, bbbbb",
		"Report",
	}
	for _, l := range starts {
		once, _, _ := Toggle(l, "zzzzz")
		twice, out, _ := Toggle(once, "zzzzz")
		if twice != l || out != Reverted {
			t.Errorf("Toggle(Toggle(%q)) = %q (%v)", l, twice, out)
		}
	}
}

func TestToggle_GlyphCountTracksReporters(t *testing.T) {
	label := Glyph
	for i, fp := range []string{"a1111", "b2222", "c3333", "d4444"} {
		label, _, _ = Toggle(label, fp)
		if got := strings.Count(label, Glyph); got != i+2 {
			t.Fatalf("after %d reports glyphs = %d", i+1, got)
		}
	}
}

func TestThreshold(t *testing.T) {
	const threshold = 3
	label := Glyph
	fps := []string{"a1111", "b2222", "c3333"}
	for i, fp := range fps {
		var n int
		label, _, n = Toggle(label, fp)
		del := ShouldDelete(n, threshold)
		if i < len(fps)-1 && del {
			t.Fatalf("deletion signalled after %d reports", n)
		}
		if i == len(fps)-1 && !del {
			t.Fatalf("no deletion after %d reports", n)
		}
	}
	if ShouldDelete(10, 0) {
		t.Fatalf("zero threshold must never delete")
	}
}

func TestCount_NoReports(t *testing.T) {
	for _, l := range []string{"", Glyph, "plain", "ends with: "} {
		if Count(l) != 0 {
			t.Errorf("Count(%q) = %d", l, Count(l))
		}
	}
}
