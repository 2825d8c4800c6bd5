package bot

import (
	"errors"
	"testing"
)

func TestParseChatID(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"123456789012", -123456789012, true},
		{"-1001234567890", -1001234567890, true},
		{"-12345678901.", -12345678901, true},
		{"  123456789012\n", -123456789012, true},
		{"12345", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"123456789012..", 0, false},
		{"--123456789012", 0, false},
		{"+123456789012", 0, false},
		{"12345678901234", 0, false},
		{"1234 56789012", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseChatID(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Errorf("ParseChatID(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrBadChatID) {
			t.Errorf("ParseChatID(%q) = %d, %v; want ErrBadChatID", tc.in, got, err)
		}
	}
}

func TestParseStartPayload(t *testing.T) {
	d, r, err := ParseStartPayload("-1001234567890---55")
	if err != nil || d != -1001234567890 || r != 55 {
		t.Fatalf("got %d %d %v", d, r, err)
	}
	d, r, err = ParseStartPayload("1001234567890---x")
	if err != nil || d != -1001234567890 || r != 0 {
		t.Fatalf("bad reply id should be ignored: %d %d %v", d, r, err)
	}
	if _, _, err := ParseStartPayload("oops---5"); !errors.Is(err, ErrBadChatID) {
		t.Fatalf("want ErrBadChatID, got %v", err)
	}
}

func TestLinks(t *testing.T) {
	if got := StartLink("b", -100123, 0); got != "https://t.me/b?start=-100123" {
		t.Fatalf("StartLink = %q", got)
	}
	if got := StartLink("b", -100123, 9); got != "https://t.me/b?start=-100123---9" {
		t.Fatalf("StartLink reply = %q", got)
	}
	if got := MessageLink(-1001234567890, 7); got != "https://t.me/c/1234567890/7" {
		t.Fatalf("MessageLink = %q", got)
	}
}
