package share

import (
	"strings"
	"testing"

	"github.com/volunteerapp/program-server/internal/model"
)

func TestNormalizeCode(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ab-12 c3", "AB12C3"},
		{"AB12C3", "AB12C3"},
		{"abc123xyz", "ABC123"}, // truncated to six valid characters
		{"a b c", "ABC"},
		{"!!!", ""},
		{"", ""},
		{"ab_12-c3-extra", "AB12C3"},
	}
	for _, c := range cases {
		if got := NormalizeCode(c.in); got != c.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRemaining(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 6},
		{"a", 5},
		{"ab-1", 3},
		{"ab12c", 1},
		{"ab12c3", 0},
		{"ab12c3ff", 0}, // overlong input still normalizes to a full code
	}
	for _, c := range cases {
		if got := Remaining(c.in); got != c.want {
			t.Errorf("Remaining(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestJoinURLByEnvironment(t *testing.T) {
	dev := NewResolver(nil, "dev", "https://dev.example.com/", "volunteerapp")
	if got := dev.JoinURL("tok-123"); got != "https://dev.example.com/program/tok-123" {
		t.Errorf("dev JoinURL = %q", got)
	}
	prod := NewResolver(nil, "prod", "https://dev.example.com", "volunteerapp")
	if got := prod.JoinURL("tok-123"); got != "volunteerapp://program/tok-123" {
		t.Errorf("prod JoinURL = %q", got)
	}
}

func TestShareMessageCarriesCodeAndLink(t *testing.T) {
	r := NewResolver(nil, "prod", "", "volunteerapp")
	link := &model.ShareLink{
		ProgramID:  1,
		ShareCode:  "AB12C3",
		ShareToken: "tok-123",
		URL:        r.JoinURL("tok-123"),
	}
	msg := r.ShareMessage(link, "Sunday Service")
	for _, want := range []string{"Sunday Service", "AB12C3", "volunteerapp://program/tok-123"} {
		if !strings.Contains(msg, want) {
			t.Errorf("share message missing %q:\n%s", want, msg)
		}
	}
}
