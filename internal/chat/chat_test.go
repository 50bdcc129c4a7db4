package chat

import (
	"strings"
	"testing"

	"github.com/kestrelhq/pipewise/internal/skill"
)

func TestRenderSuccessListsFollowUps(t *testing.T) {
	env := &skill.Envelope{
		OK:   true,
		Text: "4 deals in discovery",
		FollowUps: []skill.FollowUp{
			{Label: "Win rate", Command: "what is our win rate"},
		},
	}

	out := Render(env)
	if !strings.Contains(out, "4 deals in discovery") {
		t.Errorf("output %q lost the narrative text", out)
	}
	// The command must appear verbatim so re-typing it round-trips.
	if !strings.Contains(out, `"what is our win rate"`) {
		t.Errorf("output %q does not carry the follow-up command verbatim", out)
	}
}

func TestRenderFailureWording(t *testing.T) {
	cases := []struct {
		kind skill.ErrorKind
		want string
	}{
		{skill.ErrorUnresolved, "don't have a skill"},
		{skill.ErrorTimeout, "took too long"},
		{skill.ErrorInvalidInput, "missing something"},
		{skill.ErrorSkillNotFound, "don't know a skill"},
		{skill.ErrorHandler, "went wrong"},
	}
	for _, tc := range cases {
		out := Render(&skill.Envelope{OK: false, ErrorKind: tc.kind, Message: "x"})
		if !strings.Contains(out, tc.want) {
			t.Errorf("%s rendered %q, want it to contain %q", tc.kind, out, tc.want)
		}
	}
}
