package services

import (
	"strings"
	"testing"

	types "github.com/yungbote/superconnector-backend/internal/domain"
)

func TestClassifyReply(t *testing.T) {
	cases := []struct {
		text string
		want ReplyIntent
	}{
		{"YES", ReplyConsent},
		{"sure, please introduce us", ReplyConsent},
		{"I accept", ReplyConsent},
		{"no thanks", ReplyDecline},
		{"I'll pass", ReplyDecline},
		{"Decline", ReplyDecline},
		{"yes... actually no", ReplyConsent},
		{"maybe later", ReplyUnknown},
		{"", ReplyUnknown},
		// Substring matching: "know" carries "no".
		{"I don't know", ReplyDecline},
	}
	for _, tc := range cases {
		if got := ClassifyReply(tc.text); got != tc.want {
			t.Fatalf("ClassifyReply(%q)=%v want %v", tc.text, got, tc.want)
		}
	}
}

func TestIntroMessagesMentionBothSides(t *testing.T) {
	from := &types.Profile{Name: "Alice", Role: "Founder", Company: "Acme", Asks: []string{"seed funding"}}
	to := &types.Profile{Name: "Bob", Company: "Seed Fund", Offers: []string{"seed funding"}}

	consent := ConsentRequestMessage(from, to, "Bob backs seed-stage fintech")
	for _, want := range []string{"Alice (Founder at Acme)", "Bob backs seed-stage fintech"} {
		if !strings.Contains(consent, want) {
			t.Fatalf("consent request missing %q:\n%s", want, consent)
		}
	}

	toReq := IntroMessage(from, to, "", true)
	if !strings.Contains(toReq, "Bob (Seed Fund)") {
		t.Fatalf("requester intro should describe candidate:\n%s", toReq)
	}
	toCand := IntroMessage(to, from, "", false)
	if !strings.Contains(toCand, "Alice (Founder at Acme)") {
		t.Fatalf("candidate intro should describe requester:\n%s", toCand)
	}
}

func TestDeliveryChannel(t *testing.T) {
	cases := []struct {
		prefs []string
		want  types.Channel
	}{
		{nil, types.ChannelWhatsApp},
		{[]string{"Email"}, types.ChannelEmail},
		{[]string{"carrier pigeon", "sms"}, types.ChannelSMS},
		{[]string{"linkedin", "email"}, types.ChannelEmail},
		{[]string{"linkedin"}, types.ChannelWhatsApp},
		{[]string{"phone"}, types.ChannelPhone},
	}
	for _, tc := range cases {
		p := &types.Profile{PreferredChannels: tc.prefs}
		if got := deliveryChannel(p, types.ChannelWhatsApp); got != tc.want {
			t.Fatalf("prefs=%v got %s want %s", tc.prefs, got, tc.want)
		}
	}
}
