package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreBenignMessageStaysLow(t *testing.T) {
	s := NewScorer(nil)
	score := s.Score(Input{
		Sender:  "Alice <alice@example.com>",
		Subject: "Meeting notes",
		Snippet: "see attached",
	})
	assert.Less(t, score, 20)
}

func TestScoreCredentialPhishScoresHigh(t *testing.T) {
	s := NewScorer(nil)
	score := s.Score(Input{
		Sender:  "Security <alerts@secure-mail.xyz>",
		Subject: "URGENT: Verify your account immediately",
		Snippet: "http://192.168.1.5/login",
	})
	assert.Greater(t, score, 70)
}

func TestScoreIsDeterministicWithoutJitter(t *testing.T) {
	s := NewScorer(nil)
	in := Input{
		Sender:  "PayPal Support <help@pay-pal-billing.ru>",
		Subject: "Action required!!",
		Snippet: "Your paypal payment failed, verify your account at http://xn--paypa1-secure.ru/reset",
	}
	assert.Equal(t, s.Score(in), s.Score(in))
}

func TestScoreJitterIsBoundedAndInjected(t *testing.T) {
	var seen int
	s := NewScorer(func(max int) int {
		seen = max
		return max
	})
	base := NewScorer(nil)

	in := Input{Sender: "Bob <bob@ok.org>", Subject: "lunch", Snippet: "noon?"}
	withJitter := s.Score(in)
	without := base.Score(in)

	assert.Equal(t, 4, seen)
	assert.Equal(t, without+4, withJitter)
}

func TestScoreComponents(t *testing.T) {
	s := NewScorer(nil)

	tests := []struct {
		name string
		in   Input
		min  int
	}{
		{
			name: "brand in body missing from sender",
			in:   Input{Sender: "helpdesk@randomhost.net", Snippet: "your netflix subscription expired"},
			min:  brandMismatchPenalty,
		},
		{
			name: "multiple urls stack bonuses",
			in:   Input{Sender: "x@y.com", Snippet: "http://a.example/one http://b.example/two"},
			min:  firstURLBonus + extraURLBonus,
		},
		{
			name: "shouty subject",
			in:   Input{Sender: "x@y.com", Subject: "FINAL WARNING FOR YOU"},
			min:  uppercasePenalty,
		},
		{
			name: "short display name",
			in:   Input{Sender: "Q <q@q.co>", Subject: "hi"},
			min:  shortNamePenalty,
		},
		{
			name: "sender without an address",
			in:   Input{Sender: "totally legit support", Subject: "hello"},
			min:  malformedSenderPenalty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.GreaterOrEqual(t, s.Score(tt.in), tt.min)
		})
	}
}

func TestScoreClampsAtHundred(t *testing.T) {
	s := NewScorer(nil)
	score := s.Score(Input{
		Sender:  "!!",
		Subject: "URGENT!!!! VERIFY YOUR ACCOUNT IMMEDIATELY OR YOUR ACCOUNT WILL BE CLOSED",
		Snippet: "paypal apple amazon verify password http://192.168.0.1/xn--login.ru http://198.51.100.7/reset-password-immediately-verify-your-paypal-account-details-or-account-suspended.xyz/session",
	})
	assert.Equal(t, 100, score)
}
