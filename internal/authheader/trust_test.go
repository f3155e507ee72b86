package authheader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixedLedger map[string]int

func (l fixedLedger) BoostFor(domain string) int { return l[domain] }

func TestComputeTrust(t *testing.T) {
	tests := []struct {
		name           string
		auth           AuthResult
		headers        map[string]string
		displayFrom    string
		envelopeFrom   string
		ledger         fixedLedger
		expectTrust    int
		expectMismatch bool
		expectRelay    bool
	}{
		{
			name:        "all pass lands at ceiling",
			auth:        AuthResult{SPF: VerdictPass, DKIM: VerdictPass, DMARC: VerdictPass},
			displayFrom: "alice@example.com",
			expectTrust: 100,
		},
		{
			name:        "all unknown stays at baseline",
			auth:        AuthResult{SPF: VerdictUnknown, DKIM: VerdictUnknown, DMARC: VerdictUnknown},
			expectTrust: 50,
		},
		{
			name:           "all fail plus mismatch clamps to zero",
			auth:           AuthResult{SPF: VerdictFail, DKIM: VerdictFail, DMARC: VerdictFail},
			displayFrom:    "ceo@bigcorp.com",
			envelopeFrom:   "bounce@evil.ru",
			expectTrust:    0,
			expectMismatch: true,
		},
		{
			name:        "mixed fail fail pass sums before clamping",
			auth:        AuthResult{SPF: VerdictFail, DKIM: VerdictFail, DMARC: VerdictPass},
			displayFrom: "alice@example.com",
			expectTrust: 0,
		},
		{
			name:        "mixed pass pass fail sums before clamping",
			auth:        AuthResult{SPF: VerdictPass, DKIM: VerdictPass, DMARC: VerdictFail},
			displayFrom: "alice@example.com",
			expectTrust: 100,
		},
		{
			name:           "mismatch penalty applies after protocol deltas",
			auth:           AuthResult{SPF: VerdictPass, DKIM: VerdictPass},
			displayFrom:    "billing@paypal.com",
			envelopeFrom:   "bounce@mailer.example",
			expectTrust:    70,
			expectMismatch: true,
		},
		{
			name:        "relay fingerprint adds bonus",
			auth:        AuthResult{SPF: VerdictUnknown, DKIM: VerdictUnknown},
			headers:     map[string]string{"X-SES-Outgoing": "2024.01.01-1.2.3.4"},
			expectTrust: 70,
			expectRelay: true,
		},
		{
			name:        "ledger boost prefers display domain",
			auth:        AuthResult{},
			displayFrom: "news@trusted.example",
			ledger:      fixedLedger{"trusted.example": 25},
			expectTrust: 75,
		},
		{
			name:         "ledger falls back to envelope domain",
			auth:         AuthResult{},
			envelopeFrom: "bounce@trusted.example",
			ledger:       fixedLedger{"trusted.example": 10},
			expectTrust:  60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ledger LedgerLookup
			if tt.ledger != nil {
				ledger = tt.ledger
			}
			result := ComputeTrust(tt.auth, tt.headers, tt.displayFrom, tt.envelopeFrom, ledger)
			assert.Equal(t, tt.expectTrust, result.Trust)
			assert.Equal(t, tt.expectMismatch, result.EnvelopeMismatch)
			assert.Equal(t, tt.expectRelay, result.RelayDetected)
		})
	}
}

// Trust must stay inside [0,100] for every verdict combination.
func TestComputeTrustClamping(t *testing.T) {
	verdicts := []Verdict{VerdictPass, VerdictFail, VerdictUnknown}
	for _, spf := range verdicts {
		for _, dkim := range verdicts {
			for _, dmarc := range verdicts {
				auth := AuthResult{SPF: spf, DKIM: dkim, DMARC: dmarc}
				result := ComputeTrust(auth, nil, "a@x.com", "b@y.com", fixedLedger{"x.com": 25})
				assert.GreaterOrEqual(t, result.Trust, 0)
				assert.LessOrEqual(t, result.Trust, 100)
			}
		}
	}
}
