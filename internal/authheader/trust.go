package authheader

import "strings"

// LedgerLookup provides the learned per-sender trust boost.
type LedgerLookup interface {
	BoostFor(domain string) int
}

// TrustResult is the outcome of the header trust calculation. The flags are
// surfaced alongside the scalar so callers can explain the decision.
type TrustResult struct {
	Trust            int
	EnvelopeMismatch bool
	RelayDetected    bool
}

const (
	baselineTrust   = 50
	spfDelta        = 40
	dkimDelta       = 40
	dmarcDelta      = 20
	mismatchPenalty = 30
	relayBonus      = 20
)

// relayFingerprints are substrings of header names added by well-known mail
// relay providers. Their presence means the message passed through managed
// sending infrastructure, which lowers the odds of raw spoofing even when
// SPF/DKIM results are partially absent.
var relayFingerprints = []string{
	"x-ses-",
	"x-google-smtp",
	"x-gm-message-state",
	"x-mailgun",
	"x-sg-eid",
	"x-sendgrid",
	"x-mandrill",
	"x-postmark",
}

// ComputeTrust combines parsed auth verdicts, envelope/display mismatch
// detection, relay fingerprints and the ledger boost into a trust value in
// [0,100]. The three protocol deltas apply additively as one step; the
// value is clamped back into range after that step and after every later
// one, so a later bonus can never push an earlier penalty out of the
// picture.
func ComputeTrust(auth AuthResult, headers map[string]string, displayFrom, envelopeFrom string, ledger LedgerLookup) TrustResult {
	result := TrustResult{}
	trust := baselineTrust

	trust = clamp(trust +
		verdictDelta(auth.SPF, spfDelta) +
		verdictDelta(auth.DKIM, dkimDelta) +
		verdictDelta(auth.DMARC, dmarcDelta))

	displayDomain := DomainOf(displayFrom)
	envelopeDomain := DomainOf(envelopeFrom)
	if displayDomain != "" && envelopeDomain != "" && displayDomain != envelopeDomain {
		trust = clamp(trust - mismatchPenalty)
		result.EnvelopeMismatch = true
	}

	if hasRelayFingerprint(headers) {
		trust = clamp(trust + relayBonus)
		result.RelayDetected = true
	}

	if ledger != nil {
		senderDomain := displayDomain
		if senderDomain == "" {
			senderDomain = envelopeDomain
		}
		if senderDomain != "" {
			trust = clamp(trust + ledger.BoostFor(senderDomain))
		}
	}

	result.Trust = trust
	return result
}

func verdictDelta(v Verdict, delta int) int {
	switch v {
	case VerdictPass:
		return delta
	case VerdictFail:
		return -delta
	default:
		return 0
	}
}

func hasRelayFingerprint(headers map[string]string) bool {
	for name := range headers {
		low := strings.ToLower(name)
		for _, fp := range relayFingerprints {
			if strings.Contains(low, fp) {
				return true
			}
		}
	}
	return false
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
