package authheader

import (
	"regexp"
	"strings"
)

// Verdict is the outcome of a single sender-authentication protocol check.
type Verdict string

const (
	VerdictPass    Verdict = "pass"
	VerdictFail    Verdict = "fail"
	VerdictUnknown Verdict = "unknown"
)

// AuthResult holds the parsed verdicts from an Authentication-Results header.
// It is derived purely from the input string and never mutated afterwards.
type AuthResult struct {
	SPF   Verdict
	DKIM  Verdict
	DMARC Verdict
	Raw   string
}

// Parse extracts SPF/DKIM/DMARC verdicts from an Authentication-Results
// header value. Each protocol resolves independently; a protocol whose
// pass/fail token is absent resolves to VerdictUnknown. Partial or malformed
// headers never fail, they just contribute neutral information.
func Parse(raw string) AuthResult {
	result := AuthResult{
		SPF:   VerdictUnknown,
		DKIM:  VerdictUnknown,
		DMARC: VerdictUnknown,
		Raw:   raw,
	}
	if raw == "" {
		return result
	}

	low := strings.ToLower(raw)
	result.SPF = tokenVerdict(low, "spf")
	result.DKIM = tokenVerdict(low, "dkim")
	result.DMARC = tokenVerdict(low, "dmarc")
	return result
}

// tokenVerdict resolves a single protocol token. A pass token wins over a
// fail token when both appear, matching how multiple authserv results are
// usually concatenated.
func tokenVerdict(low, protocol string) Verdict {
	switch {
	case strings.Contains(low, protocol+"=pass"):
		return VerdictPass
	case strings.Contains(low, protocol+"=fail"):
		return VerdictFail
	default:
		return VerdictUnknown
	}
}

// addressDomainRe captures the domain part of an address: everything after
// the '@' up to the next whitespace or '>'.
var addressDomainRe = regexp.MustCompile(`@([^\s>]+)`)

// DomainOf extracts the lower-cased domain from an address-bearing string
// such as "Alice <alice@example.com>". Returns "" when no domain resolves.
func DomainOf(address string) string {
	m := addressDomainRe.FindStringSubmatch(address)
	if m == nil {
		return ""
	}
	return strings.ToLower(strings.TrimRight(m[1], ".,;"))
}
