package authheader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected AuthResult
	}{
		{
			name: "spf pass dkim fail dmarc absent",
			raw:  "spf=pass dkim=fail",
			expected: AuthResult{
				SPF: VerdictPass, DKIM: VerdictFail, DMARC: VerdictUnknown,
				Raw: "spf=pass dkim=fail",
			},
		},
		{
			name: "full gmail-style header",
			raw:  "mx.google.com; dkim=pass header.i=@example.com; spf=pass smtp.mailfrom=example.com; dmarc=pass (p=REJECT)",
			expected: AuthResult{
				SPF: VerdictPass, DKIM: VerdictPass, DMARC: VerdictPass,
				Raw: "mx.google.com; dkim=pass header.i=@example.com; spf=pass smtp.mailfrom=example.com; dmarc=pass (p=REJECT)",
			},
		},
		{
			name: "mixed case tokens",
			raw:  "SPF=FAIL DKIM=Pass DMARC=fail",
			expected: AuthResult{
				SPF: VerdictFail, DKIM: VerdictPass, DMARC: VerdictFail,
				Raw: "SPF=FAIL DKIM=Pass DMARC=fail",
			},
		},
		{
			name: "empty input yields all unknown",
			raw:  "",
			expected: AuthResult{
				SPF: VerdictUnknown, DKIM: VerdictUnknown, DMARC: VerdictUnknown,
			},
		},
		{
			name: "garbage never fails",
			raw:  ";;;===@@@",
			expected: AuthResult{
				SPF: VerdictUnknown, DKIM: VerdictUnknown, DMARC: VerdictUnknown,
				Raw: ";;;===@@@",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Parse(tt.raw))
		})
	}
}

func TestDomainOf(t *testing.T) {
	tests := []struct {
		address  string
		expected string
	}{
		{"Alice <alice@example.com>", "example.com"},
		{"bob@Sub.Example.ORG", "sub.example.org"},
		{"no address here", ""},
		{"", ""},
		{"weird@domain.com extra text", "domain.com"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DomainOf(tt.address), "address %q", tt.address)
	}
}
