// Package linkrisk estimates how dangerous a hyperlink is before anyone
// follows it, using structural URL heuristics only. It is a fast offline
// pre-filter and never consults the network.
package linkrisk

import (
	"regexp"
	"strings"
)

// Assessment is the result of a single URL estimate. HardPattern marks a
// structural red flag that must floor the gate decision at warn regardless
// of the numeric score.
type Assessment struct {
	Score       int
	HardPattern bool
	Reasons     []string
}

const (
	tunnelHostWeight    = 70
	rawIPWeight         = 80
	verifyBrandWeight   = 90
	credentialWeight    = 50
	plaintextWeight     = 30
	brandMismatchWeight = 60
)

// tunnelHosts are free tunnel/ephemeral hosting providers frequently abused
// for short-lived phishing pages.
var tunnelHosts = []string{
	"ngrok.io",
	"ngrok-free.app",
	"trycloudflare.com",
	"serveo.net",
	"localhost.run",
	"loca.lt",
	"pages.dev",
}

var credentialKeywords = []string{
	"login",
	"signin",
	"sign-in",
	"password",
	"reset",
	"credential",
	"verify-account",
}

// brandSuffixes maps a brand token to the canonical domain suffix that a
// legitimate URL for that brand would carry.
var brandSuffixes = map[string]string{
	"paypal":    "paypal.com",
	"apple":     "apple.com",
	"amazon":    "amazon.com",
	"microsoft": "microsoft.com",
	"google":    "google.com",
	"netflix":   "netflix.com",
	"facebook":  "facebook.com",
}

var rawIPRe = regexp.MustCompile(`https?://(?:\d{1,3}\.){3}\d{1,3}`)

// Estimate scores a URL string additively over independent structural
// checks, capped at 100. There is no floor beyond 0.
func Estimate(rawURL string) Assessment {
	a := Assessment{}
	if rawURL == "" {
		return a
	}
	u := strings.ToLower(rawURL)

	for _, host := range tunnelHosts {
		if strings.Contains(u, host) {
			a.add(tunnelHostWeight, "free tunnel host "+host)
			break
		}
	}

	if rawIPRe.MatchString(u) {
		a.add(rawIPWeight, "raw IP literal")
		a.HardPattern = true
	}

	hasVerify := strings.Contains(u, "verify")
	for brand, suffix := range brandSuffixes {
		if !strings.Contains(u, brand) {
			continue
		}
		if hasVerify {
			a.add(verifyBrandWeight, "verify flow impersonating "+brand)
			a.HardPattern = true
			hasVerify = false // charge the combination once
		}
		if !strings.Contains(u, suffix) {
			a.add(brandMismatchWeight, brand+" token without "+suffix)
		}
	}

	for _, kw := range credentialKeywords {
		if strings.Contains(u, kw) {
			a.add(credentialWeight, "credential keyword "+kw)
			break
		}
	}

	if strings.HasPrefix(u, "http://") {
		a.add(plaintextWeight, "plaintext http scheme")
	}

	if a.Score > 100 {
		a.Score = 100
	}
	return a
}

func (a *Assessment) add(weight int, reason string) {
	a.Score += weight
	a.Reasons = append(a.Reasons, reason)
}
