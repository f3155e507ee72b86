// Package lexical scores message text for phishing signals without touching
// the network. The scorer is the one signal that must be safe to use
// standalone: when every remote collaborator is down, the pipeline degrades
// to this score alone.
package lexical

import (
	"regexp"
	"strings"
	"unicode"
)

// Input carries the raw text fields of a message row.
type Input struct {
	Sender  string
	Subject string
	Snippet string
	Row     string
}

// Perturber adds a bounded tie-breaking offset to a final score. The scorer
// itself is deterministic; callers that want jitter inject one.
type Perturber func(max int) int

// Scorer is a pure keyword/URL/brand heuristic scorer producing [0,100].
type Scorer struct {
	perturb Perturber
}

// NewScorer creates a scorer. A nil perturber disables jitter, which keeps
// repeated runs on identical input byte-for-byte reproducible.
func NewScorer(perturb Perturber) *Scorer {
	return &Scorer{perturb: perturb}
}

const (
	criticalPhraseWeight   = 30
	suspicionWordWeight    = 12
	firstURLBonus          = 25
	extraURLBonus          = 10
	suspiciousTLDPenalty   = 18
	rawIPPenalty           = 20
	punycodePenalty        = 20
	overlongURLPenalty     = 8
	overlongURLThreshold   = 100
	brandMismatchPenalty   = 22
	malformedSenderPenalty = 6
	shortNamePenalty       = 12
	exclamationWeight      = 4
	exclamationCap         = 12
	uppercasePenalty       = 18
	uppercaseRatioLimit    = 0.4
	attachmentPenalty      = 10
	maxJitter              = 4
)

// criticalPhrases carry a high fixed weight each; every distinct match
// contributes independently.
var criticalPhrases = []string{
	"verify your account",
	"confirm your password",
	"account has been suspended",
	"unusual sign-in activity",
	"update your billing",
	"your account will be closed",
	"confirm your identity",
	"unauthorized access detected",
}

var suspicionWords = []string{
	"urgent",
	"immediately",
	"verify",
	"suspended",
	"password",
	"account",
	"login",
	"expire",
	"invoice",
	"payment",
	"security alert",
	"action required",
	"click",
	"winner",
	"refund",
}

var attachmentWords = []string{
	"attachment",
	"attached",
	"download the file",
	"open the document",
}

// brandDomains maps a brand token to its canonical domain suffix. A brand
// mentioned in the body while the sender domain carries no trace of it is a
// classic impersonation signature.
var brandDomains = map[string]string{
	"paypal":    "paypal.com",
	"apple":     "apple.com",
	"amazon":    "amazon.com",
	"microsoft": "microsoft.com",
	"google":    "google.com",
	"netflix":   "netflix.com",
	"facebook":  "facebook.com",
	"instagram": "instagram.com",
}

var suspiciousTLDs = []string{".xyz", ".top", ".club", ".ru", ".tk", ".cf", ".ga", ".gq", ".ml"}

var (
	urlRe     = regexp.MustCompile(`https?://[^\s"'<>]+`)
	rawIPRe   = regexp.MustCompile(`(?:\d{1,3}\.){3}\d{1,3}`)
	emailRe   = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	displayRe = regexp.MustCompile(`^([^<]+)<`)
)

// Score sums all applicable contributions and clamps into [0,100]. Matching
// is case-insensitive throughout.
func (s *Scorer) Score(in Input) int {
	body := strings.ToLower(in.Subject + " " + in.Snippet + " " + in.Row)
	senderLow := strings.ToLower(in.Sender)
	score := 0

	for _, phrase := range criticalPhrases {
		if strings.Contains(body, phrase) {
			score += criticalPhraseWeight
		}
	}
	for _, word := range suspicionWords {
		if strings.Contains(body, word) {
			score += suspicionWordWeight
		}
	}

	urls := urlRe.FindAllString(strings.ToLower(in.Snippet+" "+in.Row), -1)
	if len(urls) >= 1 {
		score += firstURLBonus
	}
	if len(urls) >= 2 {
		score += extraURLBonus
	}
	for _, u := range urls {
		score += urlStructureScore(u)
	}

	for brand := range brandDomains {
		if strings.Contains(body, brand) && !strings.Contains(senderLow, brand) {
			score += brandMismatchPenalty
		}
	}

	score += senderShapeScore(in.Sender)
	score += subjectShapeScore(in.Subject)

	for _, word := range attachmentWords {
		if strings.Contains(body, word) {
			score += attachmentPenalty
			break
		}
	}

	if s.perturb != nil {
		score += s.perturb(maxJitter)
	}
	return clamp(score)
}

func urlStructureScore(u string) int {
	score := 0
	for _, tld := range suspiciousTLDs {
		if strings.Contains(u, tld) {
			score += suspiciousTLDPenalty
			break
		}
	}
	if rawIPRe.MatchString(u) {
		score += rawIPPenalty
	}
	if strings.Contains(u, "xn--") {
		score += punycodePenalty
	}
	if len(u) > overlongURLThreshold {
		score += overlongURLPenalty
	}
	return score
}

func senderShapeScore(sender string) int {
	score := 0
	if !emailRe.MatchString(sender) {
		score += malformedSenderPenalty
	}
	if m := displayRe.FindStringSubmatch(sender); m != nil {
		name := strings.TrimSpace(m[1])
		if name != "" && len([]rune(name)) < 3 {
			score += shortNamePenalty
		}
	}
	return score
}

func subjectShapeScore(subject string) int {
	score := 0

	exclaim := strings.Count(subject, "!") * exclamationWeight
	if exclaim > exclamationCap {
		exclaim = exclamationCap
	}
	score += exclaim

	letters, uppers := 0, 0
	for _, r := range subject {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}
	if letters > 0 && float64(uppers)/float64(letters) > uppercaseRatioLimit {
		score += uppercasePenalty
	}
	return score
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
