package classify

import (
	"regexp"
	"strings"

	"github.com/satyarth42/scamtrap/internal/session"
)

// Category is the closed scam-type label assigned to a message.
type Category string

const (
	CategoryNone          Category = ""
	CategoryLottery       Category = "lottery_scam"
	CategoryBanking       Category = "banking_scam"
	CategoryOTP           Category = "otp_scam"
	CategoryPayment       Category = "payment_scam"
	CategoryAccountThreat Category = "account_threat_scam"
)

// Risk-flag categories accumulated per session. The set only grows.
const (
	FlagUrgency             = "urgency"
	FlagAccountThreat       = "account_threat"
	FlagVerificationRequest = "verification_request"
	FlagFinancialBait       = "financial_bait"
	FlagAuthority           = "authority_impersonation"
)

// Result is the classification verdict for one message. Derived, not stored.
type Result struct {
	IsScam     bool
	Confidence float64
	Category   Category
	Matches    int
}

// Weights are the scoring knobs. None of the default values is
// load-bearing beyond "low bar for engagement".
type Weights struct {
	FlagWeight  float64
	MatchWeight float64
	Threshold   float64
	MinFlags    int
}

func DefaultWeights() Weights {
	return Weights{
		FlagWeight:  0.15,
		MatchWeight: 0.05,
		Threshold:   0.3,
		MinFlags:    2,
	}
}

// scamPatterns are the topical red-flag regexes, evaluated against the
// lower-cased message. Each match contributes the per-match weight.
var scamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`won.*(?:lottery|prize|award|jackpot)`),
	regexp.MustCompile(`(?:urgent|immediate|hurry).*(?:action|response|payment|update)`),
	regexp.MustCompile(`(?:bank|account).*(?:verify|update|confirm|suspended|blocked|frozen)`),
	regexp.MustCompile(`click.*(?:link|here|now|below)`),
	regexp.MustCompile(`(?:congratulations|winner|selected|lucky)`),
	regexp.MustCompile(`limited.*(?:time|offer|period)`),
	regexp.MustCompile(`(?:claim|collect|receive).*(?:prize|reward|money|amount)`),
	regexp.MustCompile(`(?:tax|customs|clearance|processing).*(?:fee|payment|charge)`),
	regexp.MustCompile(`otp.*(?:share|send|provide|confirm)`),
	regexp.MustCompile(`upi.*(?:id|pin|password|details)`),
	regexp.MustCompile(`transfer.*(?:money|amount|funds|payment)`),
	regexp.MustCompile(`refund.*(?:processing|pending|credited|issue)`),
	regexp.MustCompile(`kyc.*(?:update|pending|expired|incomplete)`),
	regexp.MustCompile(`account.*(?:deactivate|suspend|block|close)`),
	regexp.MustCompile(`security.*(?:issue|alert|threat|concern)`),
	regexp.MustCompile(`(?:amazon|flipkart|paytm|google).*(?:winner|prize|cashback)`),
}

// riskFlagKeywords defines each topical manipulation category by a small
// keyword/phrase set. Matching is substring on the lower-cased message.
var riskFlagKeywords = []struct {
	flag     string
	keywords []string
}{
	{FlagUrgency, []string{
		"urgent", "immediate", "hurry", "act now", "within 24 hours",
		"today only", "asap", "last chance", "expires",
	}},
	{FlagAccountThreat, []string{
		"suspended", "blocked", "frozen", "deactivate", "will be closed",
		"legal action",
	}},
	{FlagVerificationRequest, []string{
		"verify", "otp", "kyc", "pin", "password", "cvv", "aadhaar",
		"share your", "send your", "provide your", "confirm your",
	}},
	{FlagFinancialBait, []string{
		"lottery", "prize", "won", "winner", "jackpot", "congratulations",
		"cashback", "reward", "lakh", "crore", "claim",
	}},
	{FlagAuthority, []string{
		"rbi", "income tax", "police", "customs", "cyber cell",
		"bank official", "customer care", "government notice",
	}},
}

// categoryKeywords maps scam types to trigger words, in priority order.
// Ties break by this order, not by match count.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryLottery, []string{"lottery", "prize", "won", "winner", "jackpot"}},
	{CategoryBanking, []string{"bank", "account", "kyc", "verify"}},
	{CategoryOTP, []string{"otp", "code", "pin"}},
	{CategoryPayment, []string{"refund", "payment", "transfer"}},
	{CategoryAccountThreat, []string{"suspended", "blocked", "deactivate"}},
}

type Classifier struct {
	weights Weights
}

// New builds a classifier with the given weights, taken as-is so callers
// can run deliberately degenerate configurations (a zero MatchWeight
// silences the pattern term entirely). Range validation belongs to the
// config layer; only the zero value falls back to defaults.
func New(weights Weights) *Classifier {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Classifier{weights: weights}
}

// Classify scores text against the session's accumulated risk signal,
// recording any newly triggered flag categories on the session. Matching
// runs on a lower-cased copy; entity extraction elsewhere stays on the
// original text since codes and URLs are case-sensitive.
//
// Confidence is non-decreasing across a session for text that keeps
// re-triggering categories: the flag set never shrinks, so the flag term
// can only grow.
func (c *Classifier) Classify(text string, st *session.State) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Category: CategoryNone}
	}

	lower := strings.ToLower(text)

	matches := 0
	for _, p := range scamPatterns {
		if p.MatchString(lower) {
			matches++
		}
	}

	for _, group := range riskFlagKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				st.AddRiskFlag(group.flag)
				break
			}
		}
	}

	confidence := c.weights.FlagWeight*float64(st.FlagCount()) +
		c.weights.MatchWeight*float64(matches)
	if confidence > 1.0 {
		confidence = 1.0
	}

	isScam := confidence >= c.weights.Threshold || st.FlagCount() >= c.weights.MinFlags

	return Result{
		IsScam:     isScam,
		Confidence: confidence,
		Category:   detectCategory(lower),
		Matches:    matches,
	}
}

// Engages reports whether the verdict warrants in-character engagement
// rather than a generic fallback: a scam verdict with confidence at or
// above the engagement threshold.
func (c *Classifier) Engages(r Result) bool {
	return r.IsScam && r.Confidence >= c.weights.Threshold
}

func detectCategory(lower string) Category {
	for _, group := range categoryKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.category
			}
		}
	}
	return CategoryNone
}
