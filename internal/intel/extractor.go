package intel

import (
	"regexp"
	"sort"
	"strings"
)

// Intelligence holds the structured identifiers harvested from a
// conversation transcript. Every field is a deduplicated, sorted set;
// absence of matches yields an empty slice, never nil semantics callers
// need to care about.
type Intelligence struct {
	BankAccounts []string `json:"bank_accounts"`
	UPIIDs       []string `json:"upi_ids"`
	PhoneNumbers []string `json:"phone_numbers"`
	URLs         []string `json:"urls"`
	Emails       []string `json:"emails"`
	IFSCCodes    []string `json:"ifsc_codes"`
	Amounts      []string `json:"amounts"`
}

// Empty reports whether no identifier of any category was extracted.
func (i Intelligence) Empty() bool {
	return len(i.BankAccounts) == 0 &&
		len(i.UPIIDs) == 0 &&
		len(i.PhoneNumbers) == 0 &&
		len(i.URLs) == 0 &&
		len(i.Emails) == 0 &&
		len(i.IFSCCodes) == 0 &&
		len(i.Amounts) == 0
}

var (
	// Account-like digit runs: 9-18 contiguous digits, or digits grouped
	// by whitespace in a 4/4/4-10 shape as they appear in SMS text.
	accountPattern        = regexp.MustCompile(`\b\d{9,18}\b`)
	groupedAccountPattern = regexp.MustCompile(`\b\d{4}\s+\d{4}\s+\d{4,10}\b`)

	handlePattern = regexp.MustCompile(`\b[\w.\-]+@[\w.\-]+\b`)
	emailPattern  = regexp.MustCompile(`\b[\w.%+\-]+@[\w.\-]+\.[a-zA-Z]{2,}\b`)

	// Indian mobile numbers: 10 digits with leading 6-9, optionally carrying
	// a +91 country prefix. The contiguous 91-prefixed form needs its own
	// pattern: \b never fires between a digit run and the bare number, and
	// never fires before the + sign either, so "+919876543210" and
	// "919876543210" both fall through the first pattern.
	phonePattern         = regexp.MustCompile(`\b(?:\+91[\-\s]?)?[6-9]\d{9}\b`)
	prefixedPhonePattern = regexp.MustCompile(`\b91[6-9]\d{9}\b`)

	urlPattern = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)

	ifscPattern = regexp.MustCompile(`\b[A-Z]{4}0[A-Z0-9]{6}\b`)

	amountPattern = regexp.MustCompile(`(?:Rs\.?|INR|₹)\s*(\d+(?:,\d+)*(?:\.\d+)?)`)
)

// upiProviders is the closed list of payment-provider suffixes recognised in
// handles. Matching is case-insensitive substring, as these appear both bare
// (pay@paytm) and composed (victim@okhdfcbank).
var upiProviders = []string{
	"paytm", "phonepe", "gpay", "googlepay", "upi", "ybl",
	"okhdfcbank", "okicici", "okaxis", "oksbi", "ibl", "axl",
}

// Extract pulls all recognised identifier categories out of text. It is
// stateless and deterministic; callers re-run it over the full accumulated
// transcript every time, since later turns may restate or correct details.
func Extract(text string) Intelligence {
	var out Intelligence
	if strings.TrimSpace(text) == "" {
		return out
	}

	accounts := accountPattern.FindAllString(text, -1)
	accounts = append(accounts, groupedAccountPattern.FindAllString(text, -1)...)
	out.BankAccounts = dedupe(accounts)

	var upiIDs, emails []string
	for _, handle := range handlePattern.FindAllString(text, -1) {
		if isUPIHandle(handle) {
			upiIDs = append(upiIDs, handle)
			continue
		}
		if emailPattern.MatchString(handle) {
			emails = append(emails, handle)
		}
	}
	out.UPIIDs = dedupe(upiIDs)
	out.Emails = dedupe(emails)

	phones := phonePattern.FindAllString(text, -1)
	phones = append(phones, prefixedPhonePattern.FindAllString(text, -1)...)
	out.PhoneNumbers = dedupe(phones)

	out.URLs = dedupe(urlPattern.FindAllString(text, -1))
	out.IFSCCodes = dedupe(ifscPattern.FindAllString(text, -1))

	var amounts []string
	for _, m := range amountPattern.FindAllStringSubmatch(text, -1) {
		amounts = append(amounts, m[1])
	}
	out.Amounts = dedupe(amounts)

	return out
}

func isUPIHandle(handle string) bool {
	at := strings.LastIndex(handle, "@")
	if at < 1 {
		return false
	}
	domain := strings.ToLower(handle[at+1:])
	for _, provider := range upiProviders {
		if strings.Contains(domain, provider) {
			return true
		}
	}
	return false
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
