package intel

import (
	"testing"
)

func TestExtractPaymentDetails(t *testing.T) {
	text := "Sir send Rs 500 to account 987654321012, IFSC HDFC0001234, or UPI pay@paytm, call 9988776655"
	got := Extract(text)

	if len(got.BankAccounts) == 0 {
		t.Fatalf("BankAccounts is empty, want at least one entry")
	}
	if !contains(got.BankAccounts, "987654321012") {
		t.Fatalf("BankAccounts = %v, want to contain %q", got.BankAccounts, "987654321012")
	}
	if !contains(got.UPIIDs, "pay@paytm") {
		t.Fatalf("UPIIDs = %v, want to contain %q", got.UPIIDs, "pay@paytm")
	}
	if !contains(got.PhoneNumbers, "9988776655") {
		t.Fatalf("PhoneNumbers = %v, want to contain %q", got.PhoneNumbers, "9988776655")
	}
	if len(got.IFSCCodes) != 1 || got.IFSCCodes[0] != "HDFC0001234" {
		t.Fatalf("IFSCCodes = %v, want [HDFC0001234]", got.IFSCCodes)
	}
	if !contains(got.Amounts, "500") {
		t.Fatalf("Amounts = %v, want to contain %q", got.Amounts, "500")
	}
}

func TestExtractPhoneNumbers(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"call me at 9876543210 today", "9876543210"},
		{"number is 6123456789", "6123456789"},
		{"urgent: 7000000001 now", "7000000001"},
	}
	for _, tc := range cases {
		got := Extract(tc.text)
		if !contains(got.PhoneNumbers, tc.want) {
			t.Fatalf("Extract(%q).PhoneNumbers = %v, want to contain %q", tc.text, got.PhoneNumbers, tc.want)
		}
	}

	// Leading digits below 6 are landline/garbage, not mobile numbers.
	got := Extract("ref id 1234567890")
	if len(got.PhoneNumbers) != 0 {
		t.Fatalf("PhoneNumbers = %v, want empty for leading digit < 6", got.PhoneNumbers)
	}
}

func TestExtractPrefixedPhoneNumbers(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"call 919876543210 now", "919876543210"},
		{"call +919876543210 now", "919876543210"},
		{"whatsapp me on +91 9876543210", "9876543210"},
		{"reach us at +91-9876543210", "9876543210"},
	}
	for _, tc := range cases {
		got := Extract(tc.text)
		if len(got.PhoneNumbers) == 0 {
			t.Fatalf("Extract(%q).PhoneNumbers is empty, want to contain %q", tc.text, tc.want)
		}
		if !contains(got.PhoneNumbers, tc.want) {
			t.Fatalf("Extract(%q).PhoneNumbers = %v, want to contain %q", tc.text, got.PhoneNumbers, tc.want)
		}
	}
}

func TestExtractSeparatesEmailsFromUPIHandles(t *testing.T) {
	got := Extract("Write to support@hdfcbank.com or pay to winner@okicici now")
	if !contains(got.Emails, "support@hdfcbank.com") {
		t.Fatalf("Emails = %v, want to contain support@hdfcbank.com", got.Emails)
	}
	if !contains(got.UPIIDs, "winner@okicici") {
		t.Fatalf("UPIIDs = %v, want to contain winner@okicici", got.UPIIDs)
	}
	if contains(got.UPIIDs, "support@hdfcbank.com") {
		t.Fatalf("plain email leaked into UPIIDs: %v", got.UPIIDs)
	}
}

func TestExtractURLs(t *testing.T) {
	got := Extract("Click http://sbi-kyc-update.com/verify?id=1 or https://bit.ly/x")
	if len(got.URLs) != 2 {
		t.Fatalf("URLs = %v, want 2 entries", got.URLs)
	}
}

func TestExtractDeduplicates(t *testing.T) {
	got := Extract("pay@paytm pay@paytm 987654321 987654321")
	if len(got.UPIIDs) != 1 {
		t.Fatalf("UPIIDs = %v, want single deduplicated entry", got.UPIIDs)
	}
	if len(got.BankAccounts) != 1 {
		t.Fatalf("BankAccounts = %v, want single deduplicated entry", got.BankAccounts)
	}
}

func TestExtractEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		got := Extract(text)
		if !got.Empty() {
			t.Fatalf("Extract(%q) = %+v, want empty intelligence", text, got)
		}
	}
}

func TestExtractNoEntitiesInPlainBait(t *testing.T) {
	got := Extract("Congratulations! You have won Rs 25 Lakh lottery. Share your UPI ID and bank account to claim.")
	if len(got.BankAccounts) != 0 || len(got.UPIIDs) != 0 || len(got.PhoneNumbers) != 0 || len(got.URLs) != 0 {
		t.Fatalf("expected no concrete identifiers, got %+v", got)
	}
	if !contains(got.Amounts, "25") {
		t.Fatalf("Amounts = %v, want to contain 25", got.Amounts)
	}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
