// Package isbn validates and converts standard book identifiers.
//
// An ISBN-13 with the "978" prefix carries the same registration body as
// its ISBN-10 form; only the check digit differs. "979"-prefixed ISBN-13s
// have no ISBN-10 equivalent.
package isbn

// IsValidISBN13 reports whether s is exactly 13 digits with a valid
// mod-10 weighted checksum.
func IsValidISBN13(s string) bool {
	if len(s) != 13 || !allDigits(s) {
		return false
	}
	sum := 0
	for i := 0; i < 12; i++ {
		digit := int(s[i] - '0')
		if i%2 == 1 {
			digit *= 3
		}
		sum += digit
	}
	check := (10 - sum%10) % 10
	return check == int(s[12]-'0')
}

// ToISBN10 converts a "978"-prefixed ISBN-13 to its ISBN-10 form by
// stripping the prefix and recomputing the check digit over the nine
// remaining body digits (weights 10 down to 2, remainder 10 rendered as
// 'X'). It reports false for any other prefix or malformed input.
func ToISBN10(isbn13 string) (string, bool) {
	if len(isbn13) != 13 || !allDigits(isbn13) {
		return "", false
	}
	if isbn13[:3] != "978" {
		return "", false
	}
	body := isbn13[3:12]
	sum := 0
	for i := 0; i < 9; i++ {
		sum += (10 - i) * int(body[i]-'0')
	}
	check := (11 - sum%11) % 11
	if check == 10 {
		return body + "X", true
	}
	return body + string(byte('0'+check)), true
}

// CheckDigit13 returns the ISBN-13 check digit for the supplied first
// twelve digits. It reports false when the input is not twelve digits.
func CheckDigit13(first12 string) (byte, bool) {
	if len(first12) != 12 || !allDigits(first12) {
		return 0, false
	}
	sum := 0
	for i := 0; i < 12; i++ {
		digit := int(first12[i] - '0')
		if i%2 == 1 {
			digit *= 3
		}
		sum += digit
	}
	return byte('0' + (10-sum%10)%10), true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
