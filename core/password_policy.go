package core

// MeetsPolicy reports whether password contains at least one Latin letter,
// one Cyrillic letter (U+0400..U+04FF) and one decimal digit.
// An empty password never meets the policy.
func MeetsPolicy(password string) bool {
	if password == "" {
		return false
	}
	var latin, cyrillic, digit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			latin = true
		case r >= 0x0400 && r <= 0x04FF:
			cyrillic = true
		case r >= '0' && r <= '9':
			digit = true
		}
		if latin && cyrillic && digit {
			return true
		}
	}
	return false
}
