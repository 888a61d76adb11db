package application

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	NicknameMinLength = 2
	NicknameMaxLength = 20
	PasswordMinLength = 3
	PasswordMaxLength = 50
)

// localeLetters are the accented letters accepted in nicknames besides ASCII.
const localeLetters = "ąćęłńóśźżĄĆĘŁŃÓŚŹŻ"

var reservedNicknames = map[string]struct{}{
	"admin":     {},
	"system":    {},
	"test":      {},
	"null":      {},
	"undefined": {},
}

// NormalizeText trims s, collapses internal whitespace runs to one space and
// converts the result to Unicode NFC so that composed and decomposed accented
// letters compare equal.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// validateCredentials checks already normalized input.
func validateCredentials(nickname, password string) *ValidationError {
	vErr := validateNickname(nickname)
	if vErr == nil {
		vErr = &ValidationError{}
	}
	vErr.merge(validatePassword(password))

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func validateNickname(nickname string) *ValidationError {
	vErr := &ValidationError{}

	switch n := utf8.RuneCountInString(nickname); {
	case n == 0:
		vErr.add("nickname", "Nickname is required.")
	case n < NicknameMinLength || n > NicknameMaxLength:
		vErr.add("nickname", fmt.Sprintf("Nickname must be %d to %d characters long.", NicknameMinLength, NicknameMaxLength))
	}
	for _, r := range nickname {
		if !isNicknameRune(r) {
			vErr.add("nickname", "Nickname may contain only letters, digits, spaces, hyphens and underscores.")
			break
		}
	}
	if _, reserved := reservedNicknames[strings.ToLower(nickname)]; reserved {
		vErr.add("nickname", "This nickname is reserved.")
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func validatePassword(password string) *ValidationError {
	if n := utf8.RuneCountInString(password); n < PasswordMinLength || n > PasswordMaxLength {
		vErr := &ValidationError{}
		vErr.add("password", fmt.Sprintf("Password must be %d to %d characters long.", PasswordMinLength, PasswordMaxLength))
		return vErr
	}
	return nil
}

// validateSignoutInput only requires both fields. Stored nicknames may predate
// the current nickname rules and must still be able to sign out.
func validateSignoutInput(nickname, password string) *ValidationError {
	vErr := &ValidationError{}
	if nickname == "" {
		vErr.add("nickname", "Nickname is required.")
	}
	if password == "" {
		vErr.add("password", "Password is required.")
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func isNicknameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == ' ', r == '-', r == '_':
		return true
	}
	return strings.ContainsRune(localeLetters, r)
}
