// Package validate normalizes and checks the values clients and admins type into the bot.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	ErrPhoneTooShort = errors.New("phone number is too short")
	ErrPhoneTooLong  = errors.New("phone number is too long")
	ErrPhoneFormat   = errors.New("phone number must be a Russian number starting with +7 or 8")
	ErrEmailFormat   = errors.New("email address is malformed")
	ErrNameTooShort  = errors.New("name must contain at least 3 letters")
	ErrAmountInvalid = errors.New("amount must be a positive number")
	ErrLinkInvalid   = errors.New("link must start with http:// or https://")
	ErrDateFormat    = errors.New("date must look like 25.12.2025 or be a day of the month")
	ErrTimeFormat    = errors.New("time must look like 14:30")
)

// SkipWords are accepted wherever an optional value may be skipped.
var SkipWords = []string{"skip", "пропустить", "-"}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	timePattern  = regexp.MustCompile(`^([01]?\d|2[0-3])[:.]([0-5]\d)$`)
	fieldCheck   = validator.New()
)

// Phone normalizes a Russian phone number to +7 (XXX) XXX-XX-XX.
// Ten-digit input is treated as a number without the country code.
func Phone(input string) (string, error) {
	digits := make([]byte, 0, len(input))
	for _, r := range input {
		if r >= '0' && r <= '9' {
			digits = append(digits, byte(r))
		}
	}

	switch {
	case len(digits) < 10:
		return "", ErrPhoneTooShort
	case len(digits) > 11:
		return "", ErrPhoneTooLong
	case len(digits) == 10:
		digits = append([]byte{'7'}, digits...)
	}

	switch digits[0] {
	case '7':
	case '8':
		digits[0] = '7'
	default:
		return "", ErrPhoneFormat
	}

	d := string(digits)
	return fmt.Sprintf("+7 (%s) %s-%s-%s", d[1:4], d[4:7], d[7:9], d[9:11]), nil
}

// Email trims and lower-cases the address and rejects anything that is not a plain mailbox.
func Email(input string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(input))
	if !emailPattern.MatchString(email) {
		return "", ErrEmailFormat
	}
	if err := fieldCheck.Var(email, "required,email"); err != nil {
		return "", ErrEmailFormat
	}
	return email, nil
}

// Name collapses whitespace and requires at least three non-space characters.
func Name(input string) (string, error) {
	name := strings.Join(strings.Fields(input), " ")
	letters := 0
	for _, r := range name {
		if !unicode.IsSpace(r) {
			letters++
		}
	}
	if letters < 3 {
		return "", ErrNameTooShort
	}
	return name, nil
}

// Amount parses a money amount typed by an admin, e.g. "15 000 ₽", "1500,50", "1,500"
// or "1,500.50 руб.".
func Amount(input string) (float64, error) {
	var b strings.Builder
	for _, r := range input {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	s := strings.Trim(b.String(), ".,")

	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		// thousands separator is whichever comes first
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Contains(s, ","):
		s = normalizeSeparator(s, ",")
	case strings.Contains(s, "."):
		s = normalizeSeparator(s, ".")
	}

	amount, err := strconv.ParseFloat(s, 64)
	if err != nil || amount <= 0 {
		return 0, ErrAmountInvalid
	}
	return amount, nil
}

// normalizeSeparator rewrites s, which uses sep as its only separator, into a
// ParseFloat-friendly form. A lone separator followed by exactly three digits
// groups thousands ("1,500", "1.500"); repeated separators always do.
func normalizeSeparator(s, sep string) string {
	i := strings.Index(s, sep)
	if strings.Count(s, sep) > 1 || len(s)-i-1 == 3 {
		return strings.ReplaceAll(s, sep, "")
	}
	return s[:i] + "." + s[i+1:]
}

// IsSkip reports whether input is one of SkipWords.
func IsSkip(input string) bool {
	s := strings.ToLower(strings.TrimSpace(input))
	for _, w := range SkipWords {
		if s == w {
			return true
		}
	}
	return false
}

// PaymentLink returns the link, or "" when the admin chose to skip it.
func PaymentLink(input string) (string, error) {
	s := strings.TrimSpace(input)
	if IsSkip(s) {
		return "", nil
	}
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "", ErrLinkInvalid
	}
	if err := fieldCheck.Var(s, "url"); err != nil {
		return "", ErrLinkInvalid
	}
	return s, nil
}

// Date parses "DD.MM.YYYY", "DD.MM" or a bare day of month relative to now.
// A bare day that does not exist in the current month rolls to the next month.
// The result is midnight in now's location.
func Date(input string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(input)
	loc := now.Location()

	for _, layout := range []string{"02.01.2006", "2.1.2006", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	for _, layout := range []string{"02.01", "2.1"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			d := time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
			if d.Before(startOfDay(now)) {
				d = d.AddDate(1, 0, 0)
			}
			return d, nil
		}
	}

	day, err := strconv.Atoi(s)
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, ErrDateFormat
	}
	d := time.Date(now.Year(), now.Month(), day, 0, 0, 0, 0, loc)
	if d.Day() != day {
		next := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, loc)
		d = time.Date(next.Year(), next.Month(), day, 0, 0, 0, 0, loc)
		if d.Day() != day {
			return time.Time{}, ErrDateFormat
		}
	}
	return d, nil
}

// Time parses "HH:MM" (or "HH.MM") and returns it as "HH:MM".
func Time(input string) (string, error) {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return "", ErrTimeFormat
	}
	hour, _ := strconv.Atoi(m[1])
	return fmt.Sprintf("%02d:%s", hour, m[2]), nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
