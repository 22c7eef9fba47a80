package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dataforge-io/dataforge-engine/pkg/models"
)

// coerceValue converts a raw model response into the canonical string value
// for the column's declared type.
func coerceValue(column models.Column, response string) (string, error) {
	switch column.Type {
	case models.ColumnTypeText:
		return cleanTextArtifacts(response), nil
	case models.ColumnTypeInt:
		f, ok := parseLeadingNumber(response)
		if !ok {
			return "0", nil
		}
		return strconv.FormatInt(int64(math.Round(f)), 10), nil
	case models.ColumnTypeFloat:
		f, ok := parseLeadingNumber(response)
		if !ok {
			return "0", nil
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case models.ColumnTypeBool:
		b, err := strconv.ParseBool(strings.TrimSpace(response))
		if err != nil {
			b = false
		}
		return strconv.FormatBool(b), nil
	case models.ColumnTypeJSON:
		return coerceJSON(response)
	}
	return "", fmt.Errorf("unsupported column type %q", column.Type)
}

// cleanTextArtifacts strips code fences, escape sequences and wrapping
// quotes that models commonly emit around plain text values.
func cleanTextArtifacts(text string) string {
	cleaned := strings.TrimSpace(text)

	for {
		before := cleaned
		cleaned = strings.TrimRight(strings.TrimSuffix(cleaned, "```"), " \t")
		cleaned = strings.TrimRight(strings.TrimSuffix(cleaned, `\"`), " \t")
		cleaned = strings.TrimRight(strings.TrimSuffix(cleaned, `\n`), " \t")
		cleaned = strings.TrimRight(strings.TrimSuffix(cleaned, "\n"), " \t")
		cleaned = strings.TrimRight(strings.TrimSuffix(cleaned, `\r`), " \t")
		cleaned = strings.TrimRight(strings.TrimSuffix(cleaned, "\r"), " \t")
		if before == cleaned {
			break
		}
	}

	cleaned = strings.TrimLeft(strings.TrimPrefix(cleaned, "```"), " \t")
	cleaned = strings.TrimLeft(strings.TrimPrefix(cleaned, `\"`), " \t")

	switch {
	case len(cleaned) > 1 && ((strings.HasPrefix(cleaned, `"`) && strings.HasSuffix(cleaned, `"`)) ||
		(strings.HasPrefix(cleaned, "'") && strings.HasSuffix(cleaned, "'"))):
		cleaned = cleaned[1 : len(cleaned)-1]
	case strings.HasPrefix(cleaned, `"`) || strings.HasPrefix(cleaned, "'"):
		cleaned = cleaned[1:]
	}

	return strings.TrimSpace(cleaned)
}

// parseLeadingNumber extracts the first contiguous numeric run of the
// response (digits, '.', '-', '+') and parses it as a float.
func parseLeadingNumber(response string) (float64, bool) {
	var numeric strings.Builder
	for _, c := range response {
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' {
			numeric.WriteRune(c)
		} else if numeric.Len() > 0 {
			break
		}
	}
	if numeric.Len() == 0 {
		return 0, false
	}

	f, err := strconv.ParseFloat(numeric.String(), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// coerceJSON extracts the JSON payload of a response: code fences are
// stripped, the payload is sliced from the first opening brace or bracket to
// the last matching closer, and unbalanced braces are repaired before the
// result is validated.
func coerceJSON(response string) (string, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.IndexAny(cleaned, "{[")
	if start >= 0 {
		open := cleaned[start]
		var close byte = '}'
		if open == '[' {
			close = ']'
		}

		extracted := cleaned[start:]
		if end := strings.LastIndexByte(extracted, close); end >= 0 {
			extracted = extracted[:end+1]
		}

		balance := 0
		for i := 0; i < len(extracted); i++ {
			switch extracted[i] {
			case open:
				balance++
			case close:
				balance--
			}
		}
		if balance > 0 {
			extracted += strings.Repeat(string(close), balance)
		} else if balance < 0 {
			extracted = strings.Repeat(string(open), -balance) + extracted
		}

		cleaned = extracted
	}

	var parsed any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return "", fmt.Errorf("response is not valid JSON: %w", err)
	}

	compact, err := json.Marshal(parsed)
	if err != nil {
		return "", fmt.Errorf("failed to re-encode JSON value: %w", err)
	}
	return string(compact), nil
}
