package codeblock

import (
	"errors"
	"fmt"
	"strings"
)

const fence = "```"

var ErrNoCodeBlock = errors.New("code block not found")

// ExtractionError is returned when model output has no fenced block for the
// requested language.
type ExtractionError struct {
	Lang string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s code block not found in LLM output", e.Lang)
}

func (e *ExtractionError) Unwrap() error {
	return ErrNoCodeBlock
}

// Extract returns the trimmed interior of the first ```<lang> ... ``` block in text.
func Extract(text, lang string) (string, error) {
	opening := fence + lang
	start := strings.Index(text, opening)
	if start == -1 {
		return "", &ExtractionError{Lang: lang}
	}
	body := text[start+len(opening):]

	end := strings.Index(body, fence)
	if end == -1 {
		return "", &ExtractionError{Lang: lang}
	}

	return strings.TrimSpace(body[:end]), nil
}
