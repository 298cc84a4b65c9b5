package domain

import (
	"fmt"
	"unicode/utf8"
)

// TextPolicy bounds the free-text fields stored by the registry.
type TextPolicy struct {
	MaxInfoBytes    int
	MaxDataBytes    int
	MaxMessageBytes int
}

func DefaultTextPolicy() TextPolicy {
	return TextPolicy{
		MaxInfoBytes:    4096,
		MaxDataBytes:    16384,
		MaxMessageBytes: 1024,
	}
}

func (p TextPolicy) CheckInfo(s string) error {
	return checkText("info", s, p.MaxInfoBytes)
}

func (p TextPolicy) CheckData(s string) error {
	return checkText("data", s, p.MaxDataBytes)
}

func (p TextPolicy) CheckMessage(s string) error {
	return checkText("message", s, p.MaxMessageBytes)
}

func checkText(field, s string, max int) error {
	if max > 0 && len(s) > max {
		return fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidText, field, max)
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidText, field)
	}
	return nil
}
