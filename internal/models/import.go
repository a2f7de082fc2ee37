package models

import (
	"fmt"
	"strings"
)

// ImportResult tallies a batch import. Errors holds one message per failed row.
type ImportResult struct {
	SuccessCount int      `json:"success_count"`
	FailureCount int      `json:"failure_count"`
	Errors       []string `json:"errors,omitempty"`
}

// Summary renders the counts followed by at most maxErrors messages.
func (r ImportResult) Summary(maxErrors int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "imported %d, failed %d", r.SuccessCount, r.FailureCount)
	shown := r.Errors
	if maxErrors >= 0 && len(shown) > maxErrors {
		shown = shown[:maxErrors]
	}
	for _, msg := range shown {
		b.WriteString("\n  ")
		b.WriteString(msg)
	}
	if hidden := len(r.Errors) - len(shown); hidden > 0 {
		fmt.Fprintf(&b, "\n  ... and %d more", hidden)
	}
	return b.String()
}
