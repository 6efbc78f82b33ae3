package validator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Rejection reasons are the wire contract with the UI layer. Consumers
// split on "; ", read the parenthesized rule type from the first segment,
// and pull numeric comparisons with the comparison pattern below. The
// format must be reproduced bit-for-bit.
//
//	"<Primary Reason> (<Rule Type>): <actual> <op> <threshold> threshold; <Secondary>: <details>"

var (
	segmentRe    = regexp.MustCompile(`^(.+?) \(([^)]+)\): (.*)$`)
	comparisonRe = regexp.MustCompile(`(\d+\.?\d*x?)\s*([><]=?)\s*(\d+\.?\d*x?)`)
)

// SecondaryReason is an extra explanatory clause appended to a rejection.
type SecondaryReason struct {
	Label  string
	Detail string
}

// Reason builds a structured rejection string.
type Reason struct {
	Primary   string
	RuleType  string
	Actual    string
	Operator  string
	Threshold string
	Detail    string // used instead of a comparison when set
	Secondary []SecondaryReason
}

// Ratio formats a volume ratio for a reason string ("0.82x").
func Ratio(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "x"
}

// Num formats a price or score for a reason string.
func Num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// String renders the reason in the documented grammar.
func (r *Reason) String() string {
	var b strings.Builder
	if r.Detail != "" {
		fmt.Fprintf(&b, "%s (%s): %s", r.Primary, r.RuleType, r.Detail)
	} else {
		fmt.Fprintf(&b, "%s (%s): %s %s %s threshold", r.Primary, r.RuleType, r.Actual, r.Operator, r.Threshold)
	}
	for _, s := range r.Secondary {
		fmt.Fprintf(&b, "; %s: %s", s.Label, s.Detail)
	}
	return b.String()
}

// ParsedReason is the consumer-side view of a rejection string.
type ParsedReason struct {
	Primary   string
	RuleType  string
	Actual    string
	Operator  string
	Threshold string
	Secondary []SecondaryReason
}

// ParseReason decodes a rejection string produced by Reason.String. It
// mirrors the splitting the UI consumers perform.
func ParseReason(s string) (*ParsedReason, error) {
	segments := strings.Split(s, "; ")
	m := segmentRe.FindStringSubmatch(segments[0])
	if m == nil {
		return nil, fmt.Errorf("rejection reason %q does not match the documented grammar", s)
	}

	parsed := &ParsedReason{Primary: m[1], RuleType: m[2]}
	if cmp := comparisonRe.FindStringSubmatch(m[3]); cmp != nil {
		parsed.Actual = cmp[1]
		parsed.Operator = cmp[2]
		parsed.Threshold = cmp[3]
	}

	for _, seg := range segments[1:] {
		label, detail, ok := strings.Cut(seg, ": ")
		if !ok {
			return nil, fmt.Errorf("secondary reason %q missing label separator", seg)
		}
		parsed.Secondary = append(parsed.Secondary, SecondaryReason{Label: label, Detail: detail})
	}
	return parsed, nil
}
