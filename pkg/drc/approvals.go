package drc

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/sexp"
)

// SortMessages sorts messages by descending severity and then by their text
// in case insensitive natural order ("pad 2" before "pad 10").
func SortMessages(messages []Message) {
	c := collate.New(language.Und, collate.IgnoreCase, collate.Numeric)
	slices.SortStableFunc(messages, func(a, b Message) int {
		if a.Severity != b.Severity {
			return int(b.Severity) - int(a.Severity)
		}
		return c.CompareString(a.Text, b.Text)
	})
}

// Approvals is a set of canonical approval keys.
type Approvals map[string]struct{}

// CanonicalApproval normalizes the whitespace of an approval key.
func CanonicalApproval(key string) (string, error) {
	nodes, err := sexp.ParseString(key)
	if err != nil {
		return "", fmt.Errorf("failed to parse approval: %w", err)
	}
	if len(nodes) != 1 {
		return "", fmt.Errorf("expected one approval, got %d: %w", len(nodes), sexp.ErrSyntax)
	}
	l, ok := nodes[0].(*sexp.List)
	if !ok || l.Key() != "approved" {
		return "", fmt.Errorf("expected (approved ...): %w", sexp.ErrSyntax)
	}
	return l.String(), nil
}

// NewApprovals builds a set from serialized keys, e.g. the approvals
// stored in a board file.
func NewApprovals(keys ...string) (Approvals, error) {
	a := make(Approvals, len(keys))
	for _, k := range keys {
		if err := a.Add(k); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Add inserts a serialized key.
func (a Approvals) Add(key string) error {
	c, err := CanonicalApproval(key)
	if err != nil {
		return err
	}
	a[c] = struct{}{}
	return nil
}

// Contains reports whether the message is approved.
func (a Approvals) Contains(m Message) bool {
	_, ok := a[m.ApprovalKey]
	return ok
}

// Keys returns the approvals in sorted order.
func (a Approvals) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ParseApprovals reads a file of (approved ...) forms.
func ParseApprovals(r io.Reader) (Approvals, error) {
	nodes, err := sexp.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse approvals: %w", err)
	}
	a := make(Approvals, len(nodes))
	for i, n := range nodes {
		if n.IsLeaf() {
			return nil, fmt.Errorf("approval %d is not a list: %w", i+1, sexp.ErrSyntax)
		}
		if err := a.Add(n.String()); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// WriteApprovals writes one approval per line in sorted order.
func WriteApprovals(w io.Writer, a Approvals) error {
	if len(a) == 0 {
		return nil
	}
	_, err := io.WriteString(w, strings.Join(a.Keys(), "\n")+"\n")
	return err
}

// Partition splits messages into approved and pending ones, keeping their
// order.
func Partition(messages []Message, approvals Approvals) (approved, pending []Message) {
	for _, m := range messages {
		if approvals.Contains(m) {
			approved = append(approved, m)
		} else {
			pending = append(pending, m)
		}
	}
	return approved, pending
}
