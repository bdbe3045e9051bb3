// Package query compiles structured mailbox filters into Gmail search query
// strings. Compilation is deterministic: identical filters always produce a
// byte-identical query. Clause order is base scope, positive terms, negative
// terms, date bounds, with each clause group parenthesized so the remote
// query language's operator precedence cannot reassociate terms.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/joshsymonds/mailpilot/internal/datewindow"
	"github.com/joshsymonds/mailpilot/internal/gmail"
)

// Scope restricts which mailbox views a listing covers.
type Scope int

const (
	ScopeDefault Scope = iota // Gmail default search scope
	ScopeArchived             // not in inbox, excluding system folders
	ScopeAllMail              // everything except spam/trash/chats
)

// Filters is the structured input to Compile. Zero-valued fields are omitted
// from the query.
type Filters struct {
	Scope           Scope
	Sender          string
	Domain          string
	Category        string // Gmail category id, e.g. "promotions"
	CustomCategory  string // curated category key, e.g. "verification_codes"
	SubjectKeywords []string
	Window          datewindow.Window
	OlderThanDays   int
}

const dateLayout = "2006/01/02"

// Compile renders filters into a Gmail query. now anchors the OlderThanDays
// cutoff. An unknown custom-category key is an error; every other filter
// combination compiles.
func Compile(f Filters, now time.Time) (gmail.Query, error) {
	var cat customCategory
	if f.CustomCategory != "" {
		var ok bool
		cat, ok = customCategories[f.CustomCategory]
		if !ok {
			return gmail.Query{}, fmt.Errorf("unknown custom category %q", f.CustomCategory)
		}
	}

	var parts []string

	// Base scope.
	switch {
	case f.CustomCategory != "":
		parts = append(parts, cat.base)
	case f.Scope == ScopeArchived:
		parts = append(parts, "-in:inbox -in:spam -in:trash -in:chats -in:sent -in:drafts")
	case f.Scope == ScopeAllMail:
		parts = append(parts, "-in:spam -in:trash -in:chats")
	}

	// Positive clauses.
	if f.Sender != "" {
		parts = append(parts, "(from:"+quoteTerm(f.Sender)+")")
	}
	if f.Domain != "" {
		parts = append(parts, "(from:*@"+f.Domain+")")
	}
	if f.Category != "" {
		parts = append(parts, "(category:"+strings.ToLower(f.Category)+")")
	}
	if f.CustomCategory != "" {
		parts = append(parts, cat.positiveClause())
	}
	if len(f.SubjectKeywords) > 0 {
		terms := make([]string, len(f.SubjectKeywords))
		for i, kw := range f.SubjectKeywords {
			terms[i] = `subject:"` + kw + `"`
		}
		parts = append(parts, "("+strings.Join(terms, " OR ")+")")
	}

	// Negative clauses.
	if f.CustomCategory != "" {
		parts = append(parts, cat.negativeClauses()...)
	}

	// Date bounds: after is inclusive, before exclusive, day granularity.
	if !f.Window.Unbounded() {
		parts = append(parts, "after:"+f.Window.Start.Format(dateLayout))
	}
	if !f.Window.End.IsZero() {
		parts = append(parts, "before:"+f.Window.End.Format(dateLayout))
	}
	if f.OlderThanDays > 0 {
		cutoff := now.AddDate(0, 0, -f.OlderThanDays)
		parts = append(parts, "before:"+cutoff.Format(dateLayout))
	}

	return gmail.Query{Raw: strings.Join(parts, " ")}, nil
}

// quoteTerm quotes multi-word sender keywords so Gmail treats them as one
// token.
func quoteTerm(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}
