package intent

import (
	"regexp"
	"strconv"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// DefaultConfidenceThreshold is the minimum fuzzy partial-ratio score for an
// action classification to be accepted. Tuned empirically; treat as a knob,
// not a truth.
const DefaultConfidenceThreshold = 75

// Parser classifies commands with a fixed rule table. Rule order is
// load-bearing: early rules exist to stop generic fuzzy matching from
// misclassifying phrases like "list archived" or "archive verification
// codes".
type Parser struct {
	Threshold int
}

func NewParser() *Parser {
	return &Parser{Threshold: DefaultConfidenceThreshold}
}

type rule struct {
	name  string
	match func(p *Parser, cmd string) (Intent, bool)
}

// rules run in order; the first match wins. Fuzzy action classification and
// slot extraction only run when no rule claims the command.
var rules = []rule{
	{"list-archived", (*Parser).matchListArchived},
	{"list-all-mail", (*Parser).matchListAllMail},
	{"archive-custom-category", (*Parser).matchArchiveCustomCategory},
	{"delete-custom-category", (*Parser).matchDeleteCustomCategory},
	{"label-listing", (*Parser).matchLabelListing},
	{"label-apply", (*Parser).matchLabelApply},
	{"restore-from-sender", (*Parser).matchRestore},
	{"exact-phrases", (*Parser).matchExactPhrases},
}

// Parse turns a raw command into an Intent or a *ParseError. It never
// invents a default target.
func (p *Parser) Parse(command string) (Intent, error) {
	cmd := strings.ToLower(strings.TrimSpace(command))
	if cmd == "" {
		return Intent{}, noActionError(ActionUnknown, 0)
	}
	for _, r := range rules {
		if in, ok := r.match(p, cmd); ok {
			return in, nil
		}
	}
	return p.classify(cmd)
}

var (
	listVerbRe   = regexp.MustCompile(`\b(list|show|view|get)\b`)
	ageRe        = regexp.MustCompile(`older\s+(?:than|then)\s+(\d+)\s*(day|days|d|week|weeks|w|month|months|m|year|years|y)\b`)
	olderPhrase  = regexp.MustCompile(`(?:older than|before)\s+(a|an|\d+)\s+(day|week|month|year)s?\b`)
	fromAgoRe    = regexp.MustCompile(`from\s+(a|an|\d+)\s+(day|week|month|year)s?\s+ago`)
	simpleDateRe = regexp.MustCompile(`from\s+(today|yesterday|last week|last month|last year|this week|this month|this year)`)
	domainRe     = regexp.MustCompile(`from\s+([a-z0-9.-]+\.(?:com|org|net|edu|gov|io|co\.[a-z.]+|[a-z]{2}))\b`)
	senderRe     = regexp.MustCompile(`from\s+([a-z0-9._\-+@\p{Hebrew}\p{Arabic}\p{Han}]+)`)
	labelNameRe  = regexp.MustCompile(`(?:\bas\b|\bwith\b)\s+["']?([^"']+?)["']?\s*$`)
	showLabelRe  = regexp.MustCompile(`(?:list|show) label\s+["']?([^"']+?)["']?\s*$`)
	sendRe       = regexp.MustCompile(`to\s+([\w.\-+]+@[\w.\-]+)(?:\s+with subject\s+["']([^"']+)["'])?(?:\s+and message\s+["']([^"']+)["'])?`)
	searchRe     = regexp.MustCompile(`(?:for\s+)?emails?\s+(?:with subject|about|containing)\s+["']?([^"']+?)["']?\s*$`)
)

// senderStopWords are generic tokens that must never be captured as a
// sender keyword.
var senderStopWords = map[string]bool{
	"emails": true, "email": true, "all": true, "the": true, "my": true,
	"any": true, "this": true, "that": true, "these": true, "those": true,
	"older": true, "than": true, "then": true, "before": true, "after": true,
	"last": true, "week": true, "month": true, "year": true, "today": true,
	"yesterday": true, "a": true, "an": true,
}

// senderOf extracts a "from X" keyword, rejecting stop words and bare
// numbers (those belong to date phrases, not senders).
func senderOf(cmd string) string {
	m := senderRe.FindStringSubmatch(cmd)
	if m == nil || senderStopWords[m[1]] {
		return ""
	}
	if _, err := strconv.Atoi(m[1]); err == nil {
		return ""
	}
	return m[1]
}

var datePhrases = []string{
	"today", "yesterday", "this week", "last week", "this month",
	"last month", "this year", "last year",
}

func shippingTokens(cmd string) bool {
	return strings.Contains(cmd, "shipping") || strings.Contains(cmd, "delivery") ||
		strings.Contains(cmd, "shipped") || strings.Contains(cmd, "משלוח")
}

func verificationTokens(cmd string) bool {
	return strings.Contains(cmd, "verification") && strings.Contains(cmd, "code")
}

func securityTokens(cmd string) bool {
	return strings.Contains(cmd, "security") || strings.Contains(cmd, "account") ||
		strings.Contains(cmd, "sign in") || strings.Contains(cmd, "login")
}

// categoryTokens keeps bulk-age cleanup from swallowing commands scoped to
// a mail category.
func categoryTokens(cmd string) bool {
	if verificationTokens(cmd) || shippingTokens(cmd) || securityTokens(cmd) {
		return true
	}
	for _, tok := range []string{"promotion", "social", "updates", "forums", "personal"} {
		if strings.Contains(cmd, tok) {
			return true
		}
	}
	return false
}

// parseAgeDays normalizes "older than|then N <unit>" to a day count, 0 when
// absent.
func parseAgeDays(cmd string) int {
	m := ageRe.FindStringSubmatch(cmd)
	if m == nil {
		return 0
	}
	qty, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	switch m[2][0] {
	case 'w':
		return qty * 7
	case 'm':
		return qty * 30
	case 'y':
		return qty * 365
	default:
		return qty
	}
}

// datePhraseOf finds an inline relative-date phrase to attach to the current
// target as a bounding window. Returns a phrase the date resolver accepts.
func datePhraseOf(cmd string) string {
	if m := fromAgoRe.FindStringSubmatch(cmd); m != nil {
		qty := m[1]
		if qty == "a" || qty == "an" {
			qty = "1"
		}
		return qty + " " + m[2] + " ago"
	}
	if m := simpleDateRe.FindStringSubmatch(cmd); m != nil {
		return m[1]
	}
	for _, phrase := range datePhrases {
		if strings.Contains(cmd, phrase) {
			return phrase
		}
	}
	return ""
}

func (p *Parser) matchListArchived(cmd string) (Intent, bool) {
	if listVerbRe.MatchString(cmd) &&
		(strings.Contains(cmd, "archived") || strings.Contains(cmd, "not in inbox") || strings.Contains(cmd, "hidden")) {
		return Intent{Action: ActionList, TargetType: TargetArchived, Target: "archived", Confidence: 100}, true
	}
	return Intent{}, false
}

func (p *Parser) matchListAllMail(cmd string) (Intent, bool) {
	if listVerbRe.MatchString(cmd) &&
		(strings.Contains(cmd, "all mail") || strings.Contains(cmd, "all emails") || strings.Contains(cmd, "everything")) {
		return Intent{Action: ActionList, TargetType: TargetAllMail, Target: "all", Confidence: 100}, true
	}
	return Intent{}, false
}

func (p *Parser) matchArchiveCustomCategory(cmd string) (Intent, bool) {
	return matchCustomCategoryMutation(cmd, "archive", ActionArchive)
}

func (p *Parser) matchDeleteCustomCategory(cmd string) (Intent, bool) {
	return matchCustomCategoryMutation(cmd, "delete", ActionDelete)
}

func matchCustomCategoryMutation(cmd, verb string, action Action) (Intent, bool) {
	if !strings.Contains(cmd, verb) {
		return Intent{}, false
	}
	if !verificationTokens(cmd) && !shippingTokens(cmd) {
		return Intent{}, false
	}
	key := "shipping_delivery"
	if verificationTokens(cmd) {
		key = "verification_codes"
	}
	return Intent{
		Action:            action,
		TargetType:        TargetCustomCategory,
		Target:            key,
		OlderThanDays:     parseAgeDays(cmd),
		NeedsConfirmation: true,
		Confidence:        100,
	}, true
}

func (p *Parser) matchLabelListing(cmd string) (Intent, bool) {
	if !strings.Contains(cmd, "list label") && !strings.Contains(cmd, "show label") {
		return Intent{}, false
	}
	if m := showLabelRe.FindStringSubmatch(cmd); m != nil {
		return Intent{Action: ActionShowLabel, TargetType: TargetLabel, Target: strings.TrimSpace(m[1]), Confidence: 100}, true
	}
	return Intent{Action: ActionListLabels, TargetType: TargetLabels, Target: "labels", Confidence: 100}, true
}

func (p *Parser) matchLabelApply(cmd string) (Intent, bool) {
	if !strings.Contains(cmd, "label") || !strings.Contains(cmd, " from ") {
		return Intent{}, false
	}
	if !strings.Contains(cmd, " as ") && !strings.Contains(cmd, " with ") {
		return Intent{}, false
	}
	label := labelNameRe.FindStringSubmatch(cmd)
	if label == nil {
		return Intent{}, false
	}
	base := Intent{
		Action:            ActionLabel,
		Label:             strings.TrimSpace(label[1]),
		NeedsConfirmation: true,
		Confidence:        100,
	}
	if m := domainRe.FindStringSubmatch(cmd); m != nil {
		base.TargetType, base.Target = TargetDomain, m[1]
		return base, true
	}
	if sender := senderOf(cmd); sender != "" {
		base.TargetType, base.Target = TargetSender, sender
		return base, true
	}
	return Intent{}, false
}

func (p *Parser) matchRestore(cmd string) (Intent, bool) {
	if !strings.Contains(cmd, "restore") || !strings.Contains(cmd, " from ") {
		return Intent{}, false
	}
	sender := senderOf(cmd)
	if sender == "" {
		return Intent{}, false
	}
	return Intent{
		Action:            ActionRestore,
		TargetType:        TargetSender,
		Target:            sender,
		NeedsConfirmation: true,
		Confidence:        100,
	}, true
}

func (p *Parser) matchExactPhrases(cmd string) (Intent, bool) {
	switch {
	case strings.Contains(cmd, "empty trash"):
		return Intent{Action: ActionInfoOnly, TargetType: TargetInfo, Target: "trash_info", Confidence: 100}, true
	case strings.Contains(cmd, "full analysis"):
		return Intent{Action: ActionStats, TargetType: TargetStats, Target: "full", Confidence: 100}, true
	case strings.Contains(cmd, "stats") || strings.Contains(cmd, "statistics"):
		return Intent{Action: ActionStats, TargetType: TargetStats, Target: "sample", Confidence: 100}, true
	case strings.Contains(cmd, "list") && strings.Contains(cmd, "recent"):
		return Intent{Action: ActionList, TargetType: TargetRecent, Target: "recent", Confidence: 100}, true
	}
	return Intent{}, false
}

// actionAliases drive fuzzy classification. Slice order breaks ties the same
// way every run.
var actionAliases = []struct {
	action  Action
	aliases []string
}{
	{ActionDelete, []string{"delete", "remove", "trash", "del"}},
	{ActionArchive, []string{"archive", "hide"}},
	{ActionList, []string{"list", "show", "get", "view"}},
	{ActionStats, []string{"stats", "statistics", "report"}},
	{ActionSearch, []string{"search", "find"}},
	{ActionSend, []string{"send", "email", "compose"}},
	{ActionRestore, []string{"restore", "unarchive"}},
	{ActionLabel, []string{"label", "tag"}},
	{ActionListLabels, []string{"list labels", "show labels"}},
	{ActionInfoOnly, []string{"empty trash"}},
}

// thresholdExempt actions have their own non-fuzzy confirmation paths and
// are allowed through below the confidence threshold.
var thresholdExempt = map[Action]bool{
	ActionListLabels: true,
	ActionInfoOnly:   true,
	ActionShowLabel:  true,
	ActionLabel:      true,
}

func (p *Parser) classify(cmd string) (Intent, error) {
	best, score := ActionUnknown, 0
	for _, entry := range actionAliases {
		for _, alias := range entry.aliases {
			if s := fuzzy.PartialRatio(alias, cmd); s > score {
				best, score = entry.action, s
			}
		}
	}
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	if score < threshold && !thresholdExempt[best] {
		return Intent{}, noActionError(best, score)
	}
	return p.extract(cmd, best, score)
}

func (p *Parser) extract(cmd string, action Action, score int) (Intent, error) {
	// Bulk cleanup by age outranks per-target extraction, unless a category
	// is mentioned (those route to category handling below).
	if (action == ActionDelete || action == ActionArchive) &&
		strings.Contains(cmd, "all") && strings.Contains(cmd, "older") &&
		!categoryTokens(cmd) {
		if days := parseAgeDays(cmd); days > 0 {
			return Intent{
				Action:            action,
				TargetType:        TargetBulkAge,
				Target:            "all_emails",
				OlderThanDays:     days,
				NeedsConfirmation: true,
				Confidence:        score,
			}, nil
		}
	}

	switch action {
	case ActionInfoOnly:
		return Intent{Action: ActionInfoOnly, TargetType: TargetInfo, Target: "trash_info", Confidence: score}, nil
	case ActionStats:
		return Intent{Action: ActionStats, TargetType: TargetStats, Target: "sample", Confidence: score}, nil
	case ActionListLabels:
		return Intent{Action: ActionListLabels, TargetType: TargetLabels, Target: "labels", Confidence: score}, nil
	case ActionList:
		return p.extractList(cmd, score)
	case ActionSearch:
		if m := searchRe.FindStringSubmatch(cmd); m != nil {
			return Intent{
				Action:     ActionSearch,
				TargetType: TargetSubjectKeywords,
				Target:     strings.TrimSpace(m[1]),
				Keywords:   []string{strings.TrimSpace(m[1])},
				Confidence: score,
			}, nil
		}
	case ActionSend:
		if m := sendRe.FindStringSubmatch(cmd); m != nil {
			subject := m[2]
			if subject == "" {
				subject = "No Subject"
			}
			return Intent{
				Action:            ActionSend,
				TargetType:        TargetSender,
				Target:            m[1],
				SendTo:            m[1],
				SendSubject:       subject,
				SendBody:          m[3],
				NeedsConfirmation: true,
				Confidence:        score,
			}, nil
		}
	case ActionDelete:
		return p.extractMutation(cmd, ActionDelete, score)
	case ActionArchive:
		return p.extractMutation(cmd, ActionArchive, score)
	case ActionRestore:
		if sender := senderOf(cmd); sender != "" {
			return Intent{
				Action:            ActionRestore,
				TargetType:        TargetSender,
				Target:            sender,
				NeedsConfirmation: true,
				Confidence:        score,
			}, nil
		}
	}
	return Intent{}, noPatternError(action, score)
}

// extractList tries list patterns most-specific first: custom categories,
// then target+window combinations, then bare windows, then bare targets.
func (p *Parser) extractList(cmd string, score int) (Intent, error) {
	olderDays := parseAgeDays(cmd)
	datePhrase := datePhraseOf(cmd)

	if verificationTokens(cmd) {
		return listCustomCategory("verification_codes", olderDays, datePhrase, score), nil
	}
	if shippingTokens(cmd) {
		return listCustomCategory("shipping_delivery", olderDays, datePhrase, score), nil
	}
	if securityTokens(cmd) {
		return listCustomCategory("account_security", olderDays, datePhrase, score), nil
	}
	if strings.Contains(cmd, "archived") || strings.Contains(cmd, "not in inbox") || strings.Contains(cmd, "hidden") {
		return Intent{Action: ActionList, TargetType: TargetArchived, Target: "archived", Confidence: score}, nil
	}
	if strings.Contains(cmd, "all mail") || strings.Contains(cmd, "all emails") || strings.Contains(cmd, "everything") {
		return Intent{Action: ActionList, TargetType: TargetAllMail, Target: "all", Confidence: score}, nil
	}

	// Sender/domain with an attached window beats bare windows: the window
	// bounds the target, it does not replace it. Domain wins when both
	// match the same token; anything else dotted (full addresses, odd
	// TLDs) is still a valid from: operand and stays a sender.
	domain := ""
	if m := domainRe.FindStringSubmatch(cmd); m != nil {
		domain = m[1]
	}
	sender := senderOf(cmd)
	if domain != "" {
		return Intent{
			Action: ActionList, TargetType: TargetDomain, Target: domain,
			OlderThanDays: olderDays, DateRange: datePhrase, Confidence: score,
		}, nil
	}
	if sender != "" {
		return Intent{
			Action: ActionList, TargetType: TargetSender, Target: sender,
			OlderThanDays: olderDays, DateRange: datePhrase, Confidence: score,
		}, nil
	}

	if m := olderPhrase.FindStringSubmatch(cmd); m != nil {
		qty := m[1]
		if qty == "a" || qty == "an" {
			qty = "1"
		}
		return Intent{
			Action: ActionList, TargetType: TargetOlderThan,
			Target: qty + " " + m[2], Confidence: score,
		}, nil
	}
	if datePhrase != "" {
		return Intent{Action: ActionList, TargetType: TargetDateRange, Target: datePhrase, Confidence: score}, nil
	}
	// Anything else lists recent mail.
	return Intent{Action: ActionList, TargetType: TargetRecent, Target: "recent", Confidence: score}, nil
}

func listCustomCategory(key string, olderDays int, datePhrase string, score int) Intent {
	return Intent{
		Action:        ActionList,
		TargetType:    TargetCustomCategory,
		Target:        key,
		OlderThanDays: olderDays,
		DateRange:     datePhrase,
		Confidence:    score,
	}
}

// extractMutation covers delete and archive, which share slot grammar.
func (p *Parser) extractMutation(cmd string, action Action, score int) (Intent, error) {
	olderDays := parseAgeDays(cmd)
	base := Intent{Action: action, OlderThanDays: olderDays, NeedsConfirmation: true, Confidence: score}

	if m := domainRe.FindStringSubmatch(cmd); m != nil {
		base.TargetType, base.Target = TargetDomain, m[1]
		return base, nil
	}
	if sender := senderOf(cmd); sender != "" {
		base.TargetType, base.Target = TargetSender, sender
		return base, nil
	}
	if strings.Contains(cmd, "promotion") {
		base.TargetType, base.Target = TargetCategory, "promotions"
		return base, nil
	}
	if verificationTokens(cmd) {
		base.TargetType, base.Target = TargetCustomCategory, "verification_codes"
		return base, nil
	}
	if shippingTokens(cmd) {
		base.TargetType, base.Target = TargetCustomCategory, "shipping_delivery"
		return base, nil
	}
	if securityTokens(cmd) {
		base.TargetType, base.Target = TargetCustomCategory, "account_security"
		return base, nil
	}
	return Intent{}, noPatternError(action, score)
}
