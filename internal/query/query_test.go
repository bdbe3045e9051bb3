package query

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/mailpilot/internal/datewindow"
)

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func TestCompileSender(t *testing.T) {
	q, err := Compile(Filters{Sender: "amazon"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "(from:amazon)", q.Raw)

	q, err = Compile(Filters{Sender: "john smith"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, `(from:"john smith")`, q.Raw)
}

func TestCompileDomainWithAge(t *testing.T) {
	q, err := Compile(Filters{Domain: "amazon.com", OlderThanDays: 30}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "(from:*@amazon.com) before:2024/02/14", q.Raw)
}

func TestCompileWindow(t *testing.T) {
	w, err := datewindow.Resolve("last month", testNow)
	require.NoError(t, err)
	q, err := Compile(Filters{Sender: "github", Window: w}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "(from:github) after:2024/02/01 before:2024/03/01", q.Raw)
}

func TestCompileOlderThanWindowHasNoAfter(t *testing.T) {
	w, err := datewindow.Resolve("older than 6 months", testNow)
	require.NoError(t, err)
	q, err := Compile(Filters{Window: w}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "before:2023/09/15", q.Raw)
}

func TestCompileScopes(t *testing.T) {
	q, err := Compile(Filters{Scope: ScopeArchived}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "-in:inbox -in:spam -in:trash -in:chats -in:sent -in:drafts", q.Raw)

	q, err = Compile(Filters{Scope: ScopeAllMail}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "-in:spam -in:trash -in:chats", q.Raw)
}

func TestCompileSubjectKeywords(t *testing.T) {
	q, err := Compile(Filters{SubjectKeywords: []string{"newsletter", "digest"}}, testNow)
	require.NoError(t, err)
	assert.Equal(t, `(subject:"newsletter" OR subject:"digest")`, q.Raw)
}

func TestCompileCustomCategory(t *testing.T) {
	for _, key := range []string{CategoryVerificationCodes, CategoryShippingDelivery, CategoryAccountSecurity} {
		t.Run(key, func(t *testing.T) {
			q, err := Compile(Filters{CustomCategory: key}, testNow)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(q.Raw, "in:anywhere -category:promotions"), q.Raw)
			// Negatives must appear in both subject-scoped and body forms.
			assert.Contains(t, q.Raw, "-subject:(")
			assert.True(t, strings.Contains(q.Raw, " -("), q.Raw)
		})
	}

	_, err := Compile(Filters{CustomCategory: "no_such_category"}, testNow)
	assert.Error(t, err)
}

func TestCompileVerificationCodesContent(t *testing.T) {
	q, err := Compile(Filters{CustomCategory: CategoryVerificationCodes}, testNow)
	require.NoError(t, err)
	for _, term := range []string{`"verification code"`, "OTP", `"קוד אימות"`, `验证码`, `"code de vérification"`} {
		assert.Contains(t, q.Raw, term)
	}
	assert.Contains(t, q.Raw, "-subject:(promo OR promotion")
}

func TestCompileShippingCarriers(t *testing.T) {
	q, err := Compile(Filters{CustomCategory: CategoryShippingDelivery}, testNow)
	require.NoError(t, err)
	assert.Contains(t, q.Raw, "from:*@ups.com OR from:*@fedex.com")
	assert.Contains(t, q.Raw, "subject:delivered subject:(order OR package")
}

func TestCompileDeterministic(t *testing.T) {
	f := Filters{CustomCategory: CategoryAccountSecurity, OlderThanDays: 90}
	a, err := Compile(f, testNow)
	require.NoError(t, err)
	b, err := Compile(f, testNow)
	require.NoError(t, err)
	assert.Equal(t, a.Raw, b.Raw)
}

// Changing only the sender must change only the sender clause.
func TestCompileSenderIsolated(t *testing.T) {
	w, err := datewindow.Resolve("last week", testNow)
	require.NoError(t, err)
	a, err := Compile(Filters{Sender: "github", Window: w}, testNow)
	require.NoError(t, err)
	b, err := Compile(Filters{Sender: "amazon", Window: w}, testNow)
	require.NoError(t, err)
	assert.Equal(t,
		strings.Replace(a.Raw, "from:github", "from:amazon", 1),
		b.Raw)
}
