package query

import "strings"

// Custom categories are hand-curated boolean expressions approximating
// semantic classes of mail Gmail does not expose natively. The keyword lists
// are tuned empirically; overlapping terms across categories (e.g. "account")
// are intentional and should not be "fixed" without product guidance.

const (
	CategoryVerificationCodes = "verification_codes"
	CategoryShippingDelivery  = "shipping_delivery"
	CategoryAccountSecurity   = "account_security"
)

// anywhereBase searches All Mail minus the Gmail categories that are almost
// entirely marketing noise for these classes.
const anywhereBase = "in:anywhere -category:promotions -category:social -category:forums"

type customCategory struct {
	base string
	// subjectTerms are OR'd inside one subject:(...) group.
	subjectTerms []string
	// extraClauses are additional pre-parenthesized groups OR'd with the
	// subject group (contextual matches, carrier domains).
	extraClauses []string
	// negativeTerms exclude marketing vocabulary that would otherwise
	// false-positive. They compile into both subject-scoped and body forms:
	// dropping the body form reintroduces the false positives.
	negativeTerms []string
}

func (c customCategory) positiveClause() string {
	groups := []string{"subject:(" + strings.Join(c.subjectTerms, " OR ") + ")"}
	groups = append(groups, c.extraClauses...)
	return "(" + strings.Join(groups, " OR ") + ")"
}

func (c customCategory) negativeClauses() []string {
	joined := strings.Join(c.negativeTerms, " OR ")
	return []string{
		"-subject:(" + joined + ")",
		"-(" + joined + ")",
	}
}

// KnownCustomCategory reports whether key names a curated category.
func KnownCustomCategory(key string) bool {
	_, ok := customCategories[key]
	return ok
}

// PrettyCategoryName returns a human-friendly name for a category key.
func PrettyCategoryName(key string) string {
	switch key {
	case CategoryVerificationCodes:
		return "verification codes"
	case CategoryShippingDelivery:
		return "shipping emails"
	case CategoryAccountSecurity:
		return "account security emails"
	}
	return strings.ReplaceAll(key, "_", " ")
}

var customCategories = map[string]customCategory{
	CategoryVerificationCodes: {
		base: anywhereBase,
		subjectTerms: []string{
			`"verification code"`, `"one time code"`, `"one-time code"`, "OTP", `"2FA"`,
			`"two-factor"`, `"2-step"`, `"security code"`, `"login code"`, "passcode",
			`"authentication code"`, `"sign-in code"`, `"sign in code"`,
			`"your verification code"`,
			// Hebrew, Chinese, Russian, French, Spanish equivalents.
			`"קוד אימות"`, `"סיסמה חד-פעמית"`, `验证码`, `"код подтверждения"`,
			`"code de vérification"`, `"código de verificación"`,
		},
		negativeTerms: []string{
			"promo", "promotion", "promotional", "coupon", "discount", "voucher",
			"offer", "sale",
		},
	},
	CategoryShippingDelivery: {
		base: anywhereBase,
		subjectTerms: []string{
			`"your order has shipped"`, `"order shipped"`, `"has shipped"`,
			`"out for delivery"`, `"tracking number"`, `"track your package"`,
			`"in transit"`, `"estimated delivery"`, `"delivery estimate"`,
			`"expected delivery"`, `"ready for pickup"`, `"ready for collection"`,
			`"משלוח"`, `"נשלחה"`, `"נשלח"`, `"מספר מעקב"`, `"בהובלה"`, `"נמסרה"`,
			`"בהגעה"`, `"איסוף"`, `"מוכן לאיסוף"`,
		},
		extraClauses: []string{
			// Broad words only count with order/package context nearby.
			"(subject:(arriving OR arrives) subject:(order OR package OR delivery OR parcel))",
			"(subject:delivered subject:(order OR package OR delivery OR parcel))",
			carrierClause,
		},
		negativeTerms: []string{
			"sale", "discount", "coupon", "promo", "promotional", "offer", "deal",
			"wishlist", "cart", "recommendations", "recommendation",
		},
	},
	CategoryAccountSecurity: {
		base: anywhereBase,
		subjectTerms: []string{
			`"security alert"`, `"security notification"`, `"account security"`,
			`"new sign in"`, `"new sign-in"`, `"new login"`, `"sign-in attempt"`,
			`"login attempt"`, `"suspicious activity"`, `"unusual activity"`,
			`"verify it's you"`, `"verify your identity"`, `"password changed"`,
			`"password reset"`, `"reset your password"`, `"2-step verification"`,
			`"two-step verification"`, `"two-factor authentication"`,
		},
		negativeTerms: []string{
			"sale", "discount", "coupon", "promo", "promotional", "offer", "deal",
			"newsletter", "receipt", "order", "purchase", "invoice", "payment",
			"transaction", "confirmation", "classroom", "course", "class",
			"assignment", "homework", "grade", "exam", "university", "school",
			"student", "tuition",
		},
	},
}

var carrierClause = func() string {
	domains := []string{
		"ups.com", "fedex.com", "dhl.com", "usps.com", "canadapost.ca",
		"royalmail.com", "israelpost.co.il", "17track.net", "aftership.com",
		"cainiao.com",
	}
	froms := make([]string, len(domains))
	for i, d := range domains {
		froms[i] = "from:*@" + d
	}
	return "(" + strings.Join(froms, " OR ") + ")"
}()
