package main

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTrimKeepsRunesIntact(t *testing.T) {
	assert.Equal(t, "short", trim("short", 10))
	assert.Equal(t, "exactly-te", trim("exactly-te", 10))
	assert.Equal(t, "abcd…", trim("abcdefgh", 5))

	// Multi-byte subjects must not be cut mid-rune.
	he := trim("קוד אימות לחשבון שלך", 8)
	assert.True(t, utf8.ValidString(he))
	assert.Equal(t, 8, len([]rune(he)))

	zh := trim("您的验证码已发送到邮箱", 6)
	assert.True(t, utf8.ValidString(zh))
	assert.Equal(t, 6, len([]rune(zh)))
}
