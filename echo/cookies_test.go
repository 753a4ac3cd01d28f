package echo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCookies(t *testing.T) {
	assert.Equal(t, map[string]string{"session": "abc123", "theme": "dark"}, ParseCookies("session=abc123; theme=dark"))
	assert.Equal(t, map[string]string{}, ParseCookies(""))
	assert.Equal(t, map[string]string{"a": "1", "c": "x=y"}, ParseCookies(" a = 1 ;malformed; c=x=y"))
	assert.Equal(t, map[string]string{"a": "first"}, ParseCookies("a=first; a=second"))
	assert.Equal(t, map[string]string{"empty": ""}, ParseCookies("empty=; =nokey"))
}
