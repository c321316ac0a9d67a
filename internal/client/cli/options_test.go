package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptions(t *testing.T) {
	o, err := parseOptions([]string{
		"-a", "http://api:8080", "-song", " p1 ", "-interpreter", " Maria ", "-file", "/tmp/a.mp3",
		"-author", "Pai Joao", "-mime", "audio/mpeg", "-duration", "5000", "-token", "jwt", "-consent",
	})
	require.NoError(t, err)

	assert.Equal(t, &options{
		PontoID:     "p1",
		Interpreter: "Maria",
		FilePath:    "/tmp/a.mp3",
		Author:      "Pai Joao",
		Consent:     true,
		MimeType:    "audio/mpeg",
		DurationMs:  5000,
		Token:       "jwt",
	}, o)
}

func TestParseOptions_BadDuration(t *testing.T) {
	_, err := parseOptions([]string{"-duration", "long"})
	assert.Error(t, err)
}

func TestResolveToken(t *testing.T) {
	env := func(v string) func(string) string {
		return func(key string) string {
			if key == tokenEnv {
				return v
			}
			return ""
		}
	}
	prompted := func() (string, error) { return "typed", nil }

	tok, err := resolveToken(&options{Token: "flag"}, env("env"), prompted)
	require.NoError(t, err)
	assert.Equal(t, "flag", tok)

	tok, err = resolveToken(&options{}, env(" env "), prompted)
	require.NoError(t, err)
	assert.Equal(t, "env", tok)

	tok, err = resolveToken(&options{}, env(""), prompted)
	require.NoError(t, err)
	assert.Equal(t, "typed", tok)

	_, err = resolveToken(&options{}, env(""), func() (string, error) { return "", errors.New("no tty") })
	assert.Error(t, err)
}
