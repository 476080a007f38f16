package localize

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
)

func TestResolve(t *testing.T) {
	l, err := New("tr")
	require.NoError(t, err)

	tests := map[string]string{
		"":                "tr",
		"tr":              "tr",
		"en":              "en",
		"en-US":           "en",
		"en_GB":           "en",
		"de":              "tr",
		"fr-CH, en;q=0.8": "en",
		"garbage!!":       "tr",
	}
	for in, want := range tests {
		assert.Equal(t, want, l.Resolve(in), "locale %q", in)
	}
	assert.Equal(t, []string{"tr", "en"}, l.Locales())
}

func TestDefaultLocaleIsConfigurable(t *testing.T) {
	l, err := New("en")
	require.NoError(t, err)
	assert.Equal(t, "en", l.Resolve("xx"))

	_, err = New("ja")
	assert.Error(t, err)
}

func TestEveryKindIsTranslated(t *testing.T) {
	l, err := New("tr")
	require.NoError(t, err)
	for _, locale := range l.Locales() {
		for _, k := range diagnostic.Kinds {
			e := l.Explain(locale, diagnostic.Diagnostic{Kind: k})
			assert.NotEmpty(t, e.Explanation, "%s/%s", locale, k)
			assert.NotEmpty(t, e.Solution, "%s/%s", locale, k)
		}
	}
}

func TestExplainPrefersCategory(t *testing.T) {
	l, err := New("tr")
	require.NoError(t, err)

	zero := l.Explain("en", diagnostic.Diagnostic{Kind: diagnostic.RuntimeError, Category: "ZeroDivisionError"})
	generic := l.Explain("en", diagnostic.Diagnostic{Kind: diagnostic.RuntimeError})
	assert.NotEqual(t, generic, zero)
	assert.Contains(t, zero.Explanation, "divided by zero")

	java := l.Explain("en", diagnostic.Diagnostic{Kind: diagnostic.RuntimeError, Category: "java.lang.ArithmeticException"})
	assert.Contains(t, java.Explanation, "arithmetic")

	unknown := l.Explain("en", diagnostic.Diagnostic{Kind: diagnostic.LintIssue, Category: "no-such-symbol"})
	assert.Equal(t, l.Explain("en", diagnostic.Diagnostic{Kind: diagnostic.LintIssue}), unknown)
}

func TestMessage(t *testing.T) {
	l, err := New("tr")
	require.NoError(t, err)
	assert.Equal(t, "Kod boş olamaz.", l.Message("tr", "empty_code"))
	assert.Equal(t, "Code must not be empty.", l.Message("en", "empty_code"))
	assert.Equal(t, "missing_key", l.Message("en", "missing_key"))
}

func TestLoadRejectsBrokenCatalog(t *testing.T) {
	fsys := fstest.MapFS{
		"c/en.yaml": {Data: []byte("kinds: [unterminated")},
	}
	_, err := Load(fsys, "c", "en")
	assert.Error(t, err)
}
