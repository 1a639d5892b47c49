package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func matchedExprs(input string) []string {
	var matched []string
	for _, p := range SQLInjectionPatterns {
		if p.Match(input) {
			matched = append(matched, p.Expr)
		}
	}
	return matched
}

func TestSQLInjectionPatterns_ClassicBooleanInjection(t *testing.T) {
	matched := matchedExprs("' OR 1=1 --")

	assert.Contains(t, matched, `or\s+1\s*=\s*1`)
	assert.Contains(t, matched, `--`)
	assert.Contains(t, matched, `'`)
}

func TestSQLInjectionPatterns_DropTable(t *testing.T) {
	matched := matchedExprs("a'; DROP TABLE users;--")

	assert.Contains(t, matched, `\bdrop\b\s+\btable\b`)
	assert.Contains(t, matched, `;`)
	assert.Contains(t, matched, `--`)
}

func TestSQLInjectionPatterns_CaseInsensitive(t *testing.T) {
	assert.NotEmpty(t, matchedExprs("union select password from users"))
	assert.NotEmpty(t, matchedExprs("UNION SELECT password FROM users"))
	assert.NotEmpty(t, matchedExprs("UnIoN sElEcT 1"))
}

func TestSQLInjectionPatterns_URLEncoded(t *testing.T) {
	matched := matchedExprs("name%27%3B")

	assert.Contains(t, matched, `%27`)
	assert.Contains(t, matched, `%3B`)
}

func TestSQLInjectionPatterns_TimeBased(t *testing.T) {
	assert.Contains(t, matchedExprs("1 AND sleep(5)"), `\bsleep\b\s*\(`)
	assert.Contains(t, matchedExprs("benchmark (1000000,md5(1))"), `\bbenchmark\b\s*\(`)
}

func TestSQLInjectionPatterns_BenignInput(t *testing.T) {
	for _, input := range []string{
		"john.doe@example.com",
		"plain search term",
		"42",
		"unionized workers selected a representative",
	} {
		assert.Empty(t, matchedExprs(input), "input %q should not match", input)
	}
}

func TestSQLInjectionPatterns_ReportedInLibraryOrder(t *testing.T) {
	matched := matchedExprs("'; DROP TABLE users --")

	// DROP TABLE precedes the comment and quote patterns in the library.
	var dropIdx, commentIdx int
	for i, expr := range matched {
		switch expr {
		case `\bdrop\b\s+\btable\b`:
			dropIdx = i
		case `--`:
			commentIdx = i
		}
	}
	assert.Less(t, dropIdx, commentIdx)
}
