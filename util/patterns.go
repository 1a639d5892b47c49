package util

import "regexp"

// InjectionPattern is one entry of the SQL-injection pattern library. Expr is
// the literal expression reported back when the pattern matches; the compiled
// form is case-insensitive.
type InjectionPattern struct {
	Expr string
	re   *regexp.Regexp
}

// Match reports whether the pattern matches anywhere in the input.
func (p InjectionPattern) Match(s string) bool {
	return p.re.MatchString(s)
}

// sqlInjectionExprs is the ordered detection library. Order matters: matched
// patterns are reported in library order. Changing this list changes detection
// behavior and is covered by tests in isolation.
var sqlInjectionExprs = []string{
	`\bunion\b\s+\bselect\b`,         // UNION SELECT
	`\bdrop\b\s+\btable\b`,           // DROP TABLE
	`\bselect\b.*\bfrom\b`,           // SELECT ... FROM
	`\binsert\b\s+\binto\b`,          // INSERT INTO
	`\bupdate\b\s+\b\w+\b\s+\bset\b`, // UPDATE ... SET
	`\bdelete\b\s+\bfrom\b`,          // DELETE FROM
	`\bcreate\b\s+\btable\b`,         // CREATE TABLE
	`\balter\b\s+\btable\b`,          // ALTER TABLE
	`\bdrop\b\s+\bdatabase\b`,        // DROP DATABASE
	`\bshutdown\b`,                   // SHUTDOWN command
	`\bexec\b(\s+|\()`,               // EXEC or EXEC()
	`\bdeclare\b`,                    // DECLARE variable
	`\bcast\b\(`,                     // CAST(...)
	`\bconvert\b\(`,                  // CONVERT(...)
	`\bbenchmark\b\s*\(`,             // MySQL BENCHMARK function
	`\bsleep\b\s*\(`,                 // Time-based SQLi
	`or\s+1\s*=\s*1`,                 // OR 1=1
	`and\s+1\s*=\s*1`,                // AND 1=1
	`--`,                             // SQL comment
	`;`,                              // Statement separator
	`'`,                              // Single quote
	`"`,                              // Double quote
	`\*/`,                            // End of multi-line comment
	`/\*`,                            // Start of multi-line comment
	`%27`,                            // URL-encoded single quote
	`%22`,                            // URL-encoded double quote
	`%3B`,                            // URL-encoded semicolon
	`%2D%2D`,                         // URL-encoded --
}

// SQLInjectionPatterns is the compiled pattern library, built once at startup
// and shared read-only across concurrent requests.
var SQLInjectionPatterns = compileInjectionPatterns()

func compileInjectionPatterns() []InjectionPattern {
	patterns := make([]InjectionPattern, 0, len(sqlInjectionExprs))
	for _, expr := range sqlInjectionExprs {
		patterns = append(patterns, InjectionPattern{
			Expr: expr,
			re:   regexp.MustCompile(`(?i)` + expr),
		})
	}
	return patterns
}
