package eventstore

import (
	"strings"

	"git.home.luguber.info/inful/webhookcatcher/internal/search"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// searchPredicate builds a WHERE fragment requiring every term to appear in
// the body, the stored header text or the timestamp. Empty input yields no predicate.
func searchPredicate(s string) (string, []any) {
	terms := search.Terms(s)
	if len(terms) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms)*3)
	for _, term := range terms {
		// SQLite LIKE folds ASCII case only; search.Highlight folds Unicode.
		pattern := "%" + likeEscaper.Replace(term) + "%"
		clauses = append(clauses, `(body LIKE ? ESCAPE '\' OR headers LIKE ? ESCAPE '\' OR timestamp LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
