package emitter

import "github.com/seqc/seqc/internal/ast"

// assignIndices replicates analyzer.Checker.checkBody's traversal order
// (including the literal+pick/roll peephole pairing and the
// nested-body-before-enclosing-statement ordering for If/Match) so the
// emitter can look up analyzer.Result.StatementTypes for any given AST
// statement.
func assignIndices(body []ast.Statement, counter *int, out map[ast.Statement]int) {
	i := 0
	for i < len(body) {
		if lit, ok := body[i].(*ast.IntLiteral); ok && i+1 < len(body) {
			if call, ok := body[i+1].(*ast.WordCall); ok && (call.Name == "pick" || call.Name == "roll") {
				_ = lit
				out[body[i]] = *counter
				*counter++
				out[body[i+1]] = *counter
				*counter++
				i += 2
				continue
			}
		}

		stmt := body[i]
		switch s := stmt.(type) {
		case *ast.If:
			assignIndices(s.Then, counter, out)
			assignIndices(s.Else, counter, out)
		case *ast.Match:
			for _, arm := range s.Arms {
				assignIndices(arm.Body, counter, out)
			}
		}
		out[stmt] = *counter
		*counter++
		i++
	}
}

// buildStmtIndex computes the full statement -> index map for one
// word's body in one pass.
func buildStmtIndex(body []ast.Statement) map[ast.Statement]int {
	out := map[ast.Statement]int{}
	counter := 0
	assignIndices(body, &counter, out)
	return out
}
