package validator

import (
	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/types/parser_driver" // Register TiDB parser driver.
	"github.com/pkg/errors"
)

// ErrNotQuery reports SQL that parses but is not a single read-only query.
var ErrNotQuery = errors.New("statement is not a query")

// Validator wraps the TiDB parser for SQL validation. It is not safe for
// concurrent use.
type Validator struct {
	parser *parser.Parser

	checked int
	failed  int
}

// New returns a Validator instance.
func New() *Validator {
	return &Validator{parser: parser.New()}
}

// Validate parses a SQL statement and returns any syntax error.
func (v *Validator) Validate(sql string) error {
	_, err := v.Query(sql)
	return err
}

// Query parses sql and requires exactly one SELECT or set operation.
func (v *Validator) Query(sql string) (ast.StmtNode, error) {
	v.checked++
	node, err := v.parser.ParseOneStmt(sql, "", "")
	if err != nil {
		v.failed++
		return nil, errors.Wrap(err, "parse compiled sql")
	}
	switch node.(type) {
	case *ast.SelectStmt, *ast.SetOprStmt:
		return node, nil
	}
	v.failed++
	return nil, errors.Wrapf(ErrNotQuery, "%T", node)
}

// Stats returns how many statements were checked and how many failed.
func (v *Validator) Stats() (checked, failed int) {
	return v.checked, v.failed
}
