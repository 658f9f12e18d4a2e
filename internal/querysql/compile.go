package querysql

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/roach88/sistrence/internal/cond"
	"github.com/roach88/sistrence/internal/dberr"
	"github.com/roach88/sistrence/internal/queryir"
)

// Compiler renders queryir snapshots and condition trees as SQL text.
//
// CRITICAL: every value reaches the SQL text through Value, which either
// escapes it with the connection's escape function or rejects it.
type Compiler struct {
	dialect Dialect
	escape  func(string) string
}

// NewCompiler creates a compiler for dialect d. escape is the connection's
// string escaping primitive; nil falls back to d.EscapeString.
func NewCompiler(d Dialect, escape func(string) string) *Compiler {
	if d == nil {
		d = MySQL
	}
	if escape == nil {
		escape = d.EscapeString
	}
	return &Compiler{dialect: d, escape: escape}
}

// Dialect returns the compiler's dialect.
func (c *Compiler) Dialect() Dialect {
	return c.dialect
}

// Compile converts a snapshot to one SQL statement.
func (c *Compiler) Compile(q queryir.Query) (string, error) {
	switch query := q.(type) {
	case nil:
		return "", fmt.Errorf("cannot compile nil query")
	case *queryir.Select:
		return c.compileSelect(query)
	case *queryir.Count:
		return c.compileCount(query)
	case *queryir.Insert:
		return c.compileInsert(query)
	case *queryir.Update:
		return c.compileUpdate(query)
	case *queryir.Delete:
		return c.compileDelete(query)
	case *queryir.Truncate:
		return c.dialect.Truncate(query.Table), nil
	default:
		return "", fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect builds
//
//	SELECT <fields> FROM `t` <joins> WHERE … GROUP BY … ORDER BY … LIMIT o, c
//
// The space after the table name is always written, so a WHERE clause
// follows two spaces after it.
func (c *Compiler) compileSelect(q *queryir.Select) (string, error) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(c.projection(q.Fields))
	b.WriteString(" FROM ")
	b.WriteString(c.dialect.QuoteIdent(q.Table))
	b.WriteString(" ")

	for _, j := range q.Joins {
		sql, err := c.Join(j)
		if err != nil {
			return "", fmt.Errorf("compile join %q: %w", j.Table, err)
		}
		b.WriteString(sql)
	}

	where, err := c.Where(q.Where)
	if err != nil {
		return "", err
	}
	b.WriteString(where)

	if q.GroupBy != "" {
		b.WriteString(" GROUP BY ")
		b.WriteString(c.Ident(q.GroupBy))
	}

	switch {
	case q.Random:
		b.WriteString(" ORDER BY ")
		b.WriteString(c.dialect.RandomOrder())
	case len(q.Sort) > 0:
		keys := make([]string, len(q.Sort))
		for i, s := range q.Sort {
			dir := "ASC"
			if s.Dir == queryir.Desc {
				dir = "DESC"
			}
			keys[i] = c.Ident(s.Field) + " " + dir
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(keys, ", "))
	}

	if q.Range != nil {
		b.WriteString(c.dialect.Limit(*q.Range))
	}

	return b.String(), nil
}

func (c *Compiler) compileCount(q *queryir.Count) (string, error) {
	where, err := c.Where(q.Where)
	if err != nil {
		return "", err
	}
	return "SELECT COUNT(*) FROM " + c.dialect.QuoteIdent(q.Table) + where, nil
}

func (c *Compiler) compileInsert(q *queryir.Insert) (string, error) {
	if len(q.Data) == 0 {
		return "", dberr.InvalidData("insert into %q: no fields to insert", q.Table)
	}
	cols := make([]string, len(q.Data))
	vals := make([]string, len(q.Data))
	for i, p := range q.Data {
		v, err := c.Value(p.Value)
		if err != nil {
			return "", err
		}
		cols[i] = c.dialect.QuoteIdent(p.Key)
		vals[i] = v
	}
	return c.dialect.Insert(q.Table, cols, vals), nil
}

func (c *Compiler) compileUpdate(q *queryir.Update) (string, error) {
	if len(q.Data) == 0 {
		return "", dberr.InvalidData("update %q: no fields to update", q.Table)
	}
	sets := make([]string, len(q.Data))
	for i, p := range q.Data {
		v, err := c.Value(p.Value)
		if err != nil {
			return "", err
		}
		sets[i] = c.dialect.QuoteIdent(p.Key) + "=" + v
	}
	where, err := c.Where(q.Where)
	if err != nil {
		return "", err
	}
	return "UPDATE " + c.dialect.QuoteIdent(q.Table) + " SET " + strings.Join(sets, ", ") + where, nil
}

func (c *Compiler) compileDelete(q *queryir.Delete) (string, error) {
	where, err := c.Where(q.Where)
	if err != nil {
		return "", err
	}
	return "DELETE FROM " + c.dialect.QuoteIdent(q.Table) + " " + where, nil
}

// projection renders the SELECT column list. Empty means every column.
func (c *Compiler) projection(fields []string) string {
	if len(fields) == 0 {
		return "*"
	}
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = c.Ident(f)
	}
	return strings.Join(cols, ", ")
}

// Ident quotes a possibly table-qualified column name ("t.col").
// A "*" part is left unquoted.
func (c *Compiler) Ident(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p != "*" {
			parts[i] = c.dialect.QuoteIdent(p)
		}
	}
	return strings.Join(parts, ".")
}

// Field qualifies name with qualifier when one is set.
func (c *Compiler) Field(qualifier, name string) string {
	if qualifier == "" {
		return c.dialect.QuoteIdent(name)
	}
	return c.dialect.QuoteIdent(qualifier) + "." + c.dialect.QuoteIdent(name)
}

// Where renders " WHERE a AND b" for the given conditions, or "" for none.
func (c *Compiler) Where(conds []*cond.Condition) (string, error) {
	if len(conds) == 0 {
		return "", nil
	}
	parts, err := c.conditions(conds)
	if err != nil {
		return "", err
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

// Join renders " JOIN `t`" or " JOIN `t` ON ((…) AND (…))".
func (c *Compiler) Join(j queryir.Join) (string, error) {
	sql := " JOIN " + c.dialect.QuoteIdent(j.Table)
	if len(j.On) == 0 {
		return sql, nil
	}
	parts, err := c.conditions(j.On)
	if err != nil {
		return "", err
	}
	return sql + " ON (" + strings.Join(parts, " AND ") + ")", nil
}

func (c *Compiler) conditions(conds []*cond.Condition) ([]string, error) {
	parts := make([]string, len(conds))
	for i, cd := range conds {
		sql, err := c.Condition(cd)
		if err != nil {
			return nil, err
		}
		parts[i] = sql
	}
	return parts, nil
}

var comparisonOps = map[cond.Kind]string{
	cond.FieldEquals:         "=",
	cond.FieldNotEquals:      "!=",
	cond.FieldGreater:        ">",
	cond.FieldGreaterOrEqual: ">=",
	cond.FieldLess:           "<",
	cond.FieldLessOrEqual:    "<=",
}

// Condition compiles one condition tree to a parenthesized SQL fragment.
func (c *Compiler) Condition(cd *cond.Condition) (string, error) {
	if cd == nil {
		return "", dberr.InvalidData("nil condition")
	}
	body, err := c.conditionBody(cd)
	if err != nil {
		return "", err
	}
	return "(" + body + ")", nil
}

func (c *Compiler) conditionBody(cd *cond.Condition) (string, error) {
	switch cd.Kind() {
	case cond.MergeAnd, cond.MergeOr:
		sep := " AND "
		if cd.Kind() == cond.MergeOr {
			sep = " OR "
		}
		parts, err := c.conditions(cd.Children())
		if err != nil {
			return "", err
		}
		return strings.Join(parts, sep), nil
	case cond.BoolNot:
		child, err := c.Condition(cd.Children()[0])
		if err != nil {
			return "", err
		}
		return c.dialect.Negate(child), nil
	}

	field := c.Field(cd.Qualifier(), cd.Field())

	switch cd.Kind() {
	case cond.IsNull:
		return field + " IS NULL", nil
	case cond.NotNull:
		return field + " IS NOT NULL", nil
	case cond.FieldContains, cond.FieldStarts, cond.FieldEnds:
		s, ok := scalarString(cd.Value())
		if !ok {
			return "", dberr.InvalidType(cd.Value())
		}
		pattern := escapeLike(s)
		switch cd.Kind() {
		case cond.FieldContains:
			pattern = "%" + pattern + "%"
		case cond.FieldStarts:
			pattern += "%"
		case cond.FieldEnds:
			pattern = "%" + pattern
		}
		return field + " LIKE " + c.quote(pattern) + c.dialect.LikeEscape(), nil
	case cond.FieldLike:
		v, err := c.Value(cd.Value())
		if err != nil {
			return "", err
		}
		sql := field + " LIKE " + v
		if esc, ok := cd.Escape(); ok {
			sql += " ESCAPE " + c.quote(esc)
		}
		return sql, nil
	case cond.FieldRegexp:
		v, err := c.Value(cd.Value())
		if err != nil {
			return "", err
		}
		return field + " " + c.dialect.RegexpOperator() + " " + v, nil
	}

	op, ok := comparisonOps[cd.Kind()]
	if !ok {
		return "", dberr.InvalidConditionKind(string(cd.Kind()))
	}
	v, err := c.Value(cd.Value())
	if err != nil {
		return "", err
	}
	return field + " " + op + " " + v, nil
}

// Value prepares a Go value as a SQL literal.
//
//	bool           1 / 0 (TRUE / FALSE on PostgreSQL)
//	integers       decimal
//	floats         shortest decimal with '.'; NaN and Inf are rejected
//	string         single-quoted, escaped by the connection
//	nil            NULL
//	cond.FieldRef  quoted identifier, never escaped as a value
//
// Anything else fails with INVALID_TYPE.
func (c *Compiler) Value(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		return c.dialect.Bool(val), nil
	case string:
		return c.quote(val), nil
	case cond.FieldRef:
		return c.fieldRef(val), nil
	case *cond.FieldRef:
		if val == nil {
			return "", dberr.InvalidType(v)
		}
		return c.fieldRef(*val), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return c.dialect.Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		s, ok := formatFloat(rv.Float(), rv.Type().Bits())
		if !ok {
			return "", dberr.InvalidType(v)
		}
		return s, nil
	case reflect.String:
		return c.quote(rv.String()), nil
	}
	return "", dberr.InvalidType(v)
}

func (c *Compiler) quote(s string) string {
	return "'" + c.escape(s) + "'"
}

func (c *Compiler) fieldRef(f cond.FieldRef) string {
	return c.Field(f.Table, f.Name)
}

// formatFloat renders f independent of locale. strconv never uses a
// decimal comma.
func formatFloat(f float64, bits int) (string, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return strconv.FormatFloat(f, 'g', -1, bits), true
}

// scalarString converts the operand of contains/starts/ends to text.
func scalarString(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return formatFloat(rv.Float(), rv.Type().Bits())
	}
	return "", false
}
