package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sistrence/internal/ir"
	"github.com/roach88/sistrence/internal/op"
	"github.com/roach88/sistrence/internal/queryir"
)

// QueryOptions holds the flags shared by get and count.
type QueryOptions struct {
	*RootOptions
	Where []string // field<op>value
	Link  int      // -1 routes through the sharder
}

// GetOptions holds flags for the get command.
type GetOptions struct {
	QueryOptions
	Sort   []string // field or field:desc
	Fields []string
	Limit  int64
	Offset int64
	Random bool
	One    bool
}

// whereOps maps filter operators to condition kinds. Two-character
// operators are listed first so they win over their one-character prefixes.
var whereOps = []struct {
	token string
	kind  string
}{
	{"!=", "ne"},
	{">=", "gtoe"},
	{"<=", "ltoe"},
	{"^=", "starts"},
	{"$=", "ends"},
	{"*=", "contains"},
	{"~=", "regexp"},
	{"=", "eq"},
	{">", "gt"},
	{"<", "lt"},
}

// whereClause is one parsed --where filter.
type whereClause struct {
	Kind  string
	Field string
	Value any
}

// parseWhere splits a filter such as "age>=18" or "name^=A". Values are
// read as YAML scalars, so numbers and booleans keep their type; the
// pattern operators always take the value as a string. "null" turns = and
// != into null checks.
func parseWhere(expr string) (whereClause, error) {
	for i := 0; i < len(expr); i++ {
		for _, o := range whereOps {
			if !strings.HasPrefix(expr[i:], o.token) {
				continue
			}
			field := strings.TrimSpace(expr[:i])
			raw := strings.TrimSpace(expr[i+len(o.token):])
			if field == "" {
				return whereClause{}, fmt.Errorf("filter %q: field is required", expr)
			}
			return buildClause(o.kind, field, raw)
		}
	}
	return whereClause{}, fmt.Errorf("filter %q: no operator (want one of = != > >= < <= ^= $= *= ~=)", expr)
}

func buildClause(kind, field, raw string) (whereClause, error) {
	switch kind {
	case "starts", "ends", "contains", "regexp":
		return whereClause{Kind: kind, Field: field, Value: raw}, nil
	}

	var value any
	if raw != "" {
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
	} else {
		value = ""
	}

	if value == nil && raw != "" {
		switch kind {
		case "eq":
			return whereClause{Kind: "isnull", Field: field}, nil
		case "ne":
			return whereClause{Kind: "notnull", Field: field}, nil
		default:
			return whereClause{}, fmt.Errorf("filter on %s: null only compares with = or !=", field)
		}
	}
	return whereClause{Kind: kind, Field: field, Value: value}, nil
}

// parseSort reads "field" or "field:asc|desc".
func parseSort(spec string) (string, queryir.Direction, error) {
	field, dir, found := strings.Cut(spec, ":")
	if field == "" {
		return "", 0, fmt.Errorf("sort %q: field is required", spec)
	}
	if !found {
		return field, queryir.Asc, nil
	}
	switch strings.ToLower(dir) {
	case "asc":
		return field, queryir.Asc, nil
	case "desc":
		return field, queryir.Desc, nil
	default:
		return "", 0, fmt.Errorf("sort %q: direction must be asc or desc", spec)
	}
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{QueryOptions: QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "get <table>",
		Short: "Fetch rows from a table",
		Long: `Fetch rows from a table or collection.

Filters take the form field<op>value, where op is one of
  =  !=  >  >=  <  <=   comparison
  ^= $= *=             starts with, ends with, contains
  ~=                   regular expression

Examples:
  sistrence get users --where "age>=18" --sort name
  sistrence get users --where "role=admin" --fields id,name --limit 10
  sistrence get events --link 1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, opts, args[0])
		},
	}

	addQueryFlags(cmd, &opts.QueryOptions)
	cmd.Flags().StringArrayVar(&opts.Sort, "sort", nil, "sort key, field[:asc|desc] (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Fields, "fields", nil, "fields to return (default all)")
	cmd.Flags().Int64Var(&opts.Limit, "limit", 0, "maximum number of rows")
	cmd.Flags().Int64Var(&opts.Offset, "offset", 0, "rows to skip (requires --limit)")
	cmd.Flags().BoolVar(&opts.Random, "random", false, "return rows in random order")
	cmd.Flags().BoolVar(&opts.One, "one", false, "return the first matching row only")

	return cmd
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count <table>",
		Short: "Count rows in a table",
		Long: `Count the rows of a table or collection that match every filter.

Examples:
  sistrence count users
  sistrence count users --where "active=true"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(cmd, opts, args[0])
		},
	}

	addQueryFlags(cmd, opts)
	return cmd
}

func addQueryFlags(cmd *cobra.Command, opts *QueryOptions) {
	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "filter, field<op>value (repeatable)")
	cmd.Flags().IntVar(&opts.Link, "link", -1, "link id (default: route by sharding)")
}

// prepare opens the session and builds an Operation carrying the filters.
// The caller closes the returned session.
func prepare(ctx context.Context, cmd *cobra.Command, opts *QueryOptions, table string) (*Session, *op.Operation, error) {
	clauses := make([]whereClause, 0, len(opts.Where))
	for _, expr := range opts.Where {
		c, err := parseWhere(expr)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "invalid filter", err)
		}
		clauses = append(clauses, c)
	}

	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	session, err := OpenSession(ctx, opts.RootOptions, logger)
	if err != nil {
		return nil, nil, err
	}

	var o *op.Operation
	if opts.Link >= 0 {
		o, err = session.Registry.OpOn(opts.Link, table)
	} else {
		o, err = session.Registry.Op(table)
	}
	if err != nil {
		session.Close()
		return nil, nil, WrapExitError(ExitCommandError, "invalid link", err)
	}

	for _, c := range clauses {
		if c.Kind == "isnull" || c.Kind == "notnull" {
			o.Cond(c.Kind, c.Field)
			continue
		}
		o.Cond(c.Kind, c.Field, c.Value)
	}
	return session, o, nil
}

func runGet(cmd *cobra.Command, opts *GetOptions, table string) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	if opts.Offset > 0 && opts.Limit <= 0 {
		return NewExitError(ExitCommandError, "--offset requires --limit")
	}
	if opts.Random && len(opts.Sort) > 0 {
		return NewExitError(ExitCommandError, "--random and --sort are mutually exclusive")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	session, o, err := prepare(ctx, cmd, &opts.QueryOptions, table)
	if err != nil {
		return err
	}
	defer session.Close()

	for _, spec := range opts.Sort {
		field, dir, err := parseSort(spec)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid sort", err)
		}
		o.Sort(field, dir)
	}
	if opts.Random {
		o.Randomize()
	}
	if len(opts.Fields) > 0 {
		o.Fields(opts.Fields...)
	}
	if opts.Limit > 0 {
		o.Range(opts.Offset, opts.Limit)
	}

	f.VerboseLog("op %s: get %s", o.ID(), table)

	if opts.One {
		row, err := o.GetOne(ctx)
		if err != nil {
			return f.Fail(ExitFailure, "get failed", err)
		}
		if row == nil {
			return f.Rows(o.ID(), nil)
		}
		return f.Rows(o.ID(), []ir.Row{row})
	}

	rows, err := o.Get(ctx)
	if err != nil {
		return f.Fail(ExitFailure, "get failed", err)
	}
	return f.Rows(o.ID(), rows)
}

func runCount(cmd *cobra.Command, opts *QueryOptions, table string) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	session, o, err := prepare(ctx, cmd, opts, table)
	if err != nil {
		return err
	}
	defer session.Close()

	f.VerboseLog("op %s: count %s", o.ID(), table)

	n, err := o.Count(ctx)
	if err != nil {
		return f.Fail(ExitFailure, "count failed", err)
	}

	if opts.Format == "json" {
		return f.Success(map[string]any{"table": table, "count": n})
	}
	fmt.Fprintln(f.Writer, n)
	return nil
}
