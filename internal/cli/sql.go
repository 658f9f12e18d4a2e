package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// SQLOptions holds flags for the sql command.
type SQLOptions struct {
	*RootOptions
	Link int
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SQLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql <statement>",
		Short: "Run a native SQL statement",
		Long: `Run a native SQL statement on a SQL link and print the rows it returns.

The statement is sent as written; no escaping or rewriting is applied.
Document links reject raw statements.

Examples:
  sistrence sql "SELECT name FROM users WHERE id = 1"
  sistrence sql --link 2 "SHOW TABLES"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(cmd, opts, args[0])
		},
	}

	cmd.Flags().IntVar(&opts.Link, "link", 0, "link id")

	return cmd
}

func runSQL(cmd *cobra.Command, opts *SQLOptions, statement string) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	session, err := OpenSession(ctx, opts.RootOptions, newLogger(opts.RootOptions, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer session.Close()

	f.VerboseLog("link %d: %s", opts.Link, statement)

	rows, err := session.Raw(ctx, opts.Link, statement)
	if err != nil {
		return f.Fail(ExitFailure, "statement failed", err)
	}
	return f.Rows("", rows)
}

// NewLinksCommand creates the links command.
func NewLinksCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "List configured links",
		Long: `Open every configured link and list it with its backend.

Exit codes:
  0 - All links opened
  2 - Config error or a link could not be opened`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLinks(cmd, rootOpts)
		},
	}
	return cmd
}

// LinkInfo describes one open link.
type LinkInfo struct {
	ID      int    `json:"id"`
	Driver  string `json:"driver"`
	Backend string `json:"backend"`
}

func runLinks(cmd *cobra.Command, opts *RootOptions) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	session, err := OpenSession(ctx, opts, newLogger(opts, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer session.Close()

	drivers := make(map[int]string, len(session.Config.Links))
	for _, l := range session.Config.Links {
		drivers[l.ID] = l.Driver
	}

	infos := make([]LinkInfo, 0, len(drivers))
	for _, id := range session.Registry.IDs() {
		b, err := session.Registry.Backend(id)
		if err != nil {
			return f.Fail(ExitFailure, "link lookup failed", err)
		}
		infos = append(infos, LinkInfo{ID: id, Driver: drivers[id], Backend: b.Name()})
	}

	if opts.Format == "json" {
		return f.Success(infos)
	}
	for _, info := range infos {
		fmt.Fprintf(f.Writer, "%d\t%s\t%s\n", info.ID, info.Driver, info.Backend)
	}
	return nil
}
