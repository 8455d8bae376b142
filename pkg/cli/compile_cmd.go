package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tenantql/internal/compiler"
	"tenantql/internal/query"
)

type compileOptions struct {
	teamID       int64
	dialect      string
	files        []string
	settings     []string
	placeholders []string
	legacy       bool
}

func newCompileCmd(a *app) *cobra.Command {
	var opts compileOptions

	cmd := &cobra.Command{
		Use:   "compile [QUERY...]",
		Short: "Compile queries to SQL",
		Long: `Compile one or more queries. Each argument is a query; "-" reads one
query from stdin and --file reads one query per file. Several queries are
compiled concurrently and reported in argument order.`,
		Example: `  tenantql compile --team 2 "SELECT event, count() FROM events GROUP BY event"
  tenantql compile --dialect source -f report.sql
  echo "SELECT 1" | tenantql compile --team 2 -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := opts.requests(cmd, args)
			if err != nil {
				return err
			}

			svc, closeSvc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer closeSvc() //nolint:errcheck

			if len(reqs) == 1 {
				res, err := svc.Compile(cmd.Context(), reqs[0])
				if err != nil {
					return err
				}
				return render(cmd, res, func(w io.Writer) error { return printResult(w, res) })
			}

			results, err := svc.CompileBatch(cmd.Context(), reqs)
			if err != nil {
				return err
			}
			return renderBatch(cmd, results)
		},
	}

	cmd.Flags().Int64VarP(&opts.teamID, "team", "t", 0, "Team id every table is scoped to")
	cmd.Flags().StringVarP(&opts.dialect, "dialect", "d", string(query.DialectExecution), "Output dialect (source, execution)")
	cmd.Flags().StringArrayVarP(&opts.files, "file", "f", nil, "Read a query from a file (repeatable)")
	cmd.Flags().StringArrayVar(&opts.settings, "setting", nil, "Append key=value to the SETTINGS clause (repeatable)")
	cmd.Flags().StringArrayVar(&opts.placeholders, "placeholder", nil, "Bind {name} to a source expression, as name=expr (repeatable)")
	cmd.Flags().BoolVar(&opts.legacy, "legacy", false, "Print person properties the way legacy insights expect them")

	return cmd
}

func (o *compileOptions) requests(cmd *cobra.Command, args []string) ([]compiler.Request, error) {
	dialect, err := query.ParseDialect(o.dialect)
	if err != nil {
		return nil, err
	}
	settings, err := parseSettings(o.settings)
	if err != nil {
		return nil, err
	}
	placeholders, err := parsePlaceholders(o.placeholders)
	if err != nil {
		return nil, err
	}

	var sources []string
	for _, arg := range args {
		if arg != "-" {
			sources = append(sources, arg)
			continue
		}
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		sources = append(sources, string(b))
	}
	for _, path := range o.files {
		b, err := os.ReadFile(path) //nolint:gosec // path is user-provided
		if err != nil {
			return nil, fmt.Errorf("read query file: %w", err)
		}
		sources = append(sources, string(b))
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no query given: pass it as an argument, with --file, or as - for stdin")
	}

	reqs := make([]compiler.Request, len(sources))
	for i, sql := range sources {
		reqs[i] = compiler.Request{
			SQL:               strings.TrimSpace(sql),
			TeamID:            o.teamID,
			Dialect:           dialect,
			Placeholders:      placeholders,
			Settings:          settings,
			LegacyTranslation: o.legacy,
		}
	}
	return reqs, nil
}

func printResult(w io.Writer, res *compiler.Result) error {
	if _, err := fmt.Fprintln(w, res.SQL); err != nil {
		return err
	}
	if len(res.Params) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	rows := make([][]string, len(res.Params))
	for i, p := range res.Params {
		rows[i] = []string{p.Name, fmt.Sprintf("%T", p.Value), fmt.Sprint(p.Value)}
	}
	return printTable(w, []string{"param", "type", "value"}, rows)
}

// batchEntry is the json/yaml shape of one batch result.
type batchEntry struct {
	Index  int              `json:"index" yaml:"index"`
	Result *compiler.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string           `json:"error,omitempty" yaml:"error,omitempty"`
}

func renderBatch(cmd *cobra.Command, results []compiler.BatchResult) error {
	entries := make([]batchEntry, len(results))
	var (
		failed   int
		firstErr error
	)
	for i, r := range results {
		entries[i] = batchEntry{Index: i, Result: r.Result}
		if r.Err != nil {
			entries[i].Error = r.Err.Error()
			if firstErr == nil {
				firstErr = r.Err
			}
			failed++
		}
	}

	err := render(cmd, entries, func(w io.Writer) error {
		for i, e := range entries {
			if i > 0 {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "-- query %d\n", e.Index); err != nil {
				return err
			}
			if e.Error != "" {
				if _, err := fmt.Fprintf(w, "error: %s\n", e.Error); err != nil {
					return err
				}
				continue
			}
			if err := printResult(w, e.Result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed to compile, first: %w", failed, len(results), firstErr)
	}
	return nil
}
