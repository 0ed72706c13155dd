package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oakwood-commons/rowpick/internal/cel"
	"github.com/oakwood-commons/rowpick/internal/formatter"
	"github.com/oakwood-commons/rowpick/internal/limiter"
	"github.com/oakwood-commons/rowpick/internal/ui"
	"github.com/oakwood-commons/rowpick/pkg/datasource"
	"github.com/oakwood-commons/rowpick/pkg/loader"
	"github.com/oakwood-commons/rowpick/pkg/logger"
	"github.com/oakwood-commons/rowpick/pkg/picker"
	"github.com/oakwood-commons/rowpick/pkg/selection"
	"github.com/oakwood-commons/rowpick/pkg/settings"
	"github.com/oakwood-commons/rowpick/pkg/tabular"
)

var rootCtx = context.Background()

// errCancelled is returned when the interactive picker is left without confirming.
var errCancelled = &exitError{code: 130, err: errors.New("selection cancelled")}

// exitError carries the process exit code of a failed run.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// usageError marks err as a flag or argument problem (exit code 2).
func usageError(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: 2, err: err}
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

type rootFlags struct {
	columns     []string
	titles      []string
	json        bool
	format      string
	encoding    string
	filter      string
	sort        []string
	search      string
	selectSteps string
	mode        string
	interactive bool
	output      string
	all         bool
	rowNumbers  bool
	limit       int
	offset      int
	tail        int
	configFile  string
	debug       bool
	noColor     bool
	debounce    time.Duration
	prompt      string
	description string
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	var cfg Config

	cmd := &cobra.Command{
		Use:   settings.CliBinaryName + " [source]",
		Short: "Pick rows from a table",
		Long:  helpAbout(),
		Example: "\n  rowpick people.csv -i\n" +
			"  rowpick people.json --sort age:desc --limit 5\n" +
			"  cat people.tsv | rowpick -c name,city --search bos --select 0,shift:2 -o json\n" +
			"  rowpick https://example.com/rows.ndjson --filter '_.age > 30'\n",
		Args: func(cmd *cobra.Command, args []string) error {
			return usageError(cobra.MaximumNArgs(1)(cmd, args))
		},
		Version:       cliVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var level int8
			if f.debug {
				level = -1
			}
			lgr := logger.Get(level)
			lgr = logger.WithValues(lgr, logger.RootCommandKey, settings.CliBinaryName, logger.SubCommandKey, cmd.Name())
			rootCtx = logger.WithLogger(cmd.Context(), lgr)

			loaded, err := loadMergedConfig(resolveConfigPath(f.configFile))
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			source := ""
			if len(args) == 1 {
				source = args[0]
			}
			return runPick(cmd, source, f, cfg)
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	flags := cmd.Flags()
	flags.StringSliceVarP(&f.columns, "columns", "c", nil, "table schema, comma separated (default: config, then the source header or record keys)")
	flags.StringArrayVar(&f.titles, "title", nil, "display title of a column as COL=Title (repeatable)")
	flags.BoolVar(&f.json, "json", false, "treat the source as a JSON array of objects")
	flags.StringVar(&f.format, "format", "", "format of stdin: csv, tsv, json, ndjson, yaml or toml (default: detected)")
	flags.StringVar(&f.encoding, "encoding", "", "charset of the source, e.g. ISO-8859-1 (default UTF-8)")
	flags.StringVar(&f.filter, "filter", "", "CEL predicate over the row '_' applied while loading")
	flags.StringArrayVar(&f.sort, "sort", nil, "sort by COL[:asc|desc] (repeatable, first key wins)")
	flags.StringVar(&f.search, "search", "", "initial search query")
	flags.StringVar(&f.selectSteps, "select", "", "click script over visible positions, e.g. '0,shift:3,ctrl:7'")
	flags.StringVar(&f.mode, "mode", "", "selection mode: single or multi")
	flags.BoolVarP(&f.interactive, "interactive", "i", false, "pick rows in the terminal")
	flags.StringVarP(&f.output, "output", "o", "", fmt.Sprintf("output format: %v", formatter.Formats()))
	flags.BoolVar(&f.all, "all", false, "print every visible row instead of the selection")
	flags.BoolVar(&f.rowNumbers, "row-numbers", false, "prefix table output with row numbers")
	flags.IntVar(&f.limit, "limit", 0, "print at most N rows")
	flags.IntVar(&f.offset, "offset", 0, "skip the first N rows")
	flags.IntVar(&f.tail, "tail", 0, "print only the last N rows")
	flags.DurationVar(&f.debounce, "debounce", 0, "search quiet period (default from config)")
	flags.StringVar(&f.prompt, "prompt", "", "title shown above the interactive table")
	flags.StringVar(&f.description, "description", "", "description shown under the title")

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&f.configFile, "config-file", "", "config file (default $XDG_CONFIG_HOME/rowpick/config.yaml)")
	persistent.BoolVar(&f.debug, "debug", false, "enable debug logging")
	persistent.BoolVar(&f.noColor, "no-color", false, "disable colors")

	cmd.AddCommand(newVersionCmd(), newConfigCmd(func() Config { return cfg }))
	return cmd
}

var rootCmd = newRootCmd()

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// pickSettings are the flag values after config defaults are applied.
type pickSettings struct {
	mode     selection.Mode
	output   formatter.Format
	input    loader.Format
	debounce time.Duration
	limits   limiter.Config
	clicks   []click
	noColor  bool
}

func resolveSettings(flags *pflag.FlagSet, f *rootFlags, cfg Config) (pickSettings, error) {
	var s pickSettings

	s.limits = limiter.Config{Limit: f.limit, Offset: f.offset, Tail: f.tail}
	if err := s.limits.Validate(); err != nil {
		return s, err
	}

	mode := f.mode
	if !flags.Changed("mode") && cfg.Picker.Mode != nil {
		mode = *cfg.Picker.Mode
	}
	s.mode = selection.Multi
	if mode != "" {
		m, err := selection.ParseMode(mode)
		if err != nil {
			return s, err
		}
		s.mode = m
	}

	output := f.output
	if !flags.Changed("output") && cfg.Picker.Output != nil {
		output = *cfg.Picker.Output
	}
	format, err := formatter.ParseFormat(output)
	if err != nil {
		return s, err
	}
	s.output = format

	if s.input, err = parseInputFormat(f.format); err != nil {
		return s, err
	}

	s.debounce = f.debounce
	if !flags.Changed("debounce") && cfg.Picker.DebounceMS != nil {
		s.debounce = time.Duration(*cfg.Picker.DebounceMS) * time.Millisecond
	}
	if s.debounce < 0 {
		return s, fmt.Errorf("--debounce must be non-negative, got %s", s.debounce)
	}

	if s.clicks, err = parseClicks(f.selectSteps); err != nil {
		return s, err
	}
	if f.interactive && f.all {
		return s, errors.New("--all cannot be combined with --interactive")
	}

	s.noColor = f.noColor
	if !flags.Changed("no-color") && cfg.Picker.NoColor != nil {
		s.noColor = *cfg.Picker.NoColor
	}
	return s, nil
}

func runPick(cmd *cobra.Command, source string, f *rootFlags, cfg Config) error {
	s, err := resolveSettings(cmd.Flags(), f, cfg)
	if err != nil {
		return usageError(err)
	}

	run := settings.NewCliParams()
	if f.debug {
		run.MinLogLevel = -1
	}
	run.NoColor = s.noColor
	run.Interactive = f.interactive
	run.Output = string(s.output)
	ctx := settings.IntoContext(rootCtx, run)
	lgr := logger.FromContext(ctx)

	defs, err := parseTitles(f.titles, cfg.ColumnDefs)
	if err != nil {
		return usageError(err)
	}
	dsCfg := datasource.Config{ColumnDefs: defs, JSON: f.json}
	if err := applySource(&dsCfg, source, cmd.InOrStdin(), s.input); err != nil {
		return err
	}

	ld := &loader.FileLoader{Encoding: f.encoding}
	cols := f.columns
	if !cmd.Flags().Changed("columns") {
		cols = cfg.Columns
	}
	if len(cols) == 0 {
		if cols, err = inferColumns(ctx, &dsCfg, ld); err != nil {
			return err
		}
		// The inferred source already holds decoded text.
		ld = &loader.FileLoader{}
		lgr.V(1).Info("columns inferred", "columns", cols)
	}
	if len(cols) == 0 {
		return usageError(errors.New("no columns: pass --columns or configure columns"))
	}
	dsCfg.Columns = cols
	dsCfg.Loader = ld

	if f.filter != "" {
		pred, err := cel.Compile(f.filter)
		if err != nil {
			return usageError(fmt.Errorf("--filter: %w", err))
		}
		dsCfg.Filter = pred.Filter(ctx)
	}
	keys, err := parseSortKeys(f.sort, cols)
	if err != nil {
		return usageError(err)
	}
	dsCfg.Sort = comparator(keys)

	ds, err := datasource.New(dsCfg)
	if err != nil {
		return err
	}

	title, description := f.prompt, f.description
	if title == "" && cfg.Picker.Title != nil {
		title = *cfg.Picker.Title
	}
	if description == "" && cfg.Picker.Description != nil {
		description = *cfg.Picker.Description
	}
	opts := []picker.Option{
		picker.WithMode(s.mode),
		picker.WithDebounce(s.debounce),
		picker.WithTitle(title),
		picker.WithDescription(description),
	}
	var events *ui.FilterEvents
	if f.interactive {
		events = ui.NewFilterEvents()
		opts = append(opts, picker.WithOnFilterChange(events.Notify))
	}
	p := picker.New(ds, opts...)
	defer p.Remove()

	if err := p.Build(ctx); err != nil {
		return err
	}
	if !p.Loaded() {
		name := source
		if loc, ok := ds.Locator(); ok {
			name = loc.Name()
		}
		return fmt.Errorf("no data available from %s", name)
	}
	if f.search != "" {
		p.Search(f.search)
		p.FlushSearch()
	}
	if err := playClicks(p, s.clicks); err != nil {
		return usageError(err)
	}

	var rows []tabular.Row
	switch {
	case f.interactive:
		rows, err = pickInteractive(ctx, p, events, s, cfg)
		if err != nil {
			return err
		}
	case f.all || len(s.clicks) == 0:
		rows = p.VisibleRows()
	default:
		rows = p.OK()
	}

	rows = limiter.Apply(s.limits, rows)
	lgr.V(1).Info("rendering rows", logger.RowsKey, len(rows), logger.FormatKey, string(s.output))
	return formatter.Render(cmd.OutOrStdout(), rows, formatter.Options{
		Format:     s.output,
		Columns:    p.Columns(),
		Defs:       p.ColumnDefs(),
		NoColor:    s.noColor,
		RowNumbers: f.rowNumbers,
	})
}

func pickInteractive(ctx context.Context, p *picker.Picker, events *ui.FilterEvents, s pickSettings, cfg Config) ([]tabular.Row, error) {
	keys, err := cfg.keyBindings()
	if err != nil {
		return nil, err
	}
	theme := cfg.Theme.uiTheme()
	progOpts, cleanup := terminalOptions(ctx)
	defer cleanup()

	res, err := ui.Run(ctx, p, events, ui.Options{
		NoColor:        s.noColor,
		Theme:          &theme,
		Keys:           keys,
		ProgramOptions: progOpts,
	})
	if err != nil {
		return nil, err
	}
	if !res.Confirmed {
		return nil, errCancelled
	}
	return res.Rows, nil
}
