package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/wisdom/internal/config"
	"github.com/hpungsan/wisdom/internal/errors"
	"github.com/hpungsan/wisdom/internal/ops"
	"github.com/hpungsan/wisdom/internal/web"
)

// maxStdinBytes bounds piped input (drop content, classify text).
const maxStdinBytes = 1 << 20

// deps holds what the commands need. It is nil for --help/--version.
type deps struct {
	db       *sql.DB
	cfg      *config.Config
	engine   *ops.Engine
	logger   *zap.Logger
	gatherer prometheus.Gatherer
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(d *deps) *cli.App {
	app := &cli.App{
		Name:    "wisdom",
		Usage:   "Attribution documents for narrative wisdom drops",
		Version: Version,
		Commands: []*cli.Command{
			classifyCmd(d),
			dropCmd(d),
			attributeCmd(d),
			docCmd(d),
			serveCmd(d),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// classifyCmd creates the classify command.
func classifyCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "classify",
		Usage: "Decompose narrative text (read from stdin) into the five layers",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "explain", Aliases: []string{"e"}, Usage: "Include the rule matches behind each layer"},
		},
		Action: func(c *cli.Context) error {
			text, err := readInput(c)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, d.engine.Classify(text, c.Bool("explain")))
		},
	}
}

// dropCmd groups the drop subcommands.
func dropCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "drop",
		Usage: "Store and inspect wisdom drops",
		Subcommands: []*cli.Command{
			dropAddCmd(d),
			dropFetchCmd(d),
			dropListCmd(d),
			dropViewCmd(d),
			dropImportCmd(d),
		},
	}
}

func dropAddCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Store a new drop (reads content from stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: true, Usage: "Drop title"},
			&cli.StringFlag{Name: "email", Required: true, Usage: "Author email"},
			&cli.StringFlag{Name: "author-id", Usage: "Author account id"},
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Category label"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags (order is kept)"},
			&cli.StringFlag{Name: "created-at", Usage: "Creation time: 2006-01-02 or RFC3339 (default: now)"},
		},
		Action: func(c *cli.Context) error {
			content, err := readInput(c)
			if err != nil {
				return outputError(err)
			}

			var createdAt *int64
			if c.IsSet("created-at") {
				t, err := parseTime(c.String("created-at"))
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				createdAt = &t
			}

			output, err := ops.StoreDrop(c.Context, d.db, d.cfg, ops.StoreDropInput{
				Title:       c.String("title"),
				Content:     content,
				AuthorEmail: c.String("email"),
				AuthorID:    c.String("author-id"),
				Category:    c.String("category"),
				Tags:        parseTags(c.String("tags")),
				CreatedAt:   createdAt,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

func dropFetchCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a drop by id",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-content", Usage: "Exclude content from output"},
		},
		Action: func(c *cli.Context) error {
			id, err := parseIDArg(c)
			if err != nil {
				return outputError(err)
			}

			input := ops.FetchDropInput{ID: id}
			if c.Bool("no-content") {
				includeContent := false
				input.IncludeContent = &includeContent
			}

			output, err := ops.FetchDrop(c.Context, d.db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

func dropListCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List drops, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Filter by category"},
			&cli.StringFlag{Name: "author", Usage: "Filter by author email"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListDrops(c.Context, d.db, ops.ListDropsInput{
				Category:    c.String("category"),
				AuthorEmail: c.String("author"),
				Limit:       c.Int("limit"),
				Offset:      c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

func dropViewCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "view",
		Usage:     "Record one view of a drop",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := parseIDArg(c)
			if err != nil {
				return outputError(err)
			}

			if err := ops.RecordDropView(c.Context, d.db, id); err != nil {
				return outputError(err)
			}

			includeContent := false
			drop, err := ops.FetchDrop(c.Context, d.db, ops.FetchDropInput{ID: id, IncludeContent: &includeContent})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, map[string]any{"id": drop.ID, "views": drop.Views})
		},
	}
}

func dropImportCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import drops from a YAML seed file (all or nothing)",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("seed file path is required"))
			}

			output, err := ops.ImportDrops(c.Context, d.db, d.cfg, ops.ImportDropsInput{Path: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			if err := outputJSON(c, output); err != nil {
				return err
			}
			if len(output.Errors) > 0 {
				return cli.Exit(fmt.Sprintf("[%s] %d record(s) rejected, nothing imported", errors.ErrInvalidRequest, len(output.Errors)), 1)
			}
			return nil
		},
	}
}

// attributeCmd creates the attribute command.
func attributeCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "attribute",
		Usage:     "Generate the attribution document for a drop",
		ArgsUsage: "<drop-id>",
		Action: func(c *cli.Context) error {
			id, err := parseIDArg(c)
			if err != nil {
				return outputError(err)
			}

			output, err := d.engine.Generate(c.Context, id)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

// docCmd groups the attribution document subcommands.
func docCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "doc",
		Usage: "Inspect attribution documents",
		Subcommands: []*cli.Command{
			docFetchCmd(d),
			docListCmd(d),
			docDownloadCmd(d),
			docVerifyCmd(d),
		},
	}
}

func docFetchCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a document by id (not counted as a download)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-content", Usage: "Exclude content from output"},
		},
		Action: func(c *cli.Context) error {
			input := ops.FetchDocumentInput{ID: c.Args().First()}
			if c.Bool("no-content") {
				includeContent := false
				input.IncludeContent = &includeContent
			}

			output, err := ops.FetchDocument(c.Context, d.db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

func docListCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List the documents of a drop, newest first",
		ArgsUsage: "<drop-id>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			id, err := parseIDArg(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.ListDocuments(c.Context, d.db, ops.ListDocumentsInput{
				WisdomID: id,
				Limit:    c.Int("limit"),
				Offset:   c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

func docDownloadCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "download",
		Usage:     "Download a document's canonical content (counts as a download)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output .md path, or - for stdout (default: ~/.wisdom/exports/<file>)"},
		},
		Action: func(c *cli.Context) error {
			id := c.Args().First()

			if c.String("output") == "-" {
				output, err := ops.DownloadDocument(c.Context, d.db, id)
				if err != nil {
					return outputError(err)
				}
				_, err = io.WriteString(c.App.Writer, output.Document.Content)
				return err
			}

			output, err := ops.ExportDocument(c.Context, d.db, d.cfg, ops.ExportDocumentInput{
				ID:   id,
				Path: c.String("output"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c, output)
		},
	}
}

func docVerifyCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Recompute a document's hash and compare it with the stored one",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.VerifyDocument(c.Context, d.db, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			if err := outputJSON(c, output); err != nil {
				return err
			}
			if !output.Valid {
				return cli.Exit("document hash mismatch", 1)
			}
			return nil
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Interface to listen on (default from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on (default from config)"},
		},
		Action: func(c *cli.Context) error {
			cfg := *d.cfg
			if bind := c.String("bind"); bind != "" {
				cfg.HTTPBind = bind
			}
			if c.IsSet("port") {
				cfg.HTTPPort = c.Int("port")
			}

			srv, err := web.NewServer(d.db, &cfg, web.Options{
				Engine:   d.engine,
				Logger:   d.logger,
				Gatherer: d.gatherer,
				Version:  Version,
			})
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return web.Run(ctx, srv, d.logger)
		},
	}
}

// Helper functions

// outputJSON marshals result to the app writer as JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if wErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", wErr.Code, wErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// readInput reads piped input from the app reader.
// An interactive terminal on stdin is rejected instead of blocking.
func readInput(c *cli.Context) (string, error) {
	if f, ok := c.App.Reader.(*os.File); ok && !hasPipedData(f) {
		return "", errors.NewInvalidRequest("input must be piped via stdin")
	}
	return readStdin(c.App.Reader, maxStdinBytes)
}

// hasPipedData returns true if f is not a terminal.
func hasPipedData(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from r.
func readStdin(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewInvalidRequest(fmt.Sprintf("input exceeds %d bytes", limit))
	}
	return string(data), nil
}

// parseIDArg reads the first positional argument as a drop id.
func parseIDArg(c *cli.Context) (int64, error) {
	if c.NArg() < 1 {
		return 0, errors.NewInvalidRequest("drop id is required")
	}
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("invalid drop id: %q", c.Args().First()))
	}
	return id, nil
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// parseTime accepts 2006-01-02 (midnight UTC) or RFC3339.
func parseTime(s string) (int64, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Unix(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix(), nil
	}
	return 0, fmt.Errorf("invalid time %q: want 2006-01-02 or RFC3339", s)
}
