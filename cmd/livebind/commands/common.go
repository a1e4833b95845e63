package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/livefir/livebind"
	"github.com/livefir/livebind/internal/datasource"
	"github.com/livefir/livebind/internal/dom"
	"github.com/livefir/livebind/transition"
	"golang.org/x/net/html"
)

const defaultSelector = "[data-template]"

// ErrUsage marks errors caused by bad command line arguments
var ErrUsage = errors.New("invalid arguments")

// templateFlags locate and configure the templates of an HTML file
type templateFlags struct {
	path     string
	selector string
	options  string
}

func (f *templateFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.path, "template", "", "HTML file holding the templates")
	fs.StringVar(&f.selector, "select", defaultSelector, "CSS selector of the template roots (default: children of body when nothing matches)")
	fs.StringVar(&f.options, "options", "", "YAML file with template options")
}

// page is a parsed HTML file and the engine its templates are compiled with
type page struct {
	engine    *livebind.Engine
	doc       *goquery.Document
	templates *goquery.Selection
}

func (f *templateFlags) read() ([]byte, error) {
	if f.path == "" {
		return nil, fmt.Errorf("%w: -template is required", ErrUsage)
	}
	markup, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}
	return markup, nil
}

// open parses markup and finds the template roots without compiling them
func (f *templateFlags) open(markup []byte, logger *log.Logger) (*page, error) {
	engineOpts := []livebind.EngineOption{livebind.WithLogger(logger)}
	if f.options != "" {
		options, err := livebind.LoadOptions(f.options)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, livebind.WithDefaultOptions(livebind.WithOptions(options)))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(markup)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	templates := doc.Find(f.selector)
	if templates.Length() == 0 {
		if f.selector != defaultSelector {
			return nil, fmt.Errorf("no element matches %q", f.selector)
		}
		templates = doc.Find("body").Children()
	}
	return &page{engine: livebind.New(engineOpts...), doc: doc, templates: templates}, nil
}

// load reads, parses and compiles the templates
func (f *templateFlags) load(logger *log.Logger) (*page, error) {
	markup, err := f.read()
	if err != nil {
		return nil, err
	}
	p, err := f.open(markup, logger)
	if err != nil {
		return nil, err
	}
	if _, err := p.engine.Template(p.templates); err != nil {
		return nil, err
	}
	return p, nil
}

// serialize writes the whole document, or only the template roots when fragment is set
func (p *page) serialize(fragment, minified bool) (string, error) {
	var out string
	if fragment {
		parts := make([]string, 0, p.templates.Length())
		for _, n := range p.templates.Nodes {
			s, err := dom.Render(n)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		out = strings.Join(parts, "\n")
	} else {
		s, err := dom.Render(p.doc.Nodes[0])
		if err != nil {
			return "", err
		}
		out = s
	}
	if minified {
		out = dom.Minify(out)
	}
	return out, nil
}

// body answers the body element of the document
func (p *page) body() *html.Node {
	if body := p.doc.Find("body"); body.Length() > 0 {
		return body.Nodes[0]
	}
	return p.doc.Nodes[0]
}

// dataFlags select where render data comes from
type dataFlags struct {
	file       string
	sqlite     string
	query      string
	migrations string
}

func (f *dataFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.file, "data", "", "JSON or YAML data file")
	fs.StringVar(&f.sqlite, "sqlite", "", "SQLite database to query instead of a data file")
	fs.StringVar(&f.query, "query", "", "SQL query whose rows are rendered")
	fs.StringVar(&f.migrations, "migrations", "", "goose migrations applied to the database first")
}

// load answers the render data. Without a source the data is nil.
func (f *dataFlags) load(ctx context.Context) (any, error) {
	switch {
	case f.sqlite != "":
		if f.query == "" {
			return nil, fmt.Errorf("%w: -query is required with -sqlite", ErrUsage)
		}
		var opts []datasource.SQLiteOption
		if f.migrations != "" {
			opts = append(opts, datasource.WithMigrations(f.migrations))
		}
		db, err := datasource.OpenSQLite(f.sqlite, opts...)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return datasource.QuerySource{DB: db, Query: f.query}.Load(ctx)
	case f.file != "":
		return datasource.File{Path: f.file}.Load(ctx)
	}
	return nil, nil
}

var eases = map[string]transition.Ease{
	"linear": transition.Linear,
	"quad":   transition.QuadInOut,
	"cubic":  transition.CubicInOut,
}

func easeFlag(name string) (transition.Ease, error) {
	ease, ok := eases[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown ease %q (expected linear, quad or cubic)", ErrUsage, name)
	}
	return ease, nil
}

// parseFlags parses args, printing usage to out on failure
func parseFlags(fs *flag.FlagSet, args []string, out io.Writer) error {
	fs.SetOutput(out)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

// describe names an element like a CSS selector, "ul#list.items"
func describe(n *html.Node) string {
	var b strings.Builder
	b.WriteString(n.Data)
	if id, ok := dom.Attr(n, "id"); ok && id != "" {
		b.WriteString("#" + id)
	}
	for _, class := range dom.Classes(n) {
		b.WriteString("." + class)
	}
	return b.String()
}
