package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/livefir/livebind/internal/datasource"
	"github.com/livefir/livebind/transition"
)

// Render renders data onto the templates of an HTML file and prints the result. With
// -previous, that data is rendered first and -data is rendered in a transition stopped at
// -progress, which prints an intermediate frame.
func Render(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	var tf templateFlags
	var df dataFlags
	tf.register(fs)
	df.register(fs)
	previous := fs.String("previous", "", "JSON or YAML data rendered before -data")
	progress := fs.Float64("progress", 1, "transition progress of the printed frame, with -previous")
	easeName := fs.String("ease", "cubic", "transition easing: linear, quad or cubic")
	fragment := fs.Bool("fragment", false, "print only the template roots")
	minified := fs.Bool("minify", false, "minify the printed HTML")
	quiet := fs.Bool("quiet", false, "do not print the summary")
	if err := parseFlags(fs, args, stderr); err != nil {
		return err
	}
	ease, err := easeFlag(*easeName)
	if err != nil {
		return err
	}

	start := time.Now()
	logger := log.New(stderr, "", 0)
	p, err := tf.load(logger)
	if err != nil {
		return err
	}
	ctx := context.Background()
	data, err := df.load(ctx)
	if err != nil {
		return err
	}

	if *previous == "" {
		if _, err := p.engine.Render(p.templates, data); err != nil {
			return err
		}
	} else {
		before, err := datasource.File{Path: *previous}.Load(ctx)
		if err != nil {
			return err
		}
		if _, err := p.engine.Render(p.templates, before); err != nil {
			return err
		}
		tr := p.engine.Transition(time.Second, transition.WithEase(ease), transition.WithName("render"))
		if _, err := p.engine.RenderTransition(tr, p.templates, data); err != nil {
			return err
		}
		tr.Seek(*progress)
	}

	out, err := p.serialize(*fragment, *minified)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, out)

	if !*quiet {
		m := p.engine.Metrics()
		fmt.Fprintln(stderr, mutedStyle.Render(fmt.Sprintf("rendered %d template(s), %s in %s (%d entered, %d updated, %d exited)",
			p.templates.Length(), humanize.Bytes(uint64(len(out))), time.Since(start).Round(time.Microsecond),
			m.ElementsEntered, m.ElementsUpdated, m.ElementsExited)))
	}
	return nil
}
