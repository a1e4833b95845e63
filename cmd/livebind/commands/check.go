package commands

import (
	"flag"
	"fmt"
	"io"
	"log"
)

// Check compiles every template root of an HTML file and reports the ones that fail
func Check(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	var tf templateFlags
	tf.register(fs)
	if err := parseFlags(fs, args, stderr); err != nil {
		return err
	}

	markup, err := tf.read()
	if err != nil {
		return err
	}
	p, err := tf.open(markup, log.New(stderr, "", 0))
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, titleStyle.Render("Checking "+tf.path))
	failed := 0
	for i, n := range p.templates.Nodes {
		if _, err := p.engine.Template(p.templates.Eq(i)); err != nil {
			failed++
			fmt.Fprintf(stdout, "  %s %s: %v\n", failStyle.Render("✗"), describe(n), err)
			continue
		}
		fmt.Fprintf(stdout, "  %s %s\n", okStyle.Render("✓"), describe(n))
	}

	total := p.templates.Length()
	if failed > 0 {
		return fmt.Errorf("%d of %d template(s) failed to compile", failed, total)
	}
	fmt.Fprintln(stdout, mutedStyle.Render(fmt.Sprintf("%d template(s) compiled", total)))
	return nil
}
