package testing

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

var chromeNames = []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome", "headless-shell"}

// ChromeAvailable reports whether a Chrome binary is on the PATH
func ChromeAvailable() bool {
	for _, name := range chromeNames {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

// Browser is a headless Chrome tab that records console output
type Browser struct {
	Ctx context.Context

	mu      sync.Mutex
	console []string
}

// NewBrowser starts headless Chrome for the test. It skips the test in short mode or when
// Chrome is not installed.
func NewBrowser(t *testing.T, timeout time.Duration) *Browser {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping e2e browser test in short mode")
	}
	if !ChromeAvailable() {
		t.Skip("Chrome not available, skipping e2e browser test")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx)
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	t.Cleanup(func() {
		cancelTimeout()
		cancelCtx()
		cancelAlloc()
	})

	b := &Browser{Ctx: ctx}
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		if e, ok := ev.(*runtime.EventConsoleAPICalled); ok {
			b.mu.Lock()
			for _, arg := range e.Args {
				b.console = append(b.console, fmt.Sprintf("[Console] %s", arg.Value))
			}
			b.mu.Unlock()
		}
	})
	return b
}

// Console answers the console messages logged so far
func (b *Browser) Console() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.console...)
}

// Run runs actions in the tab, logging the console output when they fail
func (b *Browser) Run(t *testing.T, actions ...chromedp.Action) {
	t.Helper()
	if err := chromedp.Run(b.Ctx, actions...); err != nil {
		t.Logf("console:\n%s", strings.Join(b.Console(), "\n"))
		t.Fatalf("browser run failed: %v", err)
	}
}

// WaitForAttribute polls until the element matching selector has attr set to value
func WaitForAttribute(selector, attr, value string, timeout time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		script := fmt.Sprintf(`(() => {
			const el = document.querySelector(%q);
			return !!el && el.getAttribute(%q) === %q;
		})()`, selector, attr, value)

		start := time.Now()
		for {
			var ok bool
			if err := chromedp.Evaluate(script, &ok).Do(ctx); err != nil {
				return fmt.Errorf("failed to check %s[%s]: %w", selector, attr, err)
			}
			if ok {
				return nil
			}
			if time.Since(start) > timeout {
				return fmt.Errorf("timeout waiting for %s[%s=%q]", selector, attr, value)
			}
			time.Sleep(10 * time.Millisecond)
		}
	})
}

// ValidateNoTemplateTags checks that no template tag delimited by open survived in the
// HTML of the element matching selector
func ValidateNoTemplateTags(selector, open string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var innerHTML string
		if err := chromedp.InnerHTML(selector, &innerHTML, chromedp.ByQuery).Do(ctx); err != nil {
			return fmt.Errorf("failed to get innerHTML of %s: %w", selector, err)
		}
		if idx := strings.Index(innerHTML, open); idx >= 0 {
			start := max(0, idx-50)
			end := min(len(innerHTML), idx+100)
			return fmt.Errorf("raw template tag found in %s. Context: ...%s...", selector, innerHTML[start:end])
		}
		return nil
	})
}
