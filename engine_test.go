package livebind

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/livefir/livebind/filter"
	"github.com/livefir/livebind/internal/dom"
	"github.com/livefir/livebind/transition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func parse(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

// compile parses markup and compiles the element matching selector
func compile(t *testing.T, e *Engine, markup, selector string) (*goquery.Document, *goquery.Selection) {
	t.Helper()
	doc := parse(t, markup)
	sel, err := e.Template(doc.Find(selector))
	require.NoError(t, err)
	require.Equal(t, 1, sel.Length(), "selector %s", selector)
	return doc, sel
}

func texts(sel *goquery.Selection) []string {
	var result []string
	sel.Each(func(_ int, s *goquery.Selection) {
		result = append(result, s.Text())
	})
	return result
}

func quietEngine(opts ...EngineOption) (*Engine, *bytes.Buffer) {
	var buf bytes.Buffer
	opts = append([]EngineOption{WithLogger(log.New(&buf, "", 0))}, opts...)
	return New(opts...), &buf
}

func TestRenderRepeatText(t *testing.T) {
	e, _ := quietEngine()
	doc, sel := compile(t, e, `<div id="list" data-repeat="{{.}}"><span>{{.}}</span></div>`, "#list")

	_, err := e.Render(sel, []string{"hello", "world", "!"})
	require.NoError(t, err)

	spans := doc.Find("#list span")
	assert.Equal(t, 3, spans.Length())
	assert.Equal(t, []string{"hello", "world", "!"}, texts(spans))
	_, hasRepeat := sel.Attr("data-repeat")
	assert.False(t, hasRepeat, "directive attribute should be removed")
}

func TestRepeatKeepsElementsOfUnchangedItems(t *testing.T) {
	e, _ := quietEngine()
	doc, sel := compile(t, e, `<ul id="l" data-repeat="{{.}}"><li>{{.}}</li></ul>`, "#l")

	_, err := e.Render(sel, []string{"a", "b", "c"})
	require.NoError(t, err)
	first := doc.Find("#l li").Nodes
	require.Len(t, first, 3)
	for _, n := range first {
		e.SetProperty(n, "sentinel", true)
	}

	_, err = e.Render(sel, []string{"a", "c", "d"})
	require.NoError(t, err)
	items := doc.Find("#l li")
	assert.Equal(t, []string{"a", "c", "d"}, texts(items))

	assert.Same(t, first[0], items.Nodes[0])
	assert.Same(t, first[2], items.Nodes[1])
	_, kept := e.Property(items.Nodes[1], "sentinel")
	assert.True(t, kept)
	_, fresh := e.Property(items.Nodes[2], "sentinel")
	assert.False(t, fresh)
	assert.Nil(t, first[1].Parent, "element of removed item should be detached")

	m := e.Metrics()
	assert.Equal(t, int64(4), m.ElementsEntered)
	assert.Equal(t, int64(2), m.ElementsUpdated)
	assert.Equal(t, int64(1), m.ElementsExited)
}

func TestRepeatReordersElements(t *testing.T) {
	e, _ := quietEngine()
	doc, sel := compile(t, e, `<ol id="l" data-repeat="{{.}}"><li>{{.}}</li></ol>`, "#l")

	_, err := e.Render(sel, []int{1, 2, 3})
	require.NoError(t, err)
	before := doc.Find("#l li").Nodes

	_, err = e.Render(sel, []int{3, 1, 2})
	require.NoError(t, err)
	after := doc.Find("#l li")
	assert.Equal(t, []string{"3", "1", "2"}, texts(after))
	assert.Same(t, before[2], after.Nodes[0])
	assert.Same(t, before[0], after.Nodes[1])
}

func TestRepeatWithRandomData(t *testing.T) {
	e, _ := quietEngine()
	doc, sel := compile(t, e, `<div id="people" data-repeat="{{.}}"><p><b>{{name}}</b> <i>{{age}}</i></p></div>`, "#people")

	type person struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}
	faker := gofakeit.New(7)
	people := make([]person, 25)
	for i := range people {
		people[i] = person{Name: faker.Name(), Age: faker.Number(1, 99)}
	}

	_, err := e.Render(sel, people)
	require.NoError(t, err)

	rows := doc.Find("#people p")
	require.Equal(t, len(people), rows.Length())
	rows.Each(func(i int, s *goquery.Selection) {
		assert.Equal(t, people[i].Name, s.Find("b").Text())
		assert.Equal(t, filter.ToString(people[i].Age), s.Find("i").Text())
	})
}

func TestNestedRepeat(t *testing.T) {
	e, _ := quietEngine()
	doc, sel := compile(t, e, `<div id="grid" data-repeat="{{.}}"><div class="row" data-repeat="{{.}}"><span>{{.}}</span></div></div>`, "#grid")

	_, err := e.Render(sel, [][]int{{1, 2}, {3}})
	require.NoError(t, err)

	rows := doc.Find("#grid .row")
	require.Equal(t, 2, rows.Length())
	assert.Equal(t, []string{"1", "2"}, texts(rows.Eq(0).Find("span")))
	assert.Equal(t, []string{"3"}, texts(rows.Eq(1).Find("span")))
}

func TestNestedRepeatKeepsInnerElements(t *testing.T) {
	e, _ := quietEngine()
	doc, sel := compile(t, e, `<div id="t" data-repeat="{{rows}}"><ul data-repeat="{{.}}"><li>{{.}}</li></ul></div>`, "#t")

	data := map[string]any{"rows": [][]string{{"a", "b"}, {"c"}}}
	_, err := e.Render(sel, data)
	require.NoError(t, err)
	before := doc.Find("#t li").Nodes
	require.Len(t, before, 3)

	_, err = e.Render(sel, data)
	require.NoError(t, err)
	after := doc.Find("#t li")
	require.Equal(t, 3, after.Length())
	for i := range before {
		assert.Same(t, before[i], after.Nodes[i])
	}
	assert.Equal(t, []string{"a", "b", "c"}, texts(after))
	assert.Equal(t, int64(0), e.Metrics().ElementsExited)
}

func TestImportedRepeatKeepsElements(t *testing.T) {
	e, _ := quietEngine()
	doc := parse(t, `
		<ul id="items" data-repeat="{{.}}"><li>{{.}}</li></ul>
		<div id="page"><div data-import="{{tpl}}" data-with="{{items}}"></div></div>`)
	_, err := e.Template(doc.Find("#items"))
	require.NoError(t, err)
	_, err = e.Template(doc.Find("#page"))
	require.NoError(t, err)

	data := map[string]any{"tpl": "#items", "items": []string{"a", "b"}}
	_, err = e.Render(doc.Find("#page"), data)
	require.NoError(t, err)
	before := doc.Find("#page li").Nodes
	require.Len(t, before, 2)

	data["items"] = []string{"b", "a", "c"}
	_, err = e.Render(doc.Find("#page"), data)
	require.NoError(t, err)
	after := doc.Find("#page li")
	assert.Equal(t, []string{"b", "a", "c"}, texts(after))
	assert.Same(t, before[1], after.Nodes[0])
	assert.Same(t, before[0], after.Nodes[1])
}

func TestRepeatIndexFilters(t *testing.T) {
	e, _ := quietEngine()
	doc, sel := compile(t, e, `<div id="l" data-repeat="{{.}}"><span data-label="{{.|repeatIndex}}">{{.|repeatPosition}}</span></div>`, "#l")
	_, err := e.Render(sel, []string{"x", "y", "z"})
	require.NoError(t, err)
	spans := doc.Find("#l span")
	assert.Equal(t, []string{"1", "2", "3"}, texts(spans))
	label, _ := spans.Eq(2).Attr("data-label")
	assert.Equal(t, "2", label)
}

func TestConditionalToggle(t *testing.T) {
	e, _ := quietEngine()
	doc := parse(t, `<div id="t"><p data-if="{{show}}"><button>{{label}}</button></p></div>`)

	clicks := 0
	var clickedDatum any
	e.On(doc.Find("button"), "click", func(ev *Event) {
		clicks++
		clickedDatum = ev.Datum
	})
	sel, err := e.Template(doc.Find("#t"))
	require.NoError(t, err)

	data := map[string]any{"show": true, "label": "Go"}
	_, err = e.Render(sel, data)
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("#t p").Children().Length())
	assert.Equal(t, "Go", doc.Find("#t button").Text())
	assert.Equal(t, 1, e.Dispatch(doc.Find("#t button"), "click"))

	_, err = e.Render(sel, map[string]any{"show": false, "label": "Go"})
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Find("#t p").Children().Length())

	_, err = e.Render(sel, data)
	require.NoError(t, err)
	assert.Equal(t, 1, e.Dispatch(doc.Find("#t button"), "click"))
	assert.Equal(t, 2, clicks)
	assert.Equal(t, data, clickedDatum)
}

func TestEventHandlersReplayedOnNewClones(t *testing.T) {
	e, _ := quietEngine()
	doc := parse(t, `<ul id="l" data-repeat="{{.}}"><li><a>{{name}}</a></li></ul>`)

	type item struct{ Name string }
	var clicked []string
	e.On(doc.Find("#l a"), "click", func(ev *Event) {
		clicked = append(clicked, ev.Datum.(item).Name)
	})
	sel, err := e.Template(doc.Find("#l"))
	require.NoError(t, err)

	renders := [][]item{
		{{"a"}},
		{{"a"}, {"b"}},
		{{"a"}, {"b"}, {"c"}},
	}
	for _, items := range renders {
		_, err := e.Render(sel, items)
		require.NoError(t, err)
	}

	links := doc.Find("#l a")
	require.Equal(t, 3, links.Length())
	for i := range links.Nodes {
		e.Dispatch(links.Eq(i), "click")
	}
	assert.Equal(t, []string{"a", "b", "c"}, clicked)
}

func TestEventBubblesToTemplateRoot(t *testing.T) {
	e, _ := quietEngine()
	doc, sel := compile(t, e, `<ul id="l" data-repeat="{{.}}"><li>{{.}}</li></ul>`, "#l")

	var targets []string
	e.On(sel, "click.log", func(ev *Event) {
		targets = append(targets, dom.Text(ev.Target))
		assert.Same(t, sel.Nodes[0], ev.CurrentTarget)
	})
	_, err := e.Render(sel, []string{"one", "two"})
	require.NoError(t, err)

	e.Dispatch(doc.Find("#l li").Eq(1), "click")
	assert.Equal(t, []string{"two"}, targets)

	e.On(sel, "click.log", nil)
	assert.Equal(t, 0, e.Dispatch(doc.Find("#l li").Eq(0), "click"))
}

func TestWith(t *testing.T) {
	e, _ := quietEngine()
	doc, sel := compile(t, e, `<div id="w" data-with="{{person}}"><p><b>{{name}}</b><i>{{missing.field}}</i></p></div>`, "#w")

	_, err := e.Render(sel, map[string]any{"person": map[string]any{"name": "Ada"}})
	require.NoError(t, err)
	assert.Equal(t, "Ada", doc.Find("#w b").Text())
	assert.Equal(t, "", doc.Find("#w i").Text())

	// A missing object still creates the child, bound to nil
	_, err = e.Render(sel, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("#w p").Length())
	assert.Equal(t, "", doc.Find("#w b").Text())
}

func TestImport(t *testing.T) {
	e, _ := quietEngine()
	doc := parse(t, `
		<div id="card" class="card"><h1>{{title}}</h1><p data-if="{{footer}}"><small>{{footer}}</small></p></div>
		<div id="other"><h2>{{title}}</h2></div>
		<div id="page"><section data-import="{{template}}" data-with="{{card}}"></section></div>`)

	closed := 0
	e.On(doc.Find("#card h1"), "click", func(*Event) { closed++ })
	_, err := e.Template(doc.Find("#card"))
	require.NoError(t, err)
	_, err = e.Template(doc.Find("#other"))
	require.NoError(t, err)
	_, err = e.Template(doc.Find("#page"))
	require.NoError(t, err)

	data := map[string]any{
		"template": "#card",
		"card":     map[string]any{"title": "Hello", "footer": "bye"},
	}
	_, err = e.Render(doc.Find("#page"), data)
	require.NoError(t, err)

	imported := doc.Find("#page section > div")
	require.Equal(t, 1, imported.Length())
	assert.True(t, imported.HasClass("card"))
	_, hasID := imported.Attr("id")
	assert.False(t, hasID)
	assert.Equal(t, "Hello", imported.Find("h1").Text())
	assert.Equal(t, "bye", imported.Find("small").Text())
	assert.Equal(t, "", doc.Find("#card h1").Text(), "the imported template itself is not rendered")

	e.Dispatch(imported.Find("h1"), "click")
	assert.Equal(t, 1, closed)

	// Same template: the clone is kept
	first := imported.Nodes[0]
	data["card"] = map[string]any{"title": "Again"}
	_, err = e.Render(doc.Find("#page"), data)
	require.NoError(t, err)
	imported = doc.Find("#page section > div")
	assert.Same(t, first, imported.Nodes[0])
	assert.Equal(t, "Again", imported.Find("h1").Text())
	assert.Equal(t, 0, imported.Find("small").Length())

	// Another template replaces it
	data["template"] = "#other"
	_, err = e.Render(doc.Find("#page"), data)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("#page section").Children().Length())
	assert.Equal(t, "Again", doc.Find("#page section h2").Text())
}

func TestImportOfRenderedTemplateStartsEmpty(t *testing.T) {
	e, _ := quietEngine()
	doc := parse(t, `
		<ul id="items" data-repeat="{{.}}"><li>{{.}}</li></ul>
		<div id="page"><div data-import="{{tpl}}" data-with="{{items}}"></div></div>`)
	_, err := e.Template(doc.Find("#items"))
	require.NoError(t, err)
	_, err = e.Template(doc.Find("#page"))
	require.NoError(t, err)

	_, err = e.Render(doc.Find("#items"), []string{"x", "y", "z"})
	require.NoError(t, err)
	_, err = e.Render(doc.Find("#page"), map[string]any{"tpl": "#items", "items": []string{"a"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, texts(doc.Find("#page li")))
	assert.Equal(t, []string{"x", "y", "z"}, texts(doc.Find("#items li")))
}

func TestImportByNode(t *testing.T) {
	e, _ := quietEngine()
	doc := parse(t, `<b id="tpl">{{.}}</b><p id="page" data-import="{{tpl}}" data-with="{{text}}"></p>`)
	_, err := e.Template(doc.Find("#tpl"))
	require.NoError(t, err)
	_, err = e.Template(doc.Find("#page"))
	require.NoError(t, err)

	_, err = e.Render(doc.Find("#page"), map[string]any{"tpl": doc.Find("#tpl"), "text": "bold"})
	require.NoError(t, err)
	assert.Equal(t, "bold", doc.Find("#page b").Text())
}

func TestImportOfNonTemplate(t *testing.T) {
	e, _ := quietEngine()
	doc, sel := compile(t, e, `<div id="plain"></div><div id="page"><div data-import="{{tpl}}"></div></div>`, "#page")

	_, err := e.Render(sel, map[string]any{"tpl": "#plain"})
	require.ErrorIs(t, err, ErrImportTarget)
	assert.Contains(t, err.Error(), `"#plain"`)
	assert.Equal(t, int64(1), e.Metrics().RenderErrors)
	_ = doc
}

func TestLeafKinds(t *testing.T) {
	e, _ := quietEngine()
	doc, sel := compile(t, e, `
		<form id="f">
			<input data-prop-checked="{{done}}" data-attr-title="{{title}}" data-value="{{value}}">
			<span data-style-color="{{color}}" data-class-done="{{done}}" class="item">{{title|upper}}</span>
			<em data-attr-title="{{missing}}" title="kept">{{price|numberFormat:",.2f"}}</em>
		</form>`, "#f")

	_, err := e.Render(sel, map[string]any{
		"done":  true,
		"title": "Write tests",
		"value": 42,
		"color": "red",
		"price": 1234.5,
	})
	require.NoError(t, err)

	input := doc.Find("#f input")
	checked, ok := e.Property(input.Nodes[0], "checked")
	assert.True(t, ok)
	assert.Equal(t, true, checked)
	assert.Equal(t, "Write tests", input.AttrOr("title", ""))
	assert.Equal(t, "42", input.AttrOr("data-value", ""))
	_, hasProp := input.Attr("data-prop-checked")
	assert.False(t, hasProp)

	span := doc.Find("#f span")
	assert.Equal(t, "red", dom.Style(span.Nodes[0], "color"))
	assert.True(t, span.HasClass("done"))
	assert.True(t, span.HasClass("item"))
	assert.Equal(t, "WRITE TESTS", span.Text())

	em := doc.Find("#f em")
	_, hasTitle := em.Attr("title")
	assert.False(t, hasTitle, "nil removes the attribute")
	assert.Equal(t, "1,234.50", em.Text())

	_, err = e.Render(sel, map[string]any{"done": false, "title": "x"})
	require.NoError(t, err)
	_, ok = e.Property(input.Nodes[0], "checked")
	assert.True(t, ok)
	assert.False(t, span.HasClass("done"))
	assert.Equal(t, "", dom.Style(span.Nodes[0], "color"))
	_, hasStyle := span.Attr("style")
	assert.False(t, hasStyle)
}

func TestFilterFailureSkipsBinding(t *testing.T) {
	e, logs := quietEngine()
	require.NoError(t, e.RegisterFilter("explode", func(filter.Call, any, ...any) any {
		panic("boom")
	}))
	doc, sel := compile(t, e, `<div id="d"><b>{{a|explode}}</b><i>{{a|unknownFilter}}</i></div>`, "#d")

	_, err := e.Render(sel, map[string]any{"a": "value"})
	require.NoError(t, err)
	assert.Equal(t, "", doc.Find("#d b").Text())
	assert.Equal(t, "value", doc.Find("#d i").Text())
	assert.Contains(t, logs.String(), "boom")
	assert.Equal(t, int64(1), e.Metrics().BindingFailures)
}

func TestRenderNonTemplate(t *testing.T) {
	e, _ := quietEngine()
	doc := parse(t, `<div id="d"></div>`)
	_, err := e.Render(doc.Find("#d"), nil)
	assert.ErrorIs(t, err, ErrNotTemplate)

	tr := e.Transition(time.Second)
	_, err = e.RenderTransition(tr, doc.Find("#d"), nil)
	assert.ErrorIs(t, err, ErrNotTemplate)
}

func TestRenderSelectionOfTemplates(t *testing.T) {
	e, _ := quietEngine()
	doc := parse(t, `<p class="t">{{.|repeatIndex}}</p><p class="t">{{.|repeatLength}}</p>`)
	sel, err := e.Template(doc.Find(".t"))
	require.NoError(t, err)

	_, err = e.Render(sel, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "2"}, texts(doc.Find(".t")))
}

func TestTweenFilterWithoutTransition(t *testing.T) {
	e, _ := quietEngine()
	doc, sel := compile(t, e, `<div id="d"><span data-attr-width="{{w|interpolate}}">{{label|typewriter}}</span></div>`, "#d")

	_, err := e.Render(sel, map[string]any{"w": 80, "label": "loading"})
	require.NoError(t, err)

	span := doc.Find("#d span")
	assert.Equal(t, "80", span.AttrOr("width", ""))
	assert.Equal(t, "loading", span.Text())
}

func TestTweenFilterWithTransition(t *testing.T) {
	e, _ := quietEngine()
	doc, sel := compile(t, e, `<div id="d"><span data-attr-width="{{w|interpolate}}" data-prop-progress="{{w|interpolate}}">{{label|typewriter}}</span></div>`, "#d")

	tr := e.Transition(time.Second, transition.WithEase(transition.Linear))
	_, err := e.RenderTransition(tr, sel, map[string]any{"w": 80, "label": "abcd"})
	require.NoError(t, err)

	span := doc.Find("#d span")
	assert.Equal(t, "", span.AttrOr("width", ""), "nothing is rendered before the transition starts")

	tr.Seek(0.5)
	assert.Equal(t, "40", span.AttrOr("width", ""))
	assert.Equal(t, "ab", span.Text())
	progress, _ := e.Property(span.Nodes[0], "progress")
	assert.Equal(t, 40.0, progress)

	tr.Seek(0.25)
	assert.Equal(t, "20", span.AttrOr("width", ""))
	assert.Equal(t, "a", span.Text())

	tr.End()
	assert.Equal(t, "80", span.AttrOr("width", ""))
	assert.Equal(t, "abcd", span.Text())

	m := e.Metrics()
	assert.Equal(t, int64(3), m.TweensScheduled)
	assert.Equal(t, int64(1), m.TransitionsStarted)
	assert.Equal(t, int64(0), m.ActiveTransitions)
}

func TestAttributeInterpolationInTransition(t *testing.T) {
	e, _ := quietEngine()
	doc, sel := compile(t, e, `<svg id="s"><rect data-attr-x="{{x}}" data-style-fill="{{fill}}" data-attr-label="{{label}}"></rect><text>{{label}}</text></svg>`, "#s")

	_, err := e.Render(sel, map[string]any{"x": 0, "fill": "rgb(0, 0, 0)", "label": "old"})
	require.NoError(t, err)

	tr := e.Transition(100*time.Millisecond, transition.WithEase(transition.Linear))
	_, err = e.RenderTransition(tr, sel, map[string]any{"x": 100, "fill": "rgb(200, 100, 0)", "label": "new"})
	require.NoError(t, err)

	tr.Seek(0.5)
	rect := doc.Find("#s rect")
	assert.Equal(t, "50", rect.AttrOr("x", ""))
	fill, ok := transition.ParseColor(dom.Style(rect.Nodes[0], "fill"))
	require.True(t, ok)
	r, g, b := fill.RGB255()
	assert.Equal(t, []uint8{100, 50, 0}, []uint8{r, g, b})
	assert.Equal(t, "old", rect.AttrOr("label", ""), "text without numbers switches at the end")
	assert.Equal(t, "new", doc.Find("#s text").Text(), "text content is set when the transition starts")

	tr.End()
	assert.Equal(t, "100", rect.AttrOr("x", ""))
	assert.Equal(t, "new", rect.AttrOr("label", ""))
}

func TestNewerTransitionTakesOverSlots(t *testing.T) {
	e, _ := quietEngine()
	doc, sel := compile(t, e, `<div id="d"><p data-attr-x="{{x}}"></p></div>`, "#d")
	_, err := e.Render(sel, map[string]any{"x": 0})
	require.NoError(t, err)

	first := e.Transition(time.Second, transition.WithEase(transition.Linear))
	_, err = e.RenderTransition(first, sel, map[string]any{"x": 100})
	require.NoError(t, err)
	first.Seek(0.5)

	second := e.Transition(time.Second, transition.WithEase(transition.Linear))
	_, err = e.RenderTransition(second, sel, map[string]any{"x": 10})
	require.NoError(t, err)
	second.Seek(0)

	p := doc.Find("#d p")
	assert.Equal(t, "50", p.AttrOr("x", ""))
	first.End()
	assert.Equal(t, "50", p.AttrOr("x", ""), "the older transition no longer owns the slot")
	second.End()
	assert.Equal(t, "10", p.AttrOr("x", ""))
}

func TestRenderTransitionOnRunningAndFinishedTransitions(t *testing.T) {
	e, _ := quietEngine()
	doc, sel := compile(t, e, `<div id="d"><b>{{n|interpolate}}</b></div>`, "#d")

	tr := e.Transition(time.Second, transition.WithEase(transition.Linear))
	tr.Start()
	_, err := e.RenderTransition(tr, sel, map[string]any{"n": 10})
	require.NoError(t, err)
	tr.Seek(0.5)
	assert.Equal(t, "5", doc.Find("#d b").Text())
	tr.End()

	_, err = e.RenderTransition(tr, sel, map[string]any{"n": 3})
	require.NoError(t, err)
	assert.Equal(t, "3", doc.Find("#d b").Text())
}

func TestNonSequenceRepeatIsLogged(t *testing.T) {
	e, logs := quietEngine()
	doc, sel := compile(t, e, `<ul id="l" data-repeat="{{.}}"><li>{{.}}</li></ul>`, "#l")

	_, err := e.Render(sel, []string{"a"})
	require.NoError(t, err)
	_, err = e.Render(sel, 42)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Find("#l li").Length())
	assert.Contains(t, logs.String(), "not a sequence")
}

func TestRepeatOfUnkeyedValues(t *testing.T) {
	e, _ := quietEngine()
	doc, sel := compile(t, e, `<ul id="l" data-repeat="{{.}}"><li>{{tags|length}}</li></ul>`, "#l")

	type entry struct{ Tags []string }
	_, err := e.Render(sel, []entry{{Tags: []string{"a"}}, {Tags: []string{"b", "c"}}})
	require.NoError(t, err)
	before := doc.Find("#l li").Nodes

	_, err = e.Render(sel, []entry{{Tags: []string{"b", "c"}}})
	require.NoError(t, err)
	after := doc.Find("#l li")
	require.Equal(t, 1, after.Length())
	assert.Same(t, before[1], after.Nodes[0])
	assert.Equal(t, "2", after.Text())
}

func TestPackageLevelFunctions(t *testing.T) {
	doc := parse(t, `<p id="p">{{name|prefix:"Hi "}}</p>`)
	sel, err := Template(doc.Find("#p"))
	require.NoError(t, err)
	_, err = Render(sel, map[string]string{"name": "Bo"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Bo", sel.Text())
	assert.True(t, Default().IsTemplate(sel.Nodes[0]))

	var node *html.Node = sel.Nodes[0]
	datum, ok := Default().Datum(node)
	assert.True(t, ok)
	assert.Equal(t, map[string]string{"name": "Bo"}, datum)
}
