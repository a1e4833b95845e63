package commands

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/livefir/livebind/internal/dom"
	"github.com/livefir/livebind/transition"
)

// renderRequest is a websocket message asking to render data, in a transition when
// DurationMS is positive
type renderRequest struct {
	Data       any    `json:"data"`
	DurationMS int    `json:"duration_ms"`
	Ease       string `json:"ease,omitempty"`
}

// frameMessage carries the body of the rendered page after a render or transition frame
type frameMessage struct {
	HTML     string  `json:"html"`
	Progress float64 `json:"progress"`
	Error    string  `json:"error,omitempty"`
}

const clientScript = `<script>
(function () {
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
  ws.onopen = function () { document.documentElement.setAttribute("data-connected", "true"); };
  ws.onmessage = function (event) {
    var frame = JSON.parse(event.data);
    if (frame.error) { console.error(frame.error); return; }
    document.body.innerHTML = frame.html;
    document.documentElement.setAttribute("data-progress", frame.progress);
  };
  window.livebind = {
    render: function (data, durationMs, ease) {
      ws.send(JSON.stringify({ data: data, duration_ms: durationMs || 0, ease: ease || "" }));
    }
  };
})();
</script>`

// server renders a template file for every connected client. Each connection works on its
// own copy of the page.
type server struct {
	flags    templateFlags
	markup   []byte
	initial  any
	frame    time.Duration
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// Serve starts an HTTP server showing the rendered templates. Data sent over the /ws
// websocket is rendered and every transition frame is pushed back.
func Serve(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var tf templateFlags
	var df dataFlags
	tf.register(fs)
	df.register(fs)
	addr := fs.String("addr", ":8080", "listen address")
	frame := fs.Duration("frame", 16*time.Millisecond, "interval between transition frames")
	if err := parseFlags(fs, args, stderr); err != nil {
		return err
	}

	s, err := newServer(tf, *frame, log.New(stderr, "", log.LstdFlags))
	if err != nil {
		return err
	}
	if s.initial, err = df.load(context.Background()); err != nil {
		return err
	}

	fmt.Fprintln(stdout, titleStyle.Render("livebind serving "+tf.path+" on "+*addr))
	return http.ListenAndServe(*addr, s.handler())
}

func newServer(tf templateFlags, frame time.Duration, logger *log.Logger) (*server, error) {
	markup, err := tf.read()
	if err != nil {
		return nil, err
	}
	// Fail early on templates that do not compile
	if _, err := tf.load(logger); err != nil {
		return nil, err
	}
	return &server{
		flags:  tf,
		markup: markup,
		frame:  frame,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}, nil
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/", s.handleIndex)
	return mux
}

// newPage compiles a fresh copy of the templates and renders the initial data
func (s *server) newPage() (*page, error) {
	p, err := s.flags.open(s.markup, s.logger)
	if err != nil {
		return nil, err
	}
	if _, err := p.engine.Template(p.templates); err != nil {
		return nil, err
	}
	if _, err := p.engine.Render(p.templates, s.initial); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	p, err := s.newPage()
	if err != nil {
		s.logger.Printf("Failed to render page: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	p.doc.Find("body").AppendHtml(clientScript)

	out, err := p.serialize(false, false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, out)
}

func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	p, err := s.newPage()
	if err != nil {
		s.logger.Printf("Failed to render page: %v", err)
		return
	}
	s.logger.Printf("Client connected from %s", conn.RemoteAddr())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	send := func(progress float64) {
		body, err := dom.RenderInner(p.body())
		if err != nil {
			s.logger.Printf("Failed to serialize page: %v", err)
			return
		}
		if err := conn.WriteJSON(frameMessage{HTML: body, Progress: progress}); err != nil {
			s.logger.Printf("WebSocket write failed: %v", err)
			cancel()
		}
	}
	send(1)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Printf("WebSocket error: %v", err)
			}
			break
		}

		var req renderRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.logger.Printf("Failed to parse message: %v", err)
			_ = conn.WriteJSON(frameMessage{Error: "invalid message: " + err.Error()})
			continue
		}
		if err := s.render(ctx, p, req, send); err != nil {
			s.logger.Printf("Render failed: %v", err)
			_ = conn.WriteJSON(frameMessage{Error: err.Error()})
		}
		if ctx.Err() != nil {
			break
		}
	}

	s.logger.Printf("Client disconnected")
}

// render renders a request onto p, calling send after the render or after every frame
func (s *server) render(ctx context.Context, p *page, req renderRequest, send func(progress float64)) error {
	if req.DurationMS <= 0 {
		if _, err := p.engine.Render(p.templates, req.Data); err != nil {
			return err
		}
		send(1)
		return nil
	}

	opts := []transition.Option{transition.WithName("serve")}
	if req.Ease != "" {
		ease, err := easeFlag(req.Ease)
		if err != nil {
			return err
		}
		opts = append(opts, transition.WithEase(ease))
	}
	tr := p.engine.Transition(time.Duration(req.DurationMS)*time.Millisecond, opts...)
	tr.OnFrame(func(tr *transition.Transition) { send(tr.Progress()) })
	if _, err := p.engine.RenderTransition(tr, p.templates, req.Data); err != nil {
		return err
	}
	return tr.Run(ctx, s.frame)
}
