package render

import (
	"crypto/tls"
	"net/http"

	http3 "github.com/quic-go/quic-go/http3"

	"github.com/orizon-lang/heapviz/internal/attribution"
)

// Server serves a rendered page over HTTP/3, for cmd/heapviz's -serve
// mode, which renders a snapshot loaded once from disk.
// Grounded on the teacher runtime's netstack.HTTP3Server: TLS 1.3 is
// enforced as a floor, never negotiated down, since QUIC requires it.
type Server struct {
	srv *http3.Server
}

// handler serves the current tree's rendered page on every request,
// re-rendering each time so a long-running server always reflects the
// latest Collect. src may be nil, in which case pages carry no
// file_content blocks.
func handler(tree func() *attribution.Tree, src *SourceCache, contextLines int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			page string
			err  error
		)

		if src != nil {
			page, err = PageWithSource(tree(), src, contextLines)
		} else {
			page, err = Page(tree())
		}

		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}
}

// NewServer builds an HTTP/3 server that renders tree() fresh on every
// request. tlsCfg may be nil, in which case a minimal TLS 1.3 floor
// config is used; supply certificates via tlsCfg.Certificates for a real
// deployment. Use NewServerWithSource to attach file_content blocks.
func NewServer(addr string, tlsCfg *tls.Config, tree func() *attribution.Tree) *Server {
	return newServer(addr, tlsCfg, tree, nil, 0)
}

// NewServerWithSource is NewServer plus a *SourceCache so every served
// page's leaves carry a file_content block (spec.md §4.J).
func NewServerWithSource(addr string, tlsCfg *tls.Config, tree func() *attribution.Tree, src *SourceCache, contextLines int) *Server {
	return newServer(addr, tlsCfg, tree, src, contextLines)
}

func newServer(addr string, tlsCfg *tls.Config, tree func() *attribution.Tree, src *SourceCache, contextLines int) *Server {
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS13, NextProtos: []string{"h3"}}
	} else if tlsCfg.MinVersion < tls.VersionTLS13 {
		c := tlsCfg.Clone()
		c.MinVersion = tls.VersionTLS13

		if len(c.NextProtos) == 0 {
			c.NextProtos = []string{"h3"}
		}

		tlsCfg = c
	}

	return &Server{srv: &http3.Server{Addr: addr, TLSConfig: tlsCfg, Handler: handler(tree, src, contextLines)}}
}

// Serve blocks, serving the flamegraph page over HTTP/3 until the server
// is closed or encounters a fatal error.
func (s *Server) Serve() error {
	return s.srv.ListenAndServe()
}

// Close shuts the server down.
func (s *Server) Close() error {
	return s.srv.Close()
}
