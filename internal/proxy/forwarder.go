package proxy

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/portal/internal/logger"
)

// ErrNotUpgrade is returned by ForwardUpgrade for plain HTTP requests.
var ErrNotUpgrade = errors.New("request is not a protocol upgrade")

type targetKey struct{}

// Forwarder proxies requests to backendHost:<port>. One ReverseProxy is
// shared by every port; the target travels in the request context.
type Forwarder struct {
	backendHost string
	proxy       *httputil.ReverseProxy
	logger      logger.Logger
}

// NewForwarder builds a forwarder for backendHost (usually "localhost").
// transport may be nil to use http.DefaultTransport.
func NewForwarder(backendHost string, transport http.RoundTripper, log logger.Logger) *Forwarder {
	if backendHost == "" {
		backendHost = "localhost"
	}
	if log == nil {
		log = logger.Nop()
	}

	f := &Forwarder{backendHost: backendHost, logger: log}
	f.proxy = &httputil.ReverseProxy{
		Rewrite:      f.rewrite,
		Transport:    transport,
		ErrorHandler: f.handleError,
	}
	return f
}

// BackendHost returns the host every port is forwarded to.
func (f *Forwarder) BackendHost() string {
	return f.backendHost
}

// Forward sends r to the backend port. Path and query are kept verbatim.
// WebSocket upgrades are handled by the same call.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, port string) {
	target := &url.URL{Scheme: "http", Host: net.JoinHostPort(f.backendHost, port)}
	ctx := context.WithValue(r.Context(), targetKey{}, target)
	f.proxy.ServeHTTP(w, r.WithContext(ctx))
}

// ForwardUpgrade forwards a WebSocket (or other Upgrade) handshake. Once the
// backend answers 101 the connection is hijacked and bytes are copied both ways.
func (f *Forwarder) ForwardUpgrade(w http.ResponseWriter, r *http.Request, port string) error {
	if !IsUpgrade(r) {
		return ErrNotUpgrade
	}
	f.Forward(w, r, port)
	return nil
}

func (f *Forwarder) rewrite(pr *httputil.ProxyRequest) {
	target, _ := pr.In.Context().Value(targetKey{}).(*url.URL)
	if target == nil {
		return
	}
	pr.Out.URL.Scheme = target.Scheme
	pr.Out.URL.Host = target.Host
	pr.Out.Host = pr.In.Host
	pr.SetXForwarded()
}

func (f *Forwarder) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		// Client went away.
		return
	}

	target, _ := r.Context().Value(targetKey{}).(*url.URL)
	backend := ""
	if target != nil {
		backend = target.Host
	}
	f.logger.Warn("backend request failed",
		logger.String("backend", backend),
		logger.String("path", r.URL.Path),
		logger.Error(err),
	)
	http.Error(w, "Bad Gateway", http.StatusBadGateway)
}

// IsUpgrade reports whether r asks to switch protocols.
func IsUpgrade(r *http.Request) bool {
	if r.Header.Get("Upgrade") == "" {
		return false
	}
	for _, v := range r.Header.Values("Connection") {
		for _, token := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(token), "upgrade") {
				return true
			}
		}
	}
	return false
}
