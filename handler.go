package iommi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Handler returns an http.Handler serving the page. A request parameter
// starting with the dispatch separator is an AJAX call: its name is the
// dispatch path and its value the argument, and the response is JSON.
// Every other request renders the page as HTML.
//
// Example:
//
//	mux.Handle("/cars", page.Handler(iommi.WithDB(db)))
//
//	GET /cars?/debug_tree
//	GET /cars?/query/gui/field/owner=ali
func (p *Page) Handler(opts ...BindOption) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg := newBindConfig(opts)

		bp, err := p.Bind(r, opts...)
		if err != nil {
			cfg.logger.Error("failed to bind page", "error", err)
			http.Error(w, http.StatusText(MapErrorToHTTPStatus(err)), MapErrorToHTTPStatus(err))
			return
		}

		if key, ok := dispatchKey(bp.data); ok {
			serveEndpoint(w, cfg.logger, bp, strings.TrimPrefix(key, DispatchPathSeparator), bp.data.Get(key))
			return
		}

		html, err := bp.Render()
		if err != nil {
			cfg.logger.Error("failed to render page", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write([]byte(html)); err != nil {
			cfg.logger.Debug("failed to write response", "error", err)
		}
	})
}

// dispatchKey returns the first parameter, in sorted order, naming a
// dispatch path.
func dispatchKey(data url.Values) (string, bool) {
	keys := make([]string, 0, len(data))
	for key := range data {
		if strings.HasPrefix(key, DispatchPathSeparator) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return "", false
	}
	sort.Strings(keys)
	return keys[0], true
}

func serveEndpoint(w http.ResponseWriter, logger *slog.Logger, bp *BoundPage, key, value string) {
	resp, ok, err := bp.EndpointDispatch(key, value)
	if !ok {
		http.Error(w, "unknown endpoint", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Warn("endpoint failed", "key", key, "error", err)
		http.Error(w, err.Error(), MapErrorToHTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Debug("failed to write response", "error", err)
	}
}
