package provider

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nainya/codetree/pkg/hierarchy"
)

// Handler serves p over the protocol HTTP consumes, so one codetree
// instance can act as the terminology server for another.
func Handler(p hierarchy.Provider) http.Handler {
	mux := http.NewServeMux()

	adjacent := func(fetch func(*http.Request, hierarchy.Code) ([]hierarchy.Code, error)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			codes, err := fetch(r, hierarchy.Code(r.PathValue("code")))
			if errors.Is(err, hierarchy.ErrUnknownCode) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, codesPayload{Codes: hierarchy.Strings(codes)})
		}
	}

	mux.HandleFunc("GET /codes/{code}/parents", adjacent(func(r *http.Request, c hierarchy.Code) ([]hierarchy.Code, error) {
		return p.ParentsOf(r.Context(), c)
	}))
	mux.HandleFunc("GET /codes/{code}/children", adjacent(func(r *http.Request, c hierarchy.Code) ([]hierarchy.Code, error) {
		return p.ChildrenOf(r.Context(), c)
	}))

	mux.HandleFunc("POST /names", func(w http.ResponseWriter, r *http.Request) {
		var req codesPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		names, err := p.NamesOf(r.Context(), hierarchy.Codes(req.Codes...))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		out := namesPayload{Names: make(map[string]string, len(names))}
		for c, n := range names {
			out.Names[string(c)] = n
		}
		writeJSON(w, out)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
