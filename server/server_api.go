package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jpillora/probset/common"
	"github.com/jpillora/probset/engine"
)

func (s *Server) restAPIhandle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	s.state.Lock()
	limiter := s.limiter
	s.state.Unlock()
	if !limiter.Allow() {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}
	if r.Method != "POST" {
		http.Error(w, fmt.Sprintf("%s:%s:Method Not Allowed", r.Method, r.URL), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	switch strings.TrimPrefix(r.URL.Path, "/api/") {
	case "resolve":
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("malformed request body: %s", err), http.StatusBadRequest)
			return
		}
		res := s.resolve(req)
		s.state.Lock()
		s.state.Latest = res
		s.state.Unlock()
		s.state.Push()
		w.Header().Set("Content-Type", "application/json")
		common.HandleError(json.NewEncoder(w).Encode(&res))
	case "configure":
		if err := s.apiConfigure(r); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		common.HandleError(err)
	default:
		http.Error(w, "invalid API path", http.StatusNotFound)
	}
}

func (s *Server) apiConfigure(r *http.Request) error {
	s.state.Lock()
	c := s.state.Config
	s.state.Unlock()
	if !c.AllowRuntimeConfigure {
		return fmt.Errorf("runtime configure is disabled")
	}
	nc := c
	if err := json.NewDecoder(r.Body).Decode(&nc); err != nil {
		return fmt.Errorf("malformed configure request: %s", err)
	}
	if c.Validate(&nc)&engine.ForbidRuntimeChange != 0 {
		return fmt.Errorf("AllowRuntimeConfigure can only be changed on disk")
	}
	nc.Normalize()
	c.SyncViper(nc)
	return s.reconfigure(nc)
}
