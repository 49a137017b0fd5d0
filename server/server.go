package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/d-j-kendall/roast-my-playlist/internal/config"
	"github.com/d-j-kendall/roast-my-playlist/roast"
	"github.com/d-j-kendall/roast-my-playlist/sessions"
	"github.com/d-j-kendall/roast-my-playlist/spotify"
)

// Services holds the collaborators the handlers dispatch into.
type Services struct {
	Store     *sessions.Store
	Lifecycle *sessions.Manager
	Tokens    *spotify.TokenClient
	Music     spotify.MusicService
	Roaster   roast.Roaster
}

type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	services Services
}

func New(cfg config.Config, services Services) (*Server, error) {
	if services.Store == nil || services.Lifecycle == nil || services.Tokens == nil {
		return nil, fmt.Errorf("[Server New] session store, lifecycle manager, and token client are required")
	}
	if services.Music == nil || services.Roaster == nil {
		return nil, fmt.Errorf("[Server New] music service and roaster are required")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		services: services,
	}
	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) == 2 {
			log.Info().Str("method", parts[0]).Str("path", parts[1]).Msg("route registered")
		} else {
			log.Info().Str("path", route).Msg("route registered")
		}
	}
}
