package devserver

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dxblostfound/lostfound/internal/utils"
)

// Config describes a fixture backend. Only Store is required.
type Config struct {
	Store    *Store
	Username string
	Password string
	// TopK caps the candidates returned per item. Defaults to DefaultTopK.
	TopK int
	// Scores overrides fixture scores, keyed by ScoreKey.
	Scores map[string]float64
	Log    logrus.FieldLogger
}

// Server is a local stand-in for the matching backend. It stores reports and
// answers with fixture scores; it never compares images.
type Server struct {
	store    *Store
	username string
	password string
	topK     int
	scores   map[string]float64
	log      logrus.FieldLogger
}

func New(cfg Config) *Server {
	s := &Server{
		store:    cfg.Store,
		username: cfg.Username,
		password: cfg.Password,
		topK:     cfg.TopK,
		scores:   cfg.Scores,
		log:      cfg.Log,
	}
	if s.topK <= 0 {
		s.topK = DefaultTopK
	}
	if s.log == nil {
		s.log = utils.Log
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/lost", s.basicAuth(s.handleReport))
	mux.HandleFunc("POST /api/found", s.basicAuth(s.handleReport))
	mux.HandleFunc("GET /api/history", s.basicAuth(s.handleHistory))
	mux.HandleFunc("GET /media/{kind}/{file}", s.basicAuth(s.handleMedia))
	return s.requestID(mux)
}

func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Infof("Starting fixture backend on %s", addr)
	return srv.ListenAndServe()
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithField("request_id", id).Debugf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.username == "" && s.password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.username || pass != s.password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
