// Package testserver runs an in-process Trade Compass API with cookie
// sessions for integration tests.
package testserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Email and Password are the credentials the server accepts
	Email    = "investor@example.com"
	Password = "secret"

	// UserID and UserName describe the signed-in account
	UserID   = 7
	UserName = "Investor"

	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
	tokenTTL      = 15 * time.Minute
)

var signingKey = []byte("testserver-signing-key")

// Server is an httptest server with the auth and financial-data routes
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	access        string
	refresh       string
	revoked       bool
	refreshHold   chan struct{}
	refreshArrive chan struct{}
	hits          map[string]int
}

// New starts a server. Close it when done.
func New() *Server {
	s := &Server{hits: make(map[string]int)}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.countHits)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/logout", s.handleLogout)
			r.Get("/yandex/url", s.handleYandexURL)
			r.With(s.requireSession).Get("/me", s.handleMe)
		})

		r.With(s.requireSession).Route("/financial-data", func(r chi.Router) {
			r.Get("/sectors", s.handleSectors)
			r.Get("/companies", s.handleCompanies)
			r.Get("/companies/{ticker}", s.handleCompany)
			r.Get("/companies/sector/{id}", s.handleCompaniesBySector)
			r.Get("/price/latest", s.handleLatestPrice)
			r.Get("/market-cap", s.handleMarketCap)
		})
	})

	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL is the API root to configure clients with
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

// Expire invalidates the access token. The refresh token stays valid.
func (s *Server) Expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
}

// Revoke invalidates the refresh token so the next refresh fails
func (s *Server) Revoke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked = true
}

// HoldRefresh makes refresh calls block until release is called. arrived
// receives once per refresh call that reached the server.
func (s *Server) HoldRefresh() (arrived <-chan struct{}, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hold := make(chan struct{})
	arrive := make(chan struct{}, 16)
	s.refreshHold = hold
	s.refreshArrive = arrive

	var once sync.Once
	return arrive, func() { once.Do(func() { close(hold) }) }
}

// Hits returns how many times method path was requested. path excludes the
// /api prefix and the query string.
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" /api"+path]
}

func (s *Server) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(accessCookie)

		s.mu.Lock()
		valid := err == nil && s.access != "" && c.Value == s.access
		s.mu.Unlock()

		if !valid {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email != Email || req.Password != Password {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := s.issue(w); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"id": UserID, "name": UserName, "status": "user"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	hold, arrive := s.refreshHold, s.refreshArrive
	s.mu.Unlock()

	if arrive != nil {
		arrive <- struct{}{}
	}
	if hold != nil {
		<-hold
	}

	c, err := r.Cookie(refreshCookie)

	s.mu.Lock()
	valid := err == nil && !s.revoked && s.refresh != "" && c.Value == s.refresh
	s.mu.Unlock()

	if !valid {
		respondError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	if err := s.issue(w); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "tokens refreshed"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.access, s.refresh = "", ""
	s.mu.Unlock()

	for _, name := range []string{accessCookie, refreshCookie} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"id": UserID, "name": UserName, "status": "user"})
}

func (s *Server) handleYandexURL(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"url": "https://oauth.yandex.ru/authorize?response_type=code&client_id=test",
	})
}

func (s *Server) handleSectors(w http.ResponseWriter, r *http.Request) {
	respondData(w, []map[string]interface{}{
		{"id": 1, "name": "Oil & Gas"},
		{"id": 2, "name": "Banks"},
	})
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	respondData(w, companies)
}

func (s *Server) handleCompaniesBySector(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sector id")
		return
	}

	matched := make([]map[string]interface{}, 0)
	for _, c := range companies {
		if c["sectorId"] == id {
			matched = append(matched, c)
		}
	}
	respondData(w, matched)
}

func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	for _, c := range companies {
		if c["ticker"] == ticker {
			respondData(w, c)
			return
		}
	}
	respondJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "company not found"})
}

func (s *Server) handleLatestPrice(w http.ResponseWriter, r *http.Request) {
	price, ok := prices[r.URL.Query().Get("ticker")]
	if !ok {
		respondJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "no price"})
		return
	}
	respondData(w, price)
}

func (s *Server) handleMarketCap(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	price, ok := prices[ticker]
	if !ok {
		respondJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "no market cap"})
		return
	}
	respondData(w, price*shares[ticker])
}

// issue rotates both tokens and sets them as cookies
func (s *Server) issue(w http.ResponseWriter) error {
	now := time.Now()
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    UserID,
		"name":   UserName,
		"status": "user",
		"jti":    uuid.NewString(),
		"iat":    now.Unix(),
		"exp":    now.Add(tokenTTL).Unix(),
	}).SignedString(signingKey)
	if err != nil {
		return err
	}
	refresh := uuid.NewString()

	s.mu.Lock()
	s.access, s.refresh = access, refresh
	s.mu.Unlock()

	for name, value := range map[string]string{accessCookie: access, refreshCookie: refresh} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			MaxAge:   int(tokenTTL.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return nil
}

var companies = []map[string]interface{}{
	{"id": 1, "ticker": "GAZP", "name": "Gazprom", "sectorId": 1, "lotSize": 10},
	{"id": 2, "ticker": "SBER", "name": "Sberbank", "sectorId": 2, "lotSize": 10},
	{"id": 3, "ticker": "LKOH", "name": "Lukoil", "sectorId": 1, "lotSize": 1},
}

var prices = map[string]float64{"GAZP": 128.5, "SBER": 310.2, "LKOH": 7012}

var shares = map[string]float64{"GAZP": 23673512900, "SBER": 21586948000, "LKOH": 692865762}

func respondData(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "data": data})
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
