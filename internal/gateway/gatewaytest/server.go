// Package gatewaytest runs an in-process fake of the platform gateway for tests.
package gatewaytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/mentor-portal/internal/domain"
)

type account struct {
	id       int64
	password string
	kind     domain.CustomerType
}

// Server is a fake gateway. Zero-valued knobs mean normal behavior.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	secret   []byte
	nextID   int64
	accounts map[string]account
	valid    map[string]bool
	profiles map[int64]domain.Profile
	calls    map[string]int

	// LogoutStatus, when non-zero, is returned by the logout endpoint.
	LogoutStatus int
	// AuthenticateGate, when set, blocks authenticate until it is closed or receives.
	AuthenticateGate chan struct{}
	// AuthenticateStarted, when set, gets a value as each authenticate call begins.
	AuthenticateStarted chan struct{}
}

// New starts a fake gateway that is closed when the test ends.
func New(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		secret:   []byte("gatewaytest-secret"),
		nextID:   100,
		accounts: map[string]account{},
		valid:    map[string]bool{},
		profiles: map[int64]domain.Profile{},
		calls:    map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/users/register", s.register)
	mux.HandleFunc("POST /auth/users/login", s.login)
	mux.HandleFunc("GET /auth/users/authenticate", s.authenticate)
	mux.HandleFunc("POST /auth/users/logout", s.logout)
	mux.HandleFunc("GET /mmc/customers/{id}", s.getCustomer)
	mux.HandleFunc("PUT /mmc/customers/{id}", s.putCustomer)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// AddUser registers an account directly and returns its id.
func (s *Server) AddUser(email, password string, kind domain.CustomerType) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.accounts[email] = account{id: s.nextID, password: password, kind: kind}
	return s.nextID
}

// Issue mints a valid token for an existing account.
func (s *Server) Issue(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(email, s.accounts[email])
}

// Revoke invalidates token server-side.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.valid, token)
}

// SetProfile seeds a stored profile.
func (s *Server) SetProfile(p domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

// Calls returns how many times "METHOD /path" was hit; customer paths are
// counted under "GET /mmc/customers" and "PUT /mmc/customers".
func (s *Server) Calls(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

func (s *Server) count(key string) {
	s.mu.Lock()
	s.calls[key]++
	s.mu.Unlock()
}

func (s *Server) issueLocked(email string, acc account) string {
	claims := jwt.MapClaims{
		"sub":          email,
		"userId":       acc.id,
		"customerType": string(acc.kind),
		"iat":          time.Now().Unix(),
		"exp":          time.Now().Add(time.Hour).Unix(),
		"jti":          strconv.FormatInt(time.Now().UnixNano(), 36),
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	s.valid[token] = true
	return token
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	s.count("POST /auth/users/register")

	var req struct {
		Email        string              `json:"email"`
		Password     string              `json:"password"`
		CustomerType domain.CustomerType `json:"customerType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "email and password required"})
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Email]; exists {
		s.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"message": "email already registered"})
		return
	}
	s.nextID++
	acc := account{id: s.nextID, password: req.Password, kind: req.CustomerType}
	s.accounts[req.Email] = acc
	token := s.issueLocked(req.Email, acc)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, authBody(acc, req.Email, token))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	s.count("POST /auth/users/login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid payload"})
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[req.Email]
	if !ok || acc.password != req.Password {
		s.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "bad credentials"})
		return
	}
	token := s.issueLocked(req.Email, acc)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, authBody(acc, req.Email, token))
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) {
	s.count("GET /auth/users/authenticate")
	if s.AuthenticateStarted != nil {
		s.AuthenticateStarted <- struct{}{}
	}
	if s.AuthenticateGate != nil {
		select {
		case <-s.AuthenticateGate:
		case <-r.Context().Done():
			return
		}
	}

	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.count("POST /auth/users/logout")
	if s.LogoutStatus != 0 {
		w.WriteHeader(s.LogoutStatus)
		return
	}
	s.Revoke(bearer(r))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) getCustomer(w http.ResponseWriter, r *http.Request) {
	s.count("GET /mmc/customers")
	id, ok := s.customerID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	p, found := s.profiles[id]
	s.mu.Unlock()
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "customer not found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) putCustomer(w http.ResponseWriter, r *http.Request) {
	s.count("PUT /mmc/customers")
	id, ok := s.customerID(w, r)
	if !ok {
		return
	}

	var p domain.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid profile"})
		return
	}
	p.UserID = id
	if p.ID == nil {
		pid := id * 10
		p.ID = &pid
	}

	s.mu.Lock()
	s.profiles[id] = p
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) customerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
		return 0, false
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid id"})
		return 0, false
	}
	return id, true
}

func (s *Server) authorized(r *http.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.valid[bearer(r)]
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return h[7:]
}

func authBody(acc account, email, token string) map[string]any {
	return map[string]any{
		"userId":      acc.id,
		"username":    email,
		"jwt":         token,
		"type":        acc.kind,
		"authorities": nil,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
