package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/dekarrin/nova"
	"github.com/dekarrin/nova/internal/cache"
	"github.com/dekarrin/nova/internal/config"
)

const tokenIssuer = "novad"

// compileServer is the HTTP transport shim around nova.Compile: it holds no
// compiler state of its own, only the shared secret used to gate access and
// an optional cache reused across requests.
type compileServer struct {
	secretHash string // base64 bcrypt hash, from config.Project.Server.SecretHash
	signingKey []byte
	cache      *cache.Store
}

func newCompileServer(proj config.Project, signingKey []byte, store *cache.Store) *compileServer {
	return &compileServer{
		secretHash: proj.Server.SecretHash,
		signingKey: signingKey,
		cache:      store,
	}
}

func (s *compileServer) router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/token", s.handleToken)
	r.With(s.requireBearer).Post("/v1/compile", s.handleCompile)
	return r
}

type tokenRequest struct {
	Secret string `json:"secret"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// handleToken exchanges the project's shared secret for a short-lived JWT,
// mirroring server/tunas.Login: bcrypt-compare the presented credential
// against the hash on record, then issue a signed token on success.
func (s *compileServer) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	if s.secretHash == "" {
		writeJSONError(w, http.StatusForbidden, "server has no shared secret configured")
		return
	}
	hash, err := base64.StdEncoding.DecodeString(s.secretHash)
	if err != nil || bcrypt.CompareHashAndPassword(hash, []byte(req.Secret)) != nil {
		writeJSONError(w, http.StatusUnauthorized, "incorrect secret")
		return
	}

	claims := jwt.MapClaims{
		"iss": tokenIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokStr, err := tok.SignedString(s.signingKey)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: tokStr})
}

// requireBearer is middleware enforcing a valid Authorization: Bearer <jwt>
// header, in the shape of server/token.go's AuthHandler.
func (s *compileServer) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := bearerToken(r)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, err.Error())
			return
		}

		_, err = jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) {
			return s.signingKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer), jwt.WithLeeway(time.Minute))
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if authHeader == "" {
		return "", fmt.Errorf("no authorization header present")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("authorization header not in Bearer format")
	}
	return strings.TrimSpace(parts[1]), nil
}

type compileRequest struct {
	Source   string `json:"source"`
	Filename string `json:"filename"`
}

type compileResponse struct {
	Success     bool     `json:"success"`
	IR          string   `json:"ir,omitempty"`
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// handleCompile is the one semantic-bearing route: decode source, hand it to
// nova.Compile, and render the result. All compiler behavior lives in
// nova.Compile; this handler only does JSON marshaling and cache bookkeeping.
func (s *compileServer) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if req.Filename == "" {
		req.Filename = "<request>"
	}

	mod, errs := nova.Compile(req.Source, req.Filename)
	if s.cache != nil {
		hash := contentHashOf(req.Source)
		if err := s.cache.Put(r.Context(), req.Filename, hash, errs); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "updating compile cache: "+err.Error())
			return
		}
	}

	resp := compileResponse{Success: len(errs) == 0}
	for _, e := range errs {
		resp.Diagnostics = append(resp.Diagnostics, e.Error())
	}
	if mod != nil {
		resp.IR = mod.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
