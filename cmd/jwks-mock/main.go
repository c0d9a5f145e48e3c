// JWKS Mock — провайдер идентификации для локальной и тестовой среды LMS.
// Генерирует RSA-ключ при старте, отдаёт JWKS по GET /jwks
// и подписывает JWT с ролью и группами по POST /token.
package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/bigkaa/lms/internal/api/errors"
)

const keyID = "lms-mock-key-1"

// config — параметры из переменных окружения.
type config struct {
	Port    string // MOCK_PORT (default: 8080)
	Issuer  string // MOCK_ISSUER (default: jwks-mock)
	TLSCert string // MOCK_TLS_CERT, пусто — HTTP
	TLSKey  string // MOCK_TLS_KEY
	KeySize int    // MOCK_KEY_SIZE (default: 2048)
}

func loadConfig() config {
	cfg := config{
		Port:    envOrDefault("MOCK_PORT", "8080"),
		Issuer:  envOrDefault("MOCK_ISSUER", "jwks-mock"),
		TLSCert: os.Getenv("MOCK_TLS_CERT"),
		TLSKey:  os.Getenv("MOCK_TLS_KEY"),
		KeySize: 2048,
	}
	if v := os.Getenv("MOCK_KEY_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil && size >= 1024 {
			cfg.KeySize = size
		}
	}
	return cfg
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// tokenRequest — тело POST /token.
type tokenRequest struct {
	Sub        string   `json:"sub"`
	Username   string   `json:"username"`
	Email      string   `json:"email"`
	Role       string   `json:"role"`
	Groups     []string `json:"groups"`
	TTLSeconds int      `json:"ttl_seconds"`
}

// mockClaims — claims в формате, который разбирает JWT middleware LMS API.
type mockClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string   `json:"preferred_username,omitempty"`
	Email             string   `json:"email,omitempty"`
	Role              string   `json:"role,omitempty"`
	Groups            []string `json:"groups,omitempty"`
}

type server struct {
	privateKey *rsa.PrivateKey
	jwks       []byte
	issuer     string
	now        func() time.Time
	logger     *slog.Logger
}

// newServer генерирует ключ и публикует его в JWKS.
func newServer(ctx context.Context, keySize int, issuer string, logger *slog.Logger) (*server, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, keySize)
	if err != nil {
		return nil, fmt.Errorf("генерация RSA-ключа: %w", err)
	}

	jwk, err := jwkset.NewJWKFromKey(&privateKey.PublicKey, jwkset.JWKOptions{
		Metadata: jwkset.JWKMetadataOptions{
			ALG: jwkset.AlgRS256,
			KID: keyID,
			USE: jwkset.UseSig,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWK: %w", err)
	}

	storage := jwkset.NewMemoryStorage()
	if err := storage.KeyWrite(ctx, jwk); err != nil {
		return nil, fmt.Errorf("запись JWK: %w", err)
	}
	raw, err := storage.JSONPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("сериализация JWKS: %w", err)
	}

	return &server{
		privateKey: privateKey,
		jwks:       raw,
		issuer:     issuer,
		now:        time.Now,
		logger:     logger,
	}, nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /jwks", s.handleJWKS)
	mux.HandleFunc("POST /token", s.handleToken)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

func (s *server) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(s.jwks)
}

func (s *server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "невалидный JSON: "+err.Error())
		return
	}
	if req.Sub == "" {
		apierrors.ValidationError(w, "поле 'sub' обязательно")
		return
	}
	if req.Role == "" && len(req.Groups) == 0 {
		apierrors.ValidationError(w, "нужно указать 'role' или 'groups'")
		return
	}

	ttl := req.TTLSeconds
	if ttl <= 0 {
		ttl = 3600
	}

	now := s.now()
	claims := mockClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.Sub,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttl) * time.Second)),
		},
		PreferredUsername: req.Username,
		Email:             req.Email,
		Role:              req.Role,
		Groups:            req.Groups,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyID

	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		s.logger.Error("Ошибка подписи JWT", slog.String("error", err.Error()))
		apierrors.InternalError(w, "ошибка генерации токена")
		return
	}

	s.logger.Info("Токен выдан",
		slog.String("sub", req.Sub),
		slog.String("role", req.Role),
		slog.Int("ttl_seconds", ttl),
	)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"token": signed})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func main() {
	cfg := loadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	logger.Info("Генерация RSA-ключа", slog.Int("key_size", cfg.KeySize))
	srv, err := newServer(context.Background(), cfg.KeySize, cfg.Issuer, logger)
	if err != nil {
		logger.Error("Ошибка инициализации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("JWKS Mock запущен",
		slog.String("addr", httpServer.Addr),
		slog.String("issuer", cfg.Issuer),
		slog.Bool("tls", cfg.TLSCert != ""),
	)

	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		err = httpServer.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
	} else {
		err = httpServer.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
