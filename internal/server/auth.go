package server

import (
	"context"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"tripline/internal/auth"
	"tripline/internal/repo"
)

type AuthConfig struct {
	JWTSecret string
	// TokenTTL defaults to 24h.
	TokenTTL time.Duration
	Logger   *log.Logger
	Now      func() time.Time
}

type principalKey struct{}

func (c AuthConfig) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

func (c AuthConfig) ttl() time.Duration {
	if c.TokenTTL > 0 {
		return c.TokenTTL
	}
	return 24 * time.Hour
}

func (c AuthConfig) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func withPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(auth.Principal)
	return p, ok && p.UserID != ""
}

// requireUser rejects guests.
func requireUser(ctx context.Context) (auth.Principal, huma.StatusError) {
	if p, ok := principalFromContext(ctx); ok {
		return p, nil
	}
	return auth.Principal{}, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
}

// newAuthMiddleware attaches the bearer token's principal when one is sent.
// Requests without Authorization continue as guests; a bad token is refused.
func newAuthMiddleware(basePath string, cfg AuthConfig) func(http.Handler) http.Handler {
	healthPath := path.Join(basePath, "health")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !strings.HasPrefix(req.URL.Path, basePath) || req.URL.Path == healthPath {
				next.ServeHTTP(w, req)
				return
			}
			authz := strings.TrimSpace(req.Header.Get("Authorization"))
			if authz == "" {
				next.ServeHTTP(w, req)
				return
			}
			token, ok := auth.BearerToken(authz)
			if !ok {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
				return
			}
			principal, err := auth.ParseToken(cfg.JWTSecret, token)
			if err != nil {
				cfg.logger().Printf("[auth] rejected token from %s: %v", req.RemoteAddr, err)
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
				return
			}
			next.ServeHTTP(w, req.WithContext(withPrincipal(req.Context(), principal)))
		})
	}
}

func registerAuth(api huma.API, r repo.Repo, cfg AuthConfig) {
	issue := func(p auth.Principal) (string, huma.StatusError) {
		token, err := auth.IssueToken(cfg.JWTSecret, p, cfg.ttl(), cfg.now())
		if err != nil {
			return "", newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return token, nil
	}

	huma.Register(api, huma.Operation{
		OperationID:   "signup",
		Method:        http.MethodPost,
		Path:          "/auth/signup",
		Summary:       "Create an account",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body SignupRequest `json:"body"`
	}) (*struct {
		Body TokenResponse `json:"body"`
	}, error) {
		u, err := r.CreateUser(ctx, repo.NewUser{
			Email:     input.Body.Email,
			Password:  input.Body.Password,
			FirstName: input.Body.FirstName,
			LastName:  input.Body.LastName,
			Phone:     input.Body.Phone,
			City:      input.Body.City,
			Country:   input.Body.Country,
		})
		if err != nil {
			return nil, handleError(err)
		}
		token, serr := issue(auth.Principal{UserID: u.ID, Email: u.Email})
		if serr != nil {
			return nil, serr
		}
		return &struct {
			Body TokenResponse `json:"body"`
		}{Body: TokenResponse{Token: token, User: u}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Exchange credentials for a bearer token",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		Body TokenResponse `json:"body"`
	}, error) {
		u, err := r.Authenticate(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, handleError(err)
		}
		token, serr := issue(auth.Principal{UserID: u.ID, Email: u.Email})
		if serr != nil {
			return nil, serr
		}
		return &struct {
			Body TokenResponse `json:"body"`
		}{Body: TokenResponse{Token: token, User: u}}, nil
	})
}
