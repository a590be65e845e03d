package identity

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens.
var ErrInvalidToken = errors.New("invalid access token")

// Claims are the access-token claims issued by the hosted auth service.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// VerifierConfig holds the token verification settings.
type VerifierConfig struct {
	// Secret is the HMAC key shared with the auth service.
	Secret string
	// Issuer, when set, must match the iss claim.
	Issuer string
	// Audience, when set, must be present in the aud claim.
	Audience string
}

// Verifier validates HS256 access tokens.
type Verifier struct {
	secret []byte
	opts   []jwt.ParserOption
}

// NewVerifier creates a Verifier. An empty secret is rejected.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &Verifier{secret: []byte(cfg.Secret), opts: opts}, nil
}

// Verify parses raw and returns the user it identifies.
func (v *Verifier) Verify(raw string) (User, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, v.opts...)
	if err != nil {
		return User{}, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if claims.Subject == "" {
		return User{}, errors.Wrap(ErrInvalidToken, "missing subject")
	}
	return User{ID: claims.Subject, Email: claims.Email}, nil
}

// Middleware authenticates requests carrying "Authorization: Bearer <token>".
// Requests without the header continue as guests; requests with an invalid
// token are rejected with 401.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			u, err := v.Verify(raw)
			if err != nil {
				zctx.From(r.Context()).Debug("Rejected access token", zap.Error(err))
				writeUnauthorized(w)
				return
			}
			ctx := WithUser(r.Context(), u)
			ctx = zctx.With(ctx, zap.String("user_id", u.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ObjStart()
	e.FieldStart("code")
	e.Int(http.StatusUnauthorized)
	e.FieldStart("message")
	e.Str(ErrInvalidToken.Error())
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write(e.Bytes())
}

func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false
	}
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[7:])
	return tok, tok != ""
}
