// Package security provides credential extraction for endpoint security
// schemes and the sentinel the authorization stage maps to a 401.
package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	jwt "github.com/golang-jwt/jwt/v4"
)

// ErrNotAuthorized signals the caller could not be identified. The
// authorization stage turns it into a 401; any other deny becomes a 403.
var ErrNotAuthorized = errors.New("not authorized")

// Credentials holds what a scheme extracted from the request.
type Credentials struct {
	// Scheme is the extracting scheme's name ("basic", "bearer").
	Scheme string

	// Username and Password are set by the basic scheme.
	Username string
	Password string

	// Token is the raw bearer token; Claims its verified claims.
	Token  string
	Claims jwt.MapClaims
}

// Decision is an authorizer's verdict. Allow false denies with 403;
// Data carries derived authorization context for later stages.
type Decision struct {
	Allow bool
	Data  any
}

// Scheme extracts credentials of one type from an incoming request.
type Scheme interface {
	// Name reports the scheme type ("basic", "bearer").
	Name() string

	// Realm reports the protection realm, empty when none applies.
	Realm() string

	// Extract parses credentials from the request, reporting false when
	// the request carries none (or malformed ones) for this scheme.
	Extract(r *http.Request) (*Credentials, bool)
}

// Basic returns a scheme extracting RFC 7617 user-id/password pairs.
// The realm is used for the WWW-Authenticate challenge on 401 responses.
func Basic(realm string) Scheme {
	return &basicScheme{realm: realm}
}

type basicScheme struct {
	realm string
}

func (s *basicScheme) Name() string  { return "basic" }
func (s *basicScheme) Realm() string { return s.realm }

func (s *basicScheme) Extract(r *http.Request) (*Credentials, bool) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, false
	}
	return &Credentials{Scheme: "basic", Username: username, Password: password}, true
}

// Bearer returns a scheme extracting an HS256 bearer token from the
// Authorization header and verifying it against key. Tokens that fail
// verification are treated as absent.
func Bearer(key []byte) Scheme {
	return &bearerScheme{key: key}
}

type bearerScheme struct {
	key []byte
}

func (s *bearerScheme) Name() string  { return "bearer" }
func (s *bearerScheme) Realm() string { return "" }

func (s *bearerScheme) Extract(r *http.Request) (*Credentials, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return nil, false
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, false
	}
	raw := strings.TrimSpace(parts[1])

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}

	return &Credentials{Scheme: "bearer", Token: raw, Claims: claims}, true
}

// SecretsEqual compares two secrets in constant time.
func SecretsEqual(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
