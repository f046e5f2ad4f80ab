package httpcache

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Subject returns the sub claim of the request's bearer token, or "" when
// there is none. The token signature is not verified: the subject only
// partitions the client's own cached responses and grants nothing.
func Subject(req *http.Request) string {
	token, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return ""
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

// SubjectKey returns a KeyFunc that prefixes the key from base (the request
// URL when base is nil) with the bearer token subject, so different users
// never share a cached response.
func SubjectKey(base KeyFunc) KeyFunc {
	return func(req *http.Request) string {
		key := req.URL.String()
		if base != nil {
			key = base(req)
		}
		return "sub=" + Subject(req) + "|" + key
	}
}
