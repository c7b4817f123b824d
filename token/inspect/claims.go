package inspect

import (
	"encoding/json"
	"regexp"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-admin-auth/internal/errors"
	"github.com/jrsteele09/go-admin-auth/internal/utils"
)

var jwtFormat = regexp.MustCompile(`^[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*$`)

// Claims is the unverified payload of a token. It is for display and local bookkeeping
// only and must never be used to authorize anything.
type Claims map[string]any

// ClaimsUser is the display-facing projection of access token claims.
type ClaimsUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Exp      int64  `json:"exp"`
	Iat      int64  `json:"iat"`
	JTI      string `json:"jti"`
}

// DecodePayload reads the claims segment of a token without looking at its header or
// signature. Any malformed input yields ErrMalformedToken.
func DecodePayload(token string) (Claims, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) < 2 || parts[1] == "" {
		return nil, errors.ErrMalformedToken
	}
	raw, err := jwtlib.NewParser(jwtlib.WithPaddingAllowed()).DecodeSegment(parts[1])
	if err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedToken, "payload: %s", err.Error())
	}
	var mc jwtlib.MapClaims
	if err := json.Unmarshal(raw, &mc); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedToken, "payload: %s", err.Error())
	}
	if mc == nil {
		return nil, errors.ErrMalformedToken
	}
	return Claims(mc), nil
}

// IsValidFormat reports whether token has three base64url segments. The signature
// segment may be empty.
func IsValidFormat(token string) bool {
	return jwtFormat.MatchString(token)
}

func (c Claims) String(name string) string {
	s, _ := c[name].(string)
	return s
}

// Strings reads a claim that may be a single string or an array, such as "aud".
func (c Claims) Strings(name string) []string {
	switch v := c[name].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		return utils.ToStringSlice(v)
	}
	return nil
}

// Int64 reads a numeric claim. JSON numbers decode as float64.
func (c Claims) Int64(name string) (int64, bool) {
	switch v := c[name].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

func (c Claims) User() ClaimsUser {
	id, _ := c.Int64("user_id")
	exp, _ := c.Int64("exp")
	iat, _ := c.Int64("iat")
	return ClaimsUser{
		ID:       id,
		Username: c.String("username"),
		Role:     c.String("role"),
		Exp:      exp,
		Iat:      iat,
		JTI:      c.String("jti"),
	}
}
