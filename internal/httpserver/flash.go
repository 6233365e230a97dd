package httpserver

import (
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultFlashCookie = "wa_flash"
	defaultFlashTTL    = 5 * time.Minute

	maxOldValueBytes = 1024
	// browsers drop cookies over 4096 bytes including the name and attributes
	maxFlashCookieBytes = 3800
)

// Flash is state that survives exactly one redirect.
type Flash struct {
	Success string            `json:"success,omitempty"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
	Old     map[string]string `json:"old,omitempty"`
}

type flashClaims struct {
	Flash
	jwt.RegisteredClaims
}

// FlashStore keeps the flash in an HS256-signed cookie so it cannot be forged
// by the client.
type FlashStore struct {
	Key        []byte
	CookieName string
	TTL        time.Duration
	Secure     bool
}

func NewFlashStore(key string) *FlashStore {
	return &FlashStore{Key: []byte(key), CookieName: defaultFlashCookie, TTL: defaultFlashTTL}
}

func (s *FlashStore) Set(w http.ResponseWriter, f Flash) error {
	if len(s.Key) == 0 {
		return errors.New("flash: signing key missing")
	}
	if f.Old != nil {
		old := make(map[string]string, len(f.Old))
		for k, v := range f.Old {
			old[k] = truncate(v, maxOldValueBytes)
		}
		f.Old = old
	}

	signed, err := s.sign(f)
	if err != nil {
		return err
	}
	if len(signed) > maxFlashCookieBytes && f.Old != nil {
		f.Old = nil
		if signed, err = s.sign(f); err != nil {
			return err
		}
	}
	for len(signed) > maxFlashCookieBytes && (f.Error != "" || f.Success != "") {
		// every dropped byte shrinks the encoding by at least one byte
		cut := len(signed) - maxFlashCookieBytes
		f.Error = truncate(f.Error, max(len(f.Error)-cut, 0))
		f.Success = truncate(f.Success, max(len(f.Success)-cut, 0))
		if signed, err = s.sign(f); err != nil {
			return err
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName(),
		Value:    signed,
		Path:     "/",
		MaxAge:   int(s.ttl().Seconds()),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *FlashStore) sign(f Flash) (string, error) {
	now := time.Now()
	claims := flashClaims{
		Flash: f,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl())),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Key)
}

// Pop returns the pending flash and clears it. A missing, expired or tampered
// cookie yields an empty flash.
func (s *FlashStore) Pop(w http.ResponseWriter, r *http.Request) Flash {
	c, err := r.Cookie(s.cookieName())
	if err != nil {
		return Flash{}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	claims := &flashClaims{}
	_, err = jwt.ParseWithClaims(c.Value, claims, func(t *jwt.Token) (any, error) {
		return s.Key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Flash{}
	}
	return claims.Flash
}

func (s *FlashStore) cookieName() string {
	if s.CookieName == "" {
		return defaultFlashCookie
	}
	return s.CookieName
}

func (s *FlashStore) ttl() time.Duration {
	if s.TTL <= 0 {
		return defaultFlashTTL
	}
	return s.TTL
}

func truncate(v string, n int) string {
	if len(v) <= n {
		return v
	}
	v = v[:n]
	for len(v) > 0 && !utf8.ValidString(v) {
		v = v[:len(v)-1]
	}
	return v
}
