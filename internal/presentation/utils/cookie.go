package utils

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/auth"
)

const (
	CookieAccessPrefix = "pfc_access_"
	HeaderAccessID     = "X-Access-Id"
	QueryAccessID      = "accessId"
)

// AccessID looks for a session access id in the query, then the header,
// then the per-session cookie.
func AccessID(r *http.Request, sessionID string) string {
	if v := r.URL.Query().Get(QueryAccessID); v != "" {
		return v
	}
	if v := r.Header.Get(HeaderAccessID); v != "" {
		return v
	}
	if cookie, err := r.Cookie(CookieAccessPrefix + sessionID); err == nil {
		return cookie.Value
	}
	return ""
}

func SetAccessCookie(w http.ResponseWriter, sessionID, accessID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieAccessPrefix + sessionID,
		Value:    accessID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(24 * 30 * time.Hour),
	})
}

// MemberFromRequest combines the signed-in user (if any) with the access id.
func MemberFromRequest(r *http.Request, sessionID string) *domain.Member {
	user, _ := auth.UserFromContext(r.Context())
	return domain.NewMember(user, AccessID(r, sessionID))
}

// ClientIP expects chi's RealIP middleware to have rewritten RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
