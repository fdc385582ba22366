package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RefreshCookieName is the cookie that carries the refresh token.
const RefreshCookieName = "refresh_token"

type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
	Path   string
}

// SetRefreshCookie stores token in an HttpOnly, SameSite=Lax cookie.
func SetRefreshCookie(c *gin.Context, token string, opts CookieOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(RefreshCookieName, token, int(opts.MaxAge.Seconds()), cookiePath(opts), "", opts.Secure, true)
}

// ClearRefreshCookie expires the refresh cookie on the client.
func ClearRefreshCookie(c *gin.Context, opts CookieOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(RefreshCookieName, "", -1, cookiePath(opts), "", opts.Secure, true)
}

// RefreshTokenFromCookie returns the refresh token sent by the client, or "".
func RefreshTokenFromCookie(c *gin.Context) string {
	v, err := c.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return v
}

func cookiePath(opts CookieOptions) string {
	if opts.Path == "" {
		return "/"
	}
	return opts.Path
}
