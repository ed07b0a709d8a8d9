package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// CookieConfig describes the session cookie handed to browsers.
type CookieConfig struct {
	Name   string
	Secure bool
}

// set issues a browser-session cookie; the server enforces the idle timeout.
func (cc CookieConfig) set(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     cc.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (cc CookieConfig) clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     cc.Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}
