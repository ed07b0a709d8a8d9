package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestCookieOrBearer(t *testing.T) {
	extract := CookieOrBearer("exam_session")
	e := echo.New()

	cases := []struct {
		name   string
		cookie string
		header string
		want   string
	}{
		{name: "cookie", cookie: "from-cookie", want: "from-cookie"},
		{name: "bearer", header: "Bearer from-header", want: "from-header"},
		{name: "bearer lowercase", header: "bearer abc", want: "abc"},
		{name: "cookie wins", cookie: "from-cookie", header: "Bearer from-header", want: "from-cookie"},
		{name: "other scheme", header: "Basic dXNlcjpwYXNz", want: ""},
		{name: "nothing", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "exam_session", Value: tc.cookie})
			}
			if tc.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.header)
			}
			c := e.NewContext(req, httptest.NewRecorder())

			if got := extract(c); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
