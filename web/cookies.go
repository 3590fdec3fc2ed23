package web

import "net/http"

// relayCookies copies cookies the auth service set onto the browser
// response. The Domain attribute is dropped so each cookie binds to the
// host serving the pages.
func relayCookies(w http.ResponseWriter, cookies []*http.Cookie, secure bool) {
	for _, c := range cookies {
		if c == nil {
			continue
		}
		cp := *c
		cp.Domain = ""
		cp.Raw = ""
		if secure {
			cp.Secure = true
		}
		http.SetCookie(w, &cp)
	}
}

// forwardedCookies are the browser's cookies meant for the auth service:
// all of them except the ones this server owns.
func forwardedCookies(r *http.Request) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range r.Cookies() {
		if c.Name == CSRFCookieName {
			continue
		}
		out = append(out, c)
	}
	return out
}
