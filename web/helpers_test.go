package web

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hashicorp/onboard/authclient"
	"github.com/stretchr/testify/require"
	"github.com/yhat/scrape"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	testName     = "Alice"
	testEmail    = "alice@example.com"
	testPassword = "correct-horse-battery"
)

// testBrowser drives a web Server over HTTP like a browser: it keeps
// cookies, doesn't follow redirects and echoes the csrf token on POSTs.
type testBrowser struct {
	t      *testing.T
	base   *url.URL
	client *http.Client
	jar    *cookiejar.Jar
}

// startTestWeb starts an auth TestServer with one user and a web Server in
// front of it.
func startTestWeb(t *testing.T, opt ...Option) (*authclient.TestServer, *testBrowser) {
	t.Helper()
	ts := authclient.StartTestServer(t)
	ts.AddUser(testName, testEmail, testPassword)
	s, err := NewServer(ts.Client(), append([]Option{WithPublicURL(authclient.TestOrigin)}, opt...)...)
	require.NoError(t, err)
	return ts, newTestBrowser(t, s)
}

func newTestBrowser(t *testing.T, h http.Handler) *testBrowser {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	base, err := url.Parse(srv.URL)
	require.NoError(t, err)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testBrowser{
		t:    t,
		base: base,
		jar:  jar,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *testBrowser) get(path string, header ...string) (*http.Response, string) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base.String()+path, nil)
	require.NoError(b.t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return b.do(req)
}

// post submits form with the browser's csrf token, fetching a page first
// when the browser has none yet.
func (b *testBrowser) post(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if _, ok := form[CSRFFieldName]; !ok {
		form.Set(CSRFFieldName, b.csrfToken())
	}
	return b.postRaw(path, form)
}

func (b *testBrowser) postRaw(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base.String()+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *testBrowser) do(req *http.Request) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp, string(body)
}

func (b *testBrowser) cookie(name string) *http.Cookie {
	for _, c := range b.jar.Cookies(b.base) {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (b *testBrowser) csrfToken() string {
	b.t.Helper()
	if c := b.cookie(CSRFCookieName); c != nil {
		return c.Value
	}
	b.get(SignInPath)
	c := b.cookie(CSRFCookieName)
	require.NotNil(b.t, c, "no csrf cookie issued")
	return c.Value
}

func (b *testBrowser) signIn() {
	b.t.Helper()
	resp, _ := b.post(SignInPath, url.Values{"email": {testEmail}, "password": {testPassword}})
	require.Equal(b.t, http.StatusSeeOther, resp.StatusCode)
	require.NotNil(b.t, b.cookie(authclient.TestSessionCookie))
}

// parseMain parses a document and returns its <main> element.
func parseMain(t *testing.T, body string) (*html.Node, *html.Node) {
	t.Helper()
	root, err := html.Parse(strings.NewReader(body))
	require.NoError(t, err)
	main, ok := scrape.Find(root, scrape.ByTag(atom.Main))
	require.True(t, ok, "document has no <main>")
	return root, main
}

// elementChildren returns the element children of n, ignoring text.
func elementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// findAttr finds the first element below n with the attribute value.
func findAttr(n *html.Node, key, val string) (*html.Node, bool) {
	return scrape.Find(n, func(n *html.Node) bool {
		return n.Type == html.ElementNode && scrape.Attr(n, key) == val
	})
}

type recordingNavigator struct {
	pushes []string
}

func (n *recordingNavigator) navigatorFunc(http.ResponseWriter, *http.Request) Navigator {
	return n
}

func (n *recordingNavigator) Push(path string) {
	n.pushes = append(n.pushes, path)
}
