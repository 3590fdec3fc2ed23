package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/Masterminds/sprig/v3"
	"github.com/hashicorp/onboard/authclient"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(
	template.New("onboard").Funcs(funcMap()).ParseFS(templatesFS, "templates/*.html"),
)

// defaultMetadata is used by pages rendered outside of any layout.
var defaultMetadata = Metadata{Title: "onboard"}

func funcMap() template.FuncMap {
	fm := sprig.HtmlFuncMap()
	fm["providerLabel"] = providerLabel
	return fm
}

// providerLabel is the display name of a social provider (ex: "google" is
// "Google").
func providerLabel(p authclient.Provider) string {
	return cases.Title(language.English).String(string(p))
}

// FormResult is what a Form produced for a request which did not navigate
// away: the fragment to place in the page and the status to answer with.
type FormResult struct {
	Status int
	Body   template.HTML
}

type documentView struct {
	Meta    Metadata
	Content template.HTML
}

// fragment executes the named template into HTML to embed in a document.
func fragment(name string, data interface{}) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// renderDocument writes the full page around res. The title and
// description come from the metadata a layout attached to the request.
func renderDocument(w http.ResponseWriter, r *http.Request, res FormResult) {
	meta, ok := MetadataFromContext(r.Context())
	if !ok {
		meta = defaultMetadata
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "document", documentView{Meta: meta, Content: res.Body}); err != nil {
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderFragment renders the named template as the only content of a page.
func renderFragment(w http.ResponseWriter, r *http.Request, name string, data interface{}, status int) {
	body, err := fragment(name, data)
	if err != nil {
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	renderDocument(w, r, FormResult{Status: status, Body: body})
}
