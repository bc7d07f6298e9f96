package apiserver

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/contrib/renders/multitemplate"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

const (
	consoleTemplate = "console.html"
	// DefaultCDNAssets is where released console bundles are published.
	DefaultCDNAssets = "https://graphql-engine-cdn.hasura.io/console/assets"
)

//go:embed templates/*.html
var templates embed.FS

// ConsolePage is what the console index page is rendered with.
type ConsolePage struct {
	APIHost string
	APIPort string
	// DataAPIURL is the GraphQL engine the console talks to directly.
	DataAPIURL  string
	AdminSecret string

	CLIVersion    string
	ServerVersion string
	// AssetsVersion is the path of the bundle under CDNAssets, for example
	// channel/stable/v2.1.
	AssetsVersion string
	CDNAssets     string
}

func loadTemplates(names ...string) (multitemplate.Render, error) {
	r := multitemplate.New()
	for _, name := range names {
		b, err := templates.ReadFile("templates/" + name)
		if err != nil {
			return nil, errors.Wrap(err, "error reading template "+name)
		}
		tmpl, err := template.New(name).Parse(string(b))
		if err != nil {
			return nil, errors.Wrap(err, "error parsing template "+name)
		}
		r.Add(name, tmpl)
	}
	return r, nil
}

// setConsole renders the console for every GET the API routes do not
// handle, so client side routes survive a reload.
func (s *APIServer) setConsole(page *ConsolePage) error {
	render, err := loadTemplates(consoleTemplate)
	if err != nil {
		return err
	}
	if page.CDNAssets == "" {
		page.CDNAssets = DefaultCDNAssets
	}
	s.Router.HTMLRender = render
	s.Router.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || strings.HasPrefix(c.Request.URL.Path, "/apis/") {
			c.JSON(http.StatusNotFound, &Response{Code: "not_found", Message: "no such endpoint"})
			return
		}
		c.HTML(http.StatusOK, consoleTemplate, page)
	})
	return nil
}
