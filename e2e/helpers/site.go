package helpers

import (
	"context"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/MichalMitros/evend-publisher/internal/platform"
	"github.com/MichalMitros/evend-publisher/internal/platform/models"
	"github.com/MichalMitros/evend-publisher/internal/publisher"
)

const sessionCookie = "e2e-session"

// Submission is a listing form received by Site.
type Submission struct {
	Fields map[string]string
	Images [][]byte
}

// Site is a scripted e-Vend server driven by the browsers it launches.
type Site struct {
	mu          sync.Mutex
	site        publisher.Site
	fileInputs  int
	logins      int
	launched    int
	submissions []Submission
}

// NewSite returns Site laid out as site with fileInputs image inputs on the listing form.
func NewSite(site publisher.Site, fileInputs int) *Site {
	return &Site{site: site, fileInputs: fileInputs}
}

// NewBrowser launches a browser with an empty cookie jar.
func (s *Site) NewBrowser(context.Context) (publisher.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.launched++

	return &browser{site: s, fields: map[string]string{}}, nil
}

// Submissions returns received listing forms in submission order.
func (s *Site) Submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Submission(nil), s.submissions...)
}

// Logins returns number of submitted login forms.
func (s *Site) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.logins
}

// Launched returns number of launched browsers.
func (s *Site) Launched() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.launched
}

type browser struct {
	site    *Site
	url     string
	cookies []models.Cookie
	fields  map[string]string
	images  [][]byte
}

func (b *browser) authenticated() bool {
	for _, c := range b.cookies {
		if c.Value == sessionCookie {
			return true
		}
	}

	return false
}

func (b *browser) Navigate(_ context.Context, url string) error {
	b.url = url
	if url == b.site.site.NewListingURL {
		b.fields = map[string]string{}
		b.images = nil
	}

	return nil
}

func (b *browser) WaitFor(_ context.Context, selector string, _ time.Duration) (bool, error) {
	sel := b.site.site.Selectors

	switch selector {
	case sel.LoginEmail:
		return b.url == b.site.site.LoginURL, nil
	case sel.Dashboard:
		return b.url == b.site.site.LoginURL && b.authenticated(), nil
	case sel.FormReady:
		return b.url == b.site.site.NewListingURL && b.authenticated(), nil
	case sel.Success:
		return true, nil
	default:
		return false, nil
	}
}

func (b *browser) Fill(_ context.Context, selector, value string, _ bool) error {
	b.fields[selector] = value
	return nil
}

func (b *browser) CheckRadio(_ context.Context, name, value string) error {
	b.fields["radio:"+name] = value
	return nil
}

func (b *browser) FileInputs(context.Context, string) (int, error) {
	return b.site.fileInputs, nil
}

func (b *browser) Upload(_ context.Context, _ string, index int, path string) error {
	if index >= b.site.fileInputs {
		return platform.ErrElementNotFound
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	b.images = append(b.images, content)

	return nil
}

func (b *browser) Click(_ context.Context, selector string) error {
	sel := b.site.site.Selectors

	b.site.mu.Lock()
	defer b.site.mu.Unlock()

	switch selector {
	case sel.LoginSubmit:
		b.site.logins++
		if b.fields[sel.LoginEmail] != "" && b.fields[sel.LoginPassword] != "" {
			b.cookies = []models.Cookie{{Name: "sid", Value: sessionCookie, Domain: ".e-vend.ca", Path: "/", Expires: -1}}
		}
	case sel.Submit:
		b.site.submissions = append(b.site.submissions, Submission{
			Fields: maps.Clone(b.fields),
			Images: b.images,
		})
	}

	return nil
}

func (b *browser) Cookies(context.Context) ([]models.Cookie, error) {
	return b.cookies, nil
}

func (b *browser) SetCookies(_ context.Context, cookies []models.Cookie) error {
	b.cookies = cookies
	return nil
}

func (b *browser) Close() error {
	return nil
}
