// Package browser exposes the page primitives the pipeline drives.
//
// Page is the only type the crawler, resolver and pipeline depend on. Chrome
// implements it with chromedp; tests use the scripted fake in testsupport.
package browser

import "context"

// Response is a network response observed by a listener or returned by Fetch.
type Response struct {
	URL         string
	Status      int
	ContentType string
	Body        []byte
}

// Cookie mirrors one entry of the credential bundle.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
}

// Page is a single browser tab.
//
// Listen registers fn for every completed response whose URL satisfies match
// and returns a function that deregisters it. fn may be called from another
// goroutine and must not block.
type Page interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Click(ctx context.Context, selector string) error
	WaitSettled(ctx context.Context) error
	Listen(match func(url string) bool, fn func(Response)) (cancel func())
	Fetch(ctx context.Context, url string) (Response, error)
	SetCookies(ctx context.Context, cookies []Cookie) error
	Cookies(ctx context.Context) ([]Cookie, error)
	Close() error
}
