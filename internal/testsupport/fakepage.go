package testsupport

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"packrat/internal/browser"
)

// FakeDocument scripts what a FakePage shows for one URL.
type FakeDocument struct {
	// HTML is returned by Page.HTML while the document is current.
	HTML string
	// RedirectTo, when set, becomes the current URL after navigation.
	RedirectTo string
	// Responses are delivered to matching listeners during navigation.
	Responses []browser.Response
	// Links maps a clickable selector to the URL it navigates to.
	Links map[string]string
	// Hang makes navigation block until the context ends.
	Hang bool
	// Err is returned from Navigate.
	Err error
}

type fakeListener struct {
	match func(string) bool
	fn    func(browser.Response)
}

// FakePage is a scripted in-memory browser.Page that records the order of
// calls the pipeline makes against it.
type FakePage struct {
	Documents map[string]*FakeDocument
	Fetches   map[string]browser.Response
	ClickErr  error

	// WaitSettledErr, when set, is returned from every WaitSettled call.
	WaitSettledErr error

	mu        sync.Mutex
	current   string
	calls     []string
	listeners map[int]fakeListener
	nextID    int
	cookies   []browser.Cookie
	closed    bool
}

var _ browser.Page = (*FakePage)(nil)

// NewFakePage returns an empty FakePage.
func NewFakePage() *FakePage {
	return &FakePage{
		Documents: make(map[string]*FakeDocument),
		Fetches:   make(map[string]browser.Response),
		listeners: make(map[int]fakeListener),
	}
}

// AddDocument registers doc at url and returns it for further scripting.
func (p *FakePage) AddDocument(url string, doc *FakeDocument) *FakeDocument {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Documents[url] = doc
	return doc
}

// Calls returns the recorded call log.
func (p *FakePage) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// CallsWithPrefix returns the recorded calls that start with prefix.
func (p *FakePage) CallsWithPrefix(prefix string) []string {
	var out []string
	for _, call := range p.Calls() {
		if strings.HasPrefix(call, prefix) {
			out = append(out, call)
		}
	}
	return out
}

// ActiveListeners reports how many listeners are registered.
func (p *FakePage) ActiveListeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

// Closed reports whether Close was called.
func (p *FakePage) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *FakePage) record(call string) {
	p.calls = append(p.calls, call)
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	p.record("navigate " + url)
	p.mu.Unlock()
	return p.load(ctx, url)
}

func (p *FakePage) load(ctx context.Context, url string) error {
	p.mu.Lock()
	doc, ok := p.Documents[url]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("fake page: no document for %s", url)
	}
	if doc.Err != nil {
		p.mu.Unlock()
		return doc.Err
	}
	if doc.Hang {
		p.mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	}
	p.current = url
	if doc.RedirectTo != "" {
		p.current = doc.RedirectTo
	}
	listeners := p.snapshotListeners()
	responses := append([]browser.Response(nil), doc.Responses...)
	p.mu.Unlock()

	for _, resp := range responses {
		for _, l := range listeners {
			if l.match(resp.URL) {
				l.fn(resp)
			}
		}
	}
	return nil
}

func (p *FakePage) snapshotListeners() []fakeListener {
	ids := make([]int, 0, len(p.listeners))
	for id := range p.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]fakeListener, 0, len(ids))
	for _, id := range ids {
		out = append(out, p.listeners[id])
	}
	return out
}

func (p *FakePage) CurrentURL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, nil
}

func (p *FakePage) HTML(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	doc, ok := p.Documents[p.current]
	if !ok {
		return "<html><body></body></html>", nil
	}
	return doc.HTML, nil
}

func (p *FakePage) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	p.record("click " + selector)
	if p.ClickErr != nil {
		err := p.ClickErr
		p.mu.Unlock()
		return err
	}
	doc := p.Documents[p.current]
	var target string
	if doc != nil {
		target = doc.Links[selector]
	}
	p.mu.Unlock()
	if target == "" {
		return errors.New("fake page: nothing to click for " + selector)
	}
	return p.load(ctx, target)
}

func (p *FakePage) WaitSettled(ctx context.Context) error {
	p.mu.Lock()
	p.record("wait_settled")
	err := p.WaitSettledErr
	p.mu.Unlock()
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (p *FakePage) Listen(match func(string) bool, fn func(browser.Response)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fakeListener{match: match, fn: fn}
	p.record("listen")
	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.listeners, id)
			p.record("unlisten")
		})
	}
}

func (p *FakePage) Fetch(_ context.Context, url string) (browser.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("fetch " + url)
	resp, ok := p.Fetches[url]
	if !ok {
		return browser.Response{URL: url, Status: 404, Body: []byte(`{"error":"not found"}`)}, nil
	}
	if resp.URL == "" {
		resp.URL = url
	}
	return resp, nil
}

func (p *FakePage) SetCookies(_ context.Context, cookies []browser.Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("set_cookies")
	p.cookies = append([]browser.Cookie(nil), cookies...)
	return nil
}

func (p *FakePage) Cookies(context.Context) ([]browser.Cookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]browser.Cookie(nil), p.cookies...), nil
}

func (p *FakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
