package fetcher

import (
	"context"
	"time"

	"github.com/use-agent/vahanfetch/models"
)

// fakeElement is a scriptable Element that counts interactions.
type fakeElement struct {
	clickErr    error
	activateErr error
	onActivate  func()
	onClick     func() // fires on successful Click or Activate

	clicks    int
	scrolls   int
	activates int
}

func (e *fakeElement) Click() error {
	e.clicks++
	if e.clickErr != nil {
		return e.clickErr
	}
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

func (e *fakeElement) ScrollIntoView() error {
	e.scrolls++
	return nil
}

func (e *fakeElement) Activate() error {
	e.activates++
	if e.activateErr != nil {
		return e.activateErr
	}
	if e.onActivate != nil {
		e.onActivate()
	} else if e.onClick != nil {
		e.onClick()
	}
	return nil
}

// scriptedSession is a Session fake whose Find behavior is supplied per test.
type scriptedSession struct {
	navErr    error
	navs      int
	markup    string
	markupErr error
	shot      []byte
	shotErr   error
	cookie    string

	finds  []string // every expr requested, in order
	onFind func(kind models.SelectorKind, expr string) (Element, error)
}

func (s *scriptedSession) Navigate(ctx context.Context, url string) error {
	s.navs++
	return s.navErr
}

func (s *scriptedSession) Find(ctx context.Context, kind models.SelectorKind, expr string, timeout time.Duration) (Element, error) {
	s.finds = append(s.finds, expr)
	if s.onFind != nil {
		return s.onFind(kind, expr)
	}
	return nil, models.ErrNotFound
}

func (s *scriptedSession) Markup(ctx context.Context) (string, error) {
	return s.markup, s.markupErr
}

func (s *scriptedSession) Screenshot(ctx context.Context) ([]byte, error) {
	if s.shotErr != nil {
		return nil, s.shotErr
	}
	if s.shot == nil {
		return []byte("png"), nil
	}
	return s.shot, nil
}

func (s *scriptedSession) CookieHeader(ctx context.Context) (string, error) {
	return s.cookie, nil
}
