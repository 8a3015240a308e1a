// Package hxmodalecho mounts the account server on an Echo instance.
//
//	e := echo.New()
//	srv := hxmodalecho.Mount(e, hxmodalecho.WithKey(secret))
//
// Or on a root group to share its middleware:
//
//	g := e.Group("", authMiddleware)
//	srv := hxmodalecho.MountGroup(g)
//
// The page links to root-relative URLs, so the group must not carry a path
// prefix.
package hxmodalecho

import (
	"crypto/rand"
	"fmt"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/pthm/hxmodal/lib/accounts"
	"github.com/pthm/hxmodal/lib/encoding"
)

// Option configures the Mount and MountGroup functions.
type Option func(*options)

type options struct {
	key        []byte
	serverOpts []accounts.Option
}

// WithKey sets the key form tickets are signed with.
// If not provided, a random key is generated (suitable for development only).
func WithKey(key []byte) Option {
	return func(o *options) {
		o.key = key
	}
}

// WithServerOptions passes options through to the account server.
func WithServerOptions(opts ...accounts.Option) Option {
	return func(o *options) {
		o.serverOpts = append(o.serverOpts, opts...)
	}
}

// Mount creates an account server and routes every path of e to it.
func Mount(e *echo.Echo, opts ...Option) *accounts.Server {
	srv := newServer(opts)
	e.Any("/*", echo.WrapHandler(srv.Handler()))
	return srv
}

// MountGroup creates an account server and routes every path of g to it.
func MountGroup(g *echo.Group, opts ...Option) *accounts.Server {
	srv := newServer(opts)
	g.Any("/*", echo.WrapHandler(srv.Handler()))
	return srv
}

func newServer(opts []Option) *accounts.Server {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	key := o.key
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("hxmodalecho: failed to generate random key: %v", err))
		}
	}
	enc, err := encoding.NewEncoder(key)
	if err != nil {
		panic(fmt.Sprintf("hxmodalecho: %v", err))
	}
	return accounts.NewServer(enc, o.serverOpts...)
}

// Render writes a templ component to the Echo response.
//
//	func handler(c echo.Context) error {
//	    return hxmodalecho.Render(c, accounts.Page(data))
//	}
func Render(c echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	return component.Render(c.Request().Context(), c.Response())
}
