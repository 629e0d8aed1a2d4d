package device

import (
	"context"

	"github.com/halowlab/halowdiag/internal/reconnect"
	"github.com/halowlab/halowdiag/internal/rpc"
)

// Section is one UCI section: ".name", ".type" and its options. List
// options decode as []any.
type Section map[string]any

// UCI is the remote device's configuration store.
type UCI struct {
	get     func(ctx context.Context, args ...any) (map[string]Section, error)
	order   func(ctx context.Context, args ...any) (struct{}, error)
	add     func(ctx context.Context, args ...any) (string, error)
	set     func(ctx context.Context, args ...any) (struct{}, error)
	del     func(ctx context.Context, args ...any) (struct{}, error)
	apply   func(ctx context.Context, args ...any) (struct{}, error)
	confirm func(ctx context.Context, args ...any) (struct{}, error)
	changes func(ctx context.Context, args ...any) (reconnect.ChangeSet, error)
}

func newUCI(c *rpc.Client) *UCI {
	m := func(method string, params ...string) rpc.Method {
		return rpc.Method{Object: "uci", Method: method, Params: params, Reject: true}
	}

	get := m("get", "config")
	get.Expect = "values"
	add := m("add", "config", "type", "name", "values")
	add.Expect = "section"

	return &UCI{
		get:     rpc.Declare[map[string]Section](c, get),
		order:   rpc.Declare[struct{}](c, m("order", "config", "sections")),
		add:     rpc.Declare[string](c, add),
		set:     rpc.Declare[struct{}](c, m("set", "config", "section", "values")),
		del:     rpc.Declare[struct{}](c, m("delete", "config", "section", "options")),
		apply:   rpc.Declare[struct{}](c, m("apply", "timeout", "rollback")),
		confirm: rpc.Declare[struct{}](c, m("confirm")),
		changes: rpc.Declare[reconnect.ChangeSet](c, rpc.Method{
			Object: "uci", Method: "changes", Expect: "changes",
		}),
	}
}

// Get returns every section of config.
func (u *UCI) Get(ctx context.Context, config string) (map[string]Section, error) {
	return u.get(ctx, config)
}

// Order sets the order of the named sections.
func (u *UCI) Order(ctx context.Context, config string, sections []string) error {
	_, err := u.order(ctx, config, sections)
	return err
}

// Add creates a section of type typ and returns its name. An empty name
// creates an anonymous section.
func (u *UCI) Add(ctx context.Context, config, typ, name string, values map[string]any) (string, error) {
	return u.add(ctx, config, typ, optional(name), optionalMap(values))
}

// Set changes options of a section.
func (u *UCI) Set(ctx context.Context, config, section string, values map[string]any) error {
	_, err := u.set(ctx, config, section, optionalMap(values))
	return err
}

// Delete removes options of a section, or the whole section when options
// is empty.
func (u *UCI) Delete(ctx context.Context, config, section string, options []string) error {
	var opts any
	if len(options) > 0 {
		opts = options
	}
	_, err := u.del(ctx, config, section, opts)
	return err
}

// Apply commits staged changes. With rollback, the device reverts unless
// Confirm is called within timeout seconds.
func (u *UCI) Apply(ctx context.Context, timeout int, rollback bool) error {
	_, err := u.apply(ctx, timeout, rollback)
	return err
}

// Confirm keeps changes applied with rollback.
func (u *UCI) Confirm(ctx context.Context) error {
	_, err := u.confirm(ctx)
	return err
}

// Changes returns the staged changes per config. Failures yield an empty
// set.
func (u *UCI) Changes(ctx context.Context) (reconnect.ChangeSet, error) {
	return u.changes(ctx)
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func optionalMap(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	return m
}
