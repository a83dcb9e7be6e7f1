package tenants

import (
	"fmt"
	"net"
	"strings"
)

const (
	Portal = "portal"
	CTR    = "ctr"
	Web    = "web"
)

type MatchKind string

const (
	MatchExact  MatchKind = "exact"
	MatchPrefix MatchKind = "prefix"
)

// Rule maps a normalized host to a tenant.
type Rule struct {
	Match   MatchKind
	Pattern string
	Tenant  string
}

func (r Rule) matches(host string) bool {
	switch r.Match {
	case MatchExact:
		return host == r.Pattern
	case MatchPrefix:
		return strings.HasPrefix(host, r.Pattern)
	}
	return false
}

// Tenant describes one sub-application.
type Tenant struct {
	Name          string
	StaticRoot    string
	ViewNamespace string
	// Landing is the view rendered for "/". Empty redirects to /communities.
	Landing string
}

// Table resolves hosts to tenants. Rules are evaluated in order.
type Table struct {
	rules   []Rule
	tenants map[string]Tenant
	order   []string
	def     string
}

// DefaultRules are the stock host mappings.
func DefaultRules() []Rule {
	return []Rule{
		{Match: MatchPrefix, Pattern: "portal.", Tenant: Portal},
		{Match: MatchPrefix, Pattern: "ctr.", Tenant: CTR},
		{Match: MatchPrefix, Pattern: "www.", Tenant: Web},
	}
}

// DefaultTenants describes the portal, ctr and web sub-applications.
func DefaultTenants() []Tenant {
	return []Tenant{
		{Name: Portal, StaticRoot: "static/portal", ViewNamespace: Portal},
		{Name: CTR, StaticRoot: "static/ctr", ViewNamespace: CTR, Landing: "index"},
		{Name: Web, StaticRoot: "static/web", ViewNamespace: Web, Landing: "index"},
	}
}

// NewTable validates that every rule and the default point at known tenants.
func NewTable(rules []Rule, tenants []Tenant, defaultTenant string) (*Table, error) {
	t := &Table{
		rules:   append([]Rule(nil), rules...),
		tenants: make(map[string]Tenant, len(tenants)),
		def:     strings.ToLower(strings.TrimSpace(defaultTenant)),
	}
	for _, tenant := range tenants {
		if tenant.Name == "" {
			return nil, fmt.Errorf("tenant name is required")
		}
		if _, dup := t.tenants[tenant.Name]; dup {
			return nil, fmt.Errorf("duplicate tenant %q", tenant.Name)
		}
		t.tenants[tenant.Name] = tenant
		t.order = append(t.order, tenant.Name)
	}
	for i, rule := range t.rules {
		if rule.Match != MatchExact && rule.Match != MatchPrefix {
			return nil, fmt.Errorf("rule %d: unknown match kind %q", i, rule.Match)
		}
		if _, ok := t.tenants[rule.Tenant]; !ok {
			return nil, fmt.Errorf("rule %d: unknown tenant %q", i, rule.Tenant)
		}
		t.rules[i].Pattern = strings.ToLower(rule.Pattern)
	}
	if _, ok := t.tenants[t.def]; !ok {
		return nil, fmt.Errorf("default tenant %q is not defined", defaultTenant)
	}
	return t, nil
}

// NewDefaultTable builds the stock table with the given default tenant.
func NewDefaultTable(defaultTenant string) (*Table, error) {
	return NewTable(DefaultRules(), DefaultTenants(), defaultTenant)
}

// Resolve returns the tenant for a raw Host header value.
func (t *Table) Resolve(host string) Tenant {
	normalized := NormalizeHost(host)
	for _, rule := range t.rules {
		if rule.matches(normalized) {
			return t.tenants[rule.Tenant]
		}
	}
	return t.tenants[t.def]
}

// Default returns the fallback tenant.
func (t *Table) Default() Tenant {
	return t.tenants[t.def]
}

// Tenants lists the configured tenants in declaration order.
func (t *Table) Tenants() []Tenant {
	out := make([]Tenant, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.tenants[name])
	}
	return out
}

// NormalizeHost lower-cases host and strips any port and trailing dot.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	return strings.ToLower(host)
}
