package linkpreview

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"
)

// URLPolicy decides which URLs, including redirect targets, may be fetched for a preview.
type URLPolicy interface {
	IsPermitted(ctx context.Context, u *url.URL) bool
}

// PolicyFunc adapts a function to URLPolicy.
type PolicyFunc func(ctx context.Context, u *url.URL) bool

func (f PolicyFunc) IsPermitted(ctx context.Context, u *url.URL) bool {
	return f(ctx, u)
}

// DefaultPolicy only allows https URLs on public hosts.
type DefaultPolicy struct {
	Resolver      *net.Resolver
	LookupTimeout time.Duration
}

func NewDefaultPolicy() *DefaultPolicy {
	return &DefaultPolicy{
		Resolver:      net.DefaultResolver,
		LookupTimeout: time.Second,
	}
}

func (p *DefaultPolicy) IsPermitted(ctx context.Context, u *url.URL) bool {
	if u == nil || !strings.EqualFold(u.Scheme, "https") {
		return false
	}
	if u.User != nil {
		return false
	}
	return p.permitsHost(ctx, u.Hostname())
}

func (p *DefaultPolicy) permitsHost(ctx context.Context, host string) bool {
	if host == "" {
		return false
	}

	lowerHost := strings.ToLower(host)
	if lowerHost == "localhost" || strings.HasSuffix(lowerHost, ".localhost") {
		return false
	}

	if ip := net.ParseIP(host); ip != nil {
		return !isPrivateIP(ip)
	}

	// Bare hostnames never resolve to a public site.
	if !strings.Contains(strings.Trim(lowerHost, "."), ".") {
		return false
	}

	if p.Resolver == nil {
		return true
	}

	lookupCtx, cancel := context.WithTimeout(ctx, p.LookupTimeout)
	defer cancel()

	ips, err := p.Resolver.LookupIP(lookupCtx, "ip", host)
	if err != nil {
		// The dial will fail on its own.
		return true
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return false
		}
	}
	return true
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalMulticast() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return true
	}

	if ip4 := ip.To4(); ip4 != nil {
		switch {
		case ip4[0] == 10:
			return true
		case ip4[0] == 172 && ip4[1]&0xf0 == 16:
			return true
		case ip4[0] == 192 && ip4[1] == 168:
			return true
		case ip4[0] == 127:
			return true
		case ip4[0] == 169 && ip4[1] == 254:
			return true
		case ip4[0] == 100 && ip4[1]&0xc0 == 64:
			return true
		}
	}

	return ip.IsPrivate()
}
