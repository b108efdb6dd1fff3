package usecase

import (
	"net/url"
	"path"
	"strings"

	"chat-widget/internal/domain"
	"chat-widget/internal/infra/config"
)

// ResolvePolicy carries the deployment constants the endpoint resolver
// needs besides the page signals in domain.EndpointConfig.
type ResolvePolicy struct {
	ChatPath      string // appended to hosting-pattern and fallback origins
	LocalEndpoint string // used for loopback pages
	Fallback      string // config.FallbackSameOrigin or config.FallbackDefaultOrigin
	DefaultOrigin string // origin for the default_origin fallback
}

// PolicyFromConfig extracts the resolve policy from widget configuration.
func PolicyFromConfig(w config.WidgetConfig) ResolvePolicy {
	return ResolvePolicy{
		ChatPath:      w.ChatPath,
		LocalEndpoint: w.LocalEndpoint,
		Fallback:      w.Fallback,
		DefaultOrigin: w.DefaultOrigin,
	}
}

var loopbackHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

// NewEndpointConfig derives resolver signals from the embedding host's
// explicit override and the page URL. Hostnames are compared lowercased
// and without port.
func NewEndpointConfig(explicit, pageURL string, hostingPatterns []string) domain.EndpointConfig {
	ec := domain.EndpointConfig{ExplicitURL: strings.TrimSpace(explicit)}

	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || u.Host == "" {
		return ec
	}
	ec.Hostname = strings.ToLower(u.Hostname())
	ec.Origin = u.Scheme + "://" + u.Host
	ec.IsLocal = loopbackHosts[ec.Hostname]
	ec.IsKnownHostingPattern = matchesHostingPattern(ec.Hostname, hostingPatterns)
	return ec
}

func matchesHostingPattern(hostname string, patterns []string) bool {
	if hostname == "" {
		return false
	}
	for _, p := range patterns {
		if ok, err := path.Match(strings.ToLower(p), hostname); err == nil && ok {
			return true
		}
	}
	return false
}

// ResolveEndpoint picks the chat endpoint. The first matching rule wins:
// explicit override, known hosting pattern, loopback page, then the
// fallback policy. It always returns a non-nil URL.
func ResolveEndpoint(ec domain.EndpointConfig, p ResolvePolicy) *url.URL {
	if ec.ExplicitURL != "" {
		return explicitEndpoint(ec, p)
	}

	if ec.IsKnownHostingPattern {
		return &url.URL{Scheme: "https", Host: hostForURL(ec.Hostname), Path: p.ChatPath}
	}

	if ec.IsLocal {
		if u, err := url.Parse(p.LocalEndpoint); err == nil && u.Host != "" {
			return u
		}
	}

	origin := p.DefaultOrigin
	if p.Fallback == config.FallbackSameOrigin && ec.Origin != "" {
		origin = ec.Origin
	}
	if base, err := url.Parse(origin); err == nil && base.Host != "" {
		return base.JoinPath(p.ChatPath)
	}
	return &url.URL{Path: p.ChatPath}
}

// explicitEndpoint honors the override as given. A relative override is
// resolved against the page or default origin when one exists and is
// otherwise returned unchanged. An unparseable override is carried
// verbatim so the request fails on it rather than reaching another backend.
func explicitEndpoint(ec domain.EndpointConfig, p ResolvePolicy) *url.URL {
	u, err := url.Parse(ec.ExplicitURL)
	if err != nil {
		return &url.URL{Opaque: ec.ExplicitURL}
	}
	if u.IsAbs() && u.Host != "" {
		return u
	}
	if base := originURL(ec.Origin, p.DefaultOrigin); base != nil {
		return base.ResolveReference(u)
	}
	return u
}

// OriginHint returns the X-Origin-Domain value for the page: its origin, or
// its bare hostname when hint is config.OriginHintHostname.
func OriginHint(ec domain.EndpointConfig, hint string) string {
	if hint == config.OriginHintHostname {
		return ec.Hostname
	}
	return ec.Origin
}

func originURL(candidates ...string) *url.URL {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if u, err := url.Parse(c); err == nil && u.Host != "" {
			return u
		}
	}
	return nil
}

// hostForURL brackets bare IPv6 literals so they survive URL assembly.
func hostForURL(hostname string) string {
	if strings.Contains(hostname, ":") {
		return "[" + hostname + "]"
	}
	return hostname
}
