package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chat-widget/internal/domain"
	"chat-widget/internal/infra/config"
)

func TestResolveEndpoint(t *testing.T) {
	defaults := config.Defaults().Widget
	policy := PolicyFromConfig(defaults)
	defaultOriginPolicy := policy
	defaultOriginPolicy.Fallback = config.FallbackDefaultOrigin
	noOriginPolicy := policy
	noOriginPolicy.DefaultOrigin = ""

	tests := []struct {
		name     string
		explicit string
		page     string
		policy   ResolvePolicy
		want     string
	}{
		{
			name:     "explicit wins over hosting pattern",
			explicit: "https://bot.example.com/api/chat",
			page:     "https://foo.app.github.dev/",
			policy:   policy,
			want:     "https://bot.example.com/api/chat",
		},
		{
			name:     "explicit wins over local",
			explicit: "https://bot.example.com/api/chat",
			page:     "http://localhost:3000/",
			policy:   policy,
			want:     "https://bot.example.com/api/chat",
		},
		{
			name:     "relative explicit joins page origin",
			explicit: "/api/chat",
			page:     "https://shop.example.com:8443/products/1",
			policy:   policy,
			want:     "https://shop.example.com:8443/api/chat",
		},
		{
			name:     "relative explicit without page uses default origin",
			explicit: "/api/chat",
			policy:   policy,
			want:     defaults.DefaultOrigin + "/api/chat",
		},
		{
			name:     "relative explicit without any origin is kept as given",
			explicit: "/api/chat",
			policy:   noOriginPolicy,
			want:     "/api/chat",
		},
		{
			name:     "unparseable explicit is not replaced by local endpoint",
			explicit: "http://[::1",
			page:     "http://localhost:3000/",
			policy:   policy,
			want:     "http://[::1",
		},
		{
			name:     "unparseable explicit is not replaced by hosting pattern",
			explicit: "http://%zz/chat",
			page:     "https://foo.app.github.dev/",
			policy:   policy,
			want:     "http://%zz/chat",
		},
		{
			name:   "hosting pattern uses https on hostname",
			page:   "http://foo-8000.app.github.dev:8080/index.html",
			policy: policy,
			want:   "https://foo-8000.app.github.dev/chat",
		},
		{
			name:   "hosting pattern is case insensitive",
			page:   "https://My-App.Vercel.App/",
			policy: policy,
			want:   "https://my-app.vercel.app/chat",
		},
		{
			name:   "localhost",
			page:   "http://localhost:3000/",
			policy: policy,
			want:   "http://localhost:8000/chat",
		},
		{
			name:   "ipv4 loopback",
			page:   "http://127.0.0.1:5500/demo.html",
			policy: policy,
			want:   "http://localhost:8000/chat",
		},
		{
			name:   "ipv6 loopback",
			page:   "http://[::1]:5173/",
			policy: policy,
			want:   "http://localhost:8000/chat",
		},
		{
			name:   "loopback match is exact",
			page:   "https://localhost.example.com/",
			policy: policy,
			want:   "https://localhost.example.com/chat",
		},
		{
			name:   "same origin fallback",
			page:   "https://shop.example.com/products?id=3",
			policy: policy,
			want:   "https://shop.example.com/chat",
		},
		{
			name:   "default origin fallback",
			page:   "https://shop.example.com/products",
			policy: defaultOriginPolicy,
			want:   defaults.DefaultOrigin + "/chat",
		},
		{
			name:   "same origin without page degrades to default origin",
			policy: policy,
			want:   defaults.DefaultOrigin + "/chat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := NewEndpointConfig(tt.explicit, tt.page, defaults.HostingPatterns)
			got := ResolveEndpoint(ec, tt.policy)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestResolveEndpointAlwaysReturnsURL(t *testing.T) {
	got := ResolveEndpoint(domain.EndpointConfig{}, ResolvePolicy{ChatPath: "/chat"})
	assert.NotNil(t, got)
	assert.Equal(t, "/chat", got.String())
}

func TestResolveEndpointIsPure(t *testing.T) {
	ec := NewEndpointConfig("", "https://shop.example.com/", config.DefaultHostingPatterns)
	policy := PolicyFromConfig(config.Defaults().Widget)

	a := ResolveEndpoint(ec, policy)
	a.Path = "/mutated"
	b := ResolveEndpoint(ec, policy)
	assert.Equal(t, "https://shop.example.com/chat", b.String())
}

func TestNewEndpointConfig(t *testing.T) {
	ec := NewEndpointConfig(" https://x.example/chat ", "https://Foo.GitHub.dev:443/page", config.DefaultHostingPatterns)
	assert.Equal(t, domain.EndpointConfig{
		ExplicitURL:           "https://x.example/chat",
		Hostname:              "foo.github.dev",
		Origin:                "https://Foo.GitHub.dev:443",
		IsLocal:               false,
		IsKnownHostingPattern: true,
	}, ec)

	empty := NewEndpointConfig("", "not a url", config.DefaultHostingPatterns)
	assert.Equal(t, domain.EndpointConfig{}, empty)
}

func TestOriginHint(t *testing.T) {
	ec := NewEndpointConfig("", "https://shop.example.com:8443/p", nil)
	assert.Equal(t, "https://shop.example.com:8443", OriginHint(ec, config.OriginHintOrigin))
	assert.Equal(t, "shop.example.com", OriginHint(ec, config.OriginHintHostname))
	assert.Empty(t, OriginHint(domain.EndpointConfig{}, config.OriginHintOrigin))
}
