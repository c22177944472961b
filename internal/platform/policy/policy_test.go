package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/megamake/roleplay/internal/platform/errors"
)

func TestRequireNetworkAllowed(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		host    string
		wantErr bool
	}{
		{"disabled", Policy{NetEnabled: false}, "api.openai.com", true},
		{"empty allowlist", Policy{NetEnabled: true}, "api.openai.com", false},
		{"exact match", Policy{NetEnabled: true, AllowDomains: []string{"api.openai.com"}}, "api.openai.com:443", false},
		{"subdomain", Policy{NetEnabled: true, AllowDomains: []string{"openai.com"}}, "api.openai.com", false},
		{"not allowed", Policy{NetEnabled: true, AllowDomains: []string{"openai.com"}}, "example.org", true},
		{"empty host", Policy{NetEnabled: true}, " ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.RequireNetworkAllowed(tt.host)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, apperrors.KindPolicy, apperrors.KindOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequireAllAndHostOf(t *testing.T) {
	p := Policy{NetEnabled: true, AllowDomains: []string{"openai.com"}}
	assert.NoError(t, p.RequireAll(nil))
	assert.NoError(t, p.RequireAll([]string{HostOf("https://api.openai.com/")}))
	assert.Error(t, p.RequireAll([]string{"api.openai.com", "evil.test"}))
	assert.Equal(t, "127.0.0.1", HostOf("http://127.0.0.1:9999"))
	assert.Equal(t, "", HostOf("::not a url"))
}
