package policy

import (
	"net"
	"net/url"
	"strings"

	"github.com/megamake/roleplay/internal/platform/errors"
)

// Policy gates outbound calls to hosted speech and completion services.
type Policy struct {
	NetEnabled   bool
	AllowDomains []string
}

// RequireNetworkAllowed returns a policy error if networking is disabled or the host is not allowed.
// Host may include a port; it will be normalized.
func (p Policy) RequireNetworkAllowed(host string) error {
	if !p.NetEnabled {
		return errors.NewPolicy("network access is disabled (set network.enabled or pass --net)")
	}

	hostOnly := normalizeHost(host)
	if hostOnly == "" {
		return errors.NewPolicy("invalid host for network request")
	}

	// Empty allowlist means every host is allowed once networking is on.
	if len(p.AllowDomains) == 0 {
		return nil
	}

	for _, allowed := range p.AllowDomains {
		a := strings.TrimSpace(strings.ToLower(allowed))
		if a == "" {
			continue
		}
		if strings.EqualFold(hostOnly, a) {
			return nil
		}
		if strings.HasSuffix(hostOnly, "."+a) {
			return nil
		}
	}

	return errors.NewPolicy("network domain not allowed by policy: " + hostOnly)
}

// RequireAll checks every host in hosts. Local adapters report no hosts and always pass.
func (p Policy) RequireAll(hosts []string) error {
	for _, h := range hosts {
		if err := p.RequireNetworkAllowed(h); err != nil {
			return err
		}
	}
	return nil
}

// HostOf extracts the host of a base URL such as "https://api.openai.com".
func HostOf(baseURL string) string {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Hostname()
}

func normalizeHost(host string) string {
	h := strings.TrimSpace(host)
	if h == "" {
		return ""
	}
	h = strings.ToLower(h)

	// net.SplitHostPort requires brackets for IPv6; handle best-effort.
	if strings.Contains(h, ":") {
		if hostOnly, _, err := net.SplitHostPort(h); err == nil && hostOnly != "" {
			return strings.Trim(hostOnly, "[]")
		}
	}

	return strings.Trim(h, "[]")
}
