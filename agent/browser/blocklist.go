package browser

import (
	"fmt"
	"net/url"
	"strings"
)

// Blocklist refuses URLs whose host is a listed domain or one of its subdomains.
type Blocklist struct {
	domains []string
}

// NewBlocklist creates a Blocklist. Entries are normalized to lower case.
func NewBlocklist(domains []string) *Blocklist {
	b := &Blocklist{}
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			b.domains = append(b.domains, d)
		}
	}
	return b
}

// Empty reports whether nothing is blocked.
func (b *Blocklist) Empty() bool { return b == nil || len(b.domains) == 0 }

// Domains returns the blocked domains.
func (b *Blocklist) Domains() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.domains...)
}

// BlockedHost reports whether host is blocked.
func (b *Blocklist) BlockedHost(host string) bool {
	if b == nil {
		return false
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, d := range b.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// CheckURL returns an error wrapping ErrBlockedURL when raw points at a blocked host.
// URLs without a host (about:blank, data:) are allowed.
func (b *Blocklist) CheckURL(raw string) error {
	if b.Empty() {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	if host := u.Hostname(); host != "" && b.BlockedHost(host) {
		return fmt.Errorf("%w: %s", ErrBlockedURL, host)
	}
	return nil
}
