package email

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/smtp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// MXLookupFunc resolves MX records. Injectable for tests.
type MXLookupFunc func(ctx context.Context, domain string) ([]*net.MX, error)

// ProbeFunc asks an MX host whether it accepts RCPT TO for an address.
// Injectable for tests.
type ProbeFunc func(ctx context.Context, mxHost, email string) (bool, error)

// Prober answers MX and mailbox-acceptance questions for domains.
// Catch-all verdicts are cached per domain for the life of the prober.
type Prober struct {
	lookupMX MXLookupFunc
	probe    ProbeFunc
	helloDom string
	mailFrom string
	logger   *zap.Logger

	mu       sync.Mutex
	catchAll map[string]bool
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithMXLookup overrides DNS MX resolution.
func WithMXLookup(fn MXLookupFunc) ProberOption {
	return func(p *Prober) { p.lookupMX = fn }
}

// WithProbe overrides the SMTP RCPT probe.
func WithProbe(fn ProbeFunc) ProberOption {
	return func(p *Prober) { p.probe = fn }
}

// WithHelloDomain sets the domain announced in HELO and MAIL FROM.
func WithHelloDomain(domain string) ProberOption {
	return func(p *Prober) {
		if domain != "" {
			p.helloDom = domain
			p.mailFrom = "verify@" + domain
		}
	}
}

// NewProber creates a Prober with real DNS and SMTP backends.
func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{
		lookupMX: func(ctx context.Context, domain string) ([]*net.MX, error) {
			return net.DefaultResolver.LookupMX(ctx, domain)
		},
		helloDom: "leadscout.local",
		mailFrom: "verify@leadscout.local",
		logger:   zap.L().Named("smtp"),
		catchAll: make(map[string]bool),
	}
	p.probe = p.smtpProbe
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HasMX reports whether the domain publishes at least one MX record.
func (p *Prober) HasMX(ctx context.Context, domain string) bool {
	mxs, err := p.lookupMX(ctx, domain)
	return err == nil && len(mxs) > 0
}

// bestMX returns the highest-preference MX host for a domain.
func (p *Prober) bestMX(ctx context.Context, domain string) (string, error) {
	mxs, err := p.lookupMX(ctx, domain)
	if err != nil {
		return "", eris.Wrapf(err, "email: lookup mx for %s", domain)
	}
	if len(mxs) == 0 {
		return "", eris.Errorf("email: no mx records for %s", domain)
	}
	sort.Slice(mxs, func(i, j int) bool { return mxs[i].Pref < mxs[j].Pref })
	return strings.TrimSuffix(mxs[0].Host, "."), nil
}

// Accepts reports whether the domain's mail server accepts RCPT TO for
// the address. A true result on a catch-all domain is meaningless;
// callers must check IsCatchAll.
func (p *Prober) Accepts(ctx context.Context, email string) (bool, error) {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return false, eris.Errorf("email: malformed address %q", email)
	}
	host, err := p.bestMX(ctx, email[at+1:])
	if err != nil {
		return false, err
	}
	return p.probe(ctx, host, email)
}

// IsCatchAll probes whether the domain accepts an address that cannot
// exist. Verdicts are cached; probing is expensive and the answer is
// stable for a given domain.
func (p *Prober) IsCatchAll(ctx context.Context, domain string) bool {
	domain = strings.ToLower(domain)

	p.mu.Lock()
	if verdict, ok := p.catchAll[domain]; ok {
		p.mu.Unlock()
		return verdict
	}
	p.mu.Unlock()

	probe := fmt.Sprintf("zz-%08x-probe@%s", rand.Uint32(), domain)
	accepted, err := p.Accepts(ctx, probe)
	if err != nil {
		p.logger.Debug("catch-all probe failed",
			zap.String("domain", domain), zap.Error(err))
		accepted = false
	}

	p.mu.Lock()
	p.catchAll[domain] = accepted
	p.mu.Unlock()
	return accepted
}

// smtpProbe is the real network probe: HELO, MAIL FROM, RCPT TO, QUIT.
func (p *Prober) smtpProbe(ctx context.Context, mxHost, email string) (bool, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", mxHost+":25")
	if err != nil {
		return false, eris.Wrapf(err, "email: dial %s", mxHost)
	}
	_ = conn.SetDeadline(time.Now().Add(20 * time.Second))

	client, err := smtp.NewClient(conn, mxHost)
	if err != nil {
		_ = conn.Close()
		return false, eris.Wrap(err, "email: smtp handshake")
	}
	defer client.Close() //nolint:errcheck

	if err := client.Hello(p.helloDom); err != nil {
		return false, eris.Wrap(err, "email: smtp hello")
	}
	if err := client.Mail(p.mailFrom); err != nil {
		return false, eris.Wrap(err, "email: smtp mail from")
	}
	if err := client.Rcpt(email); err != nil {
		// A rejection is a definitive negative answer, not a failure.
		return false, nil
	}
	return true, nil
}
