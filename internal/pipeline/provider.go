// Package pipeline runs the per-row lead cleaning stages and the dataset
// state machine that drives them.
package pipeline

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-cleaner/internal/model"
	"github.com/sells-group/lead-cleaner/internal/resilience"
	"github.com/sells-group/lead-cleaner/pkg/doh"
)

// MXResolver is the fallback lookup used when the DNS-over-HTTPS path fails.
// *net.Resolver satisfies it.
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// ProviderClassifierOptions configures a ProviderClassifier.
type ProviderClassifierOptions struct {
	// Timeout bounds each individual lookup attempt. Default 5s.
	Timeout time.Duration

	// Delay is the minimum spacing between consecutive lookups, applied
	// before each classification to avoid upstream throttling. Default 200ms.
	Delay time.Duration
}

// ProviderClassifier determines which provider hosts a lead's mailbox by
// inspecting the MX records of the email's domain. The DNS-over-HTTPS
// resolver is the primary path, guarded by a circuit breaker; any failure
// there falls back to the system resolver.
type ProviderClassifier struct {
	primary  doh.Client
	fallback MXResolver
	breaker  *resilience.CircuitBreaker
	limiter  *rate.Limiter
	timeout  time.Duration
}

// NewProviderClassifier creates a classifier over the given resolvers.
func NewProviderClassifier(primary doh.Client, fallback MXResolver, opts ProviderClassifierOptions) *ProviderClassifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Delay <= 0 {
		opts.Delay = 200 * time.Millisecond
	}
	if fallback == nil {
		fallback = net.DefaultResolver
	}
	return &ProviderClassifier{
		primary:  primary,
		fallback: fallback,
		breaker:  resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
		limiter:  rate.NewLimiter(rate.Every(opts.Delay), 1),
		timeout:  opts.Timeout,
	}
}

// ClassifyEmail extracts the domain from an email address and classifies its
// mail provider. Empty emails and emails without a well-formed local@domain
// shape short-circuit without any network call.
func (p *ProviderClassifier) ClassifyEmail(ctx context.Context, email string) model.ProviderResult {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.ProviderNoEmail
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return model.ProviderInvalid
	}
	return p.Classify(ctx, domain)
}

// Classify resolves the MX records for a domain and maps them to a provider.
func (p *ProviderClassifier) Classify(ctx context.Context, domain string) model.ProviderResult {
	if err := p.limiter.Wait(ctx); err != nil {
		return model.ProviderError
	}

	hosts, err := p.lookupPrimary(ctx, domain)
	if err != nil {
		zap.L().Debug("primary MX lookup failed, using fallback",
			zap.String("domain", domain),
			zap.Error(err))
		hosts, err = p.lookupFallback(ctx, domain)
	}
	if err != nil {
		zap.L().Warn("MX lookup failed on both resolvers",
			zap.String("domain", domain),
			zap.Error(err))
		return model.ProviderError
	}

	return matchProvider(hosts)
}

func (p *ProviderClassifier) lookupPrimary(ctx context.Context, domain string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return resilience.ExecuteVal(ctx, p.breaker, func(ctx context.Context) ([]string, error) {
		return p.primary.LookupMX(ctx, domain)
	})
}

func (p *ProviderClassifier) lookupFallback(ctx context.Context, domain string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	records, err := p.fallback.LookupMX(ctx, domain)
	if err != nil {
		// A NXDOMAIN or empty answer is an authoritative "no MX", not a
		// resolver failure.
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, nil
		}
		return nil, err
	}

	hosts := make([]string, 0, len(records))
	for _, mx := range records {
		hosts = append(hosts, strings.ToLower(strings.TrimSuffix(mx.Host, ".")))
	}
	return hosts, nil
}

// outlookPatterns and gmailPatterns are matched as substrings of the
// lowercased MX hostnames. Outlook wins when both families appear.
var (
	outlookPatterns = []string{"outlook.com", "office365.com", "hotmail.com", "protection.outlook"}
	gmailPatterns   = []string{"google.com", "googlemail.com"}
)

func matchProvider(hosts []string) model.ProviderResult {
	if len(hosts) == 0 {
		return model.ProviderNoMX
	}

	gmail := false
	for _, host := range hosts {
		h := strings.ToLower(host)
		for _, pat := range outlookPatterns {
			if strings.Contains(h, pat) {
				return model.ProviderOutlook
			}
		}
		for _, pat := range gmailPatterns {
			if strings.Contains(h, pat) {
				gmail = true
			}
		}
	}
	if gmail {
		return model.ProviderGmail
	}
	return model.ProviderOther
}
