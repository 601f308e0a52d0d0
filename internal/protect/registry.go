package protect

import (
	"strings"

	"go.uber.org/zap"

	"github.com/mailsift/mailsift/internal/core"
)

// Registry holds the protected domains and content keywords that gate
// every automated action. Checks are pure and read-only, so a single
// registry is safe to share across the whole pipeline.
type Registry struct {
	domains  []string
	keywords []string
	logger   *zap.Logger
}

// NewRegistry creates a registry from raw config values. Domains and
// keywords are normalized to lowercase; empty entries are dropped.
func NewRegistry(domains, keywords []string, logger *zap.Logger) *Registry {
	r := &Registry{
		domains:  normalize(domains),
		keywords: normalize(keywords),
		logger:   logger,
	}

	if logger != nil {
		logger.Info("Initialized protected entity registry",
			zap.Int("domains", len(r.domains)),
			zap.Int("keywords", len(r.keywords)))
	}

	return r
}

func normalize(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// IsProtected reports whether the message matches any protected domain
// or carries a protected keyword in its subject or snippet.
func (r *Registry) IsProtected(msg *core.Message) bool {
	if msg == nil {
		return false
	}
	if r.MatchesDomain(msg.SenderDomain) {
		if r.logger != nil {
			r.logger.Debug("Sender domain is protected",
				zap.String("domain", msg.SenderDomain),
				zap.String("message_id", msg.ID))
		}
		return true
	}
	if kw, ok := r.matchKeyword(msg.Subject, msg.Snippet); ok {
		if r.logger != nil {
			r.logger.Debug("Message content matches protected keyword",
				zap.String("keyword", kw),
				zap.String("message_id", msg.ID))
		}
		return true
	}
	return false
}

// MatchesDomain reports whether the domain equals a protected domain
// or is a subdomain of one.
func (r *Registry) MatchesDomain(domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false
	}
	for _, p := range r.domains {
		if domain == p || strings.HasSuffix(domain, "."+p) {
			return true
		}
	}
	return false
}

func (r *Registry) matchKeyword(subject, snippet string) (string, bool) {
	if len(r.keywords) == 0 {
		return "", false
	}
	haystack := strings.ToLower(subject) + "\n" + strings.ToLower(snippet)
	for _, kw := range r.keywords {
		if strings.Contains(haystack, kw) {
			return kw, true
		}
	}
	return "", false
}
