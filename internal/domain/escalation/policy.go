package escalation

import (
	"fmt"
	"sort"
	"strings"
)

// Policy is the pure recipient table for the approval chain. Level 1 always
// routes to the quality manager; level 2 routes per company. It performs no
// I/O: an unknown company is a configuration error surfaced to the caller.
type Policy struct {
	QualityManager    string
	ProductionContact string
	Level2ByCompany   map[string]string
}

func NewPolicy(qualityManager string, productionContact string, level2ByCompany map[string]string) Policy {
	byCompany := make(map[string]string, len(level2ByCompany))
	for company, addr := range level2ByCompany {
		code := NormalizeCompany(company)
		addr = strings.TrimSpace(addr)
		if code == "" || addr == "" {
			continue
		}
		byCompany[code] = addr
	}

	return Policy{
		QualityManager:    strings.TrimSpace(qualityManager),
		ProductionContact: strings.TrimSpace(productionContact),
		Level2ByCompany:   byCompany,
	}
}

func NormalizeCompany(company string) string {
	return strings.ToLower(strings.TrimSpace(company))
}

func (p Policy) KnownCompany(company string) bool {
	_, ok := p.Level2ByCompany[NormalizeCompany(company)]
	return ok
}

// Companies returns the configured company codes in stable order.
func (p Policy) Companies() []string {
	out := make([]string, 0, len(p.Level2ByCompany))
	for company := range p.Level2ByCompany {
		out = append(out, company)
	}
	sort.Strings(out)
	return out
}

// Recipient resolves the decision maker for (company, level).
func (p Policy) Recipient(company string, level int) (string, error) {
	switch level {
	case 1:
		if p.QualityManager == "" {
			return "", fmt.Errorf("%w 1: quality manager address is not configured", ErrNoRecipient)
		}
		return p.QualityManager, nil
	case 2:
		addr, ok := p.Level2ByCompany[NormalizeCompany(company)]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownCompany, company)
		}
		return addr, nil
	}
	return "", fmt.Errorf("%w: %d", ErrInvalidLevel, level)
}

// FinalNoticeRecipients lists everyone informed of a final decision:
// the quality manager, the level-2 decision maker, and the production
// contact when configured.
func (p Policy) FinalNoticeRecipients(level2Approver string) []string {
	out := make([]string, 0, 3)
	seen := make(map[string]struct{}, 3)
	for _, addr := range []string{p.QualityManager, strings.TrimSpace(level2Approver), p.ProductionContact} {
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}
