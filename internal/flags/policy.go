package flags

import (
	"context"
	"time"

	"github.com/aman-zulfiqar/redz-ledger/internal/constants"
	"github.com/aman-zulfiqar/redz-ledger/internal/ledger"
	"github.com/sirupsen/logrus"
)

// PolicySource resolves the launch policy from stored flags, falling back to
// Defaults for unset keys or when Redis cannot be reached.
type PolicySource struct {
	store    *Store
	defaults ledger.Policy
	timeout  time.Duration
	logger   *logrus.Logger
}

func NewPolicySource(store *Store, defaults ledger.Policy, logger *logrus.Logger) *PolicySource {
	if logger == nil {
		logger = logrus.New()
	}
	return &PolicySource{store: store, defaults: defaults, timeout: 500 * time.Millisecond, logger: logger}
}

func (p *PolicySource) Policy(ctx context.Context) (ledger.Policy, error) {
	policy := p.defaults
	if p.store == nil {
		return policy, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	vals, err := p.store.Values(ctx,
		constants.FlagAllowOversubscription,
		constants.FlagAllowUndersubscribedFinalize,
	)
	if err != nil {
		p.logger.WithError(err).Warn("policy flags unavailable, using defaults")
		return policy, nil
	}
	if v, ok := vals[constants.FlagAllowOversubscription]; ok {
		policy.AllowOversubscription = v
	}
	if v, ok := vals[constants.FlagAllowUndersubscribedFinalize]; ok {
		policy.AllowUndersubscribedFinalize = v
	}
	return policy, nil
}
