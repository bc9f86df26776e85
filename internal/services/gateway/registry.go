package gateway

import (
	"context"
	"fmt"
	"sort"

	"paycore/internal/domain/payment"
)

// Registry maps payment methods to their strategy. It is built once and is
// read-only afterwards, so it is safe for concurrent use.
type Registry struct {
	strategies map[payment.Method]Strategy
}

// NewRegistry registers strategies by their supported method. A nil
// strategy or two strategies for the same method is a wiring bug and panics.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[payment.Method]Strategy, len(strategies))}
	for _, s := range strategies {
		if s == nil {
			panic("strategy is required")
		}
		m := s.SupportedMethod()
		if _, dup := r.strategies[m]; dup {
			panic(fmt.Sprintf("duplicate strategy for method %s", m))
		}
		r.strategies[m] = s
	}
	return r
}

// Strategy returns the strategy for method or ErrUnsupportedMethod.
func (r *Registry) Strategy(method payment.Method) (Strategy, error) {
	s, ok := r.strategies[method]
	if !ok {
		return nil, ErrUnsupportedMethod.WithMessage("payment method %q is not supported", method)
	}
	return s, nil
}

// IsStrategyAvailable reports false for unknown methods.
func (r *Registry) IsStrategyAvailable(ctx context.Context, method payment.Method) bool {
	s, err := r.Strategy(method)
	if err != nil {
		return false
	}
	return s.IsAvailable(ctx)
}

// Methods lists the registered methods in a stable order.
func (r *Registry) Methods() []payment.Method {
	out := make([]payment.Method, 0, len(r.strategies))
	for m := range r.strategies {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
