package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/veloxcommerce/velox-backend/internal/customers"
	"github.com/veloxcommerce/velox-backend/pkg/logger"
)

type contextKey string

const ctxCustomerID contextKey = "customer_id"

const customerIDHeader = "X-Customer-Id"

// CustomerIdentity resolves the caller's customer id from the X-Customer-Id
// header. Requests without one share the pooled anonymous identity.
func CustomerIdentity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			customerID := customers.Resolve(r.Header.Get(customerIDHeader))

			ctx := WithCustomerID(r.Context(), customerID)
			if logg != nil {
				ctx = logg.WithCustomerID(ctx, customerID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CustomerIDFromContext returns the resolved customer id, falling back to the
// anonymous identity when the middleware did not run.
func CustomerIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return customers.AnonymousID
	}
	if v, ok := ctx.Value(ctxCustomerID).(uuid.UUID); ok {
		return v
	}
	return customers.AnonymousID
}

// WithCustomerID injects the customer identifier into the context.
func WithCustomerID(ctx context.Context, customerID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCustomerID, customerID)
}
