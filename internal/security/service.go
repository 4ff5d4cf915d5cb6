package security

import "github.com/ytclab/ytcbot/internal/core"

// ServiceRedactor is the service name of the process-wide Redactor.
const ServiceRedactor = "security.redactor"

// RegisterSecret adds secret to the Redactor published in ctx. It does
// nothing when no Redactor is published, e.g. in tests.
func RegisterSecret(ctx *core.AppContext, secret string) {
	if r, ok := core.ServiceAs[*Redactor](ctx, ServiceRedactor); ok {
		r.AddLiteral(secret)
	}
}
