/*
Package payment is the entry point for payment use cases. It coordinates the
domain Transaction, the rules service, the gateway strategies, persistence
and notifications.

Usage:

	svc := payment.NewService(payment.Dependencies{
	    Repository: repo,
	    Registry:   registry,
	    Rules:      rulesSvc,
	    Retry:      retry.NewPolicy(registry, rulesSvc, logger),
	    Notifier:   notifier,
	    Logger:     logger,
	}, payment.Config{GatewayTimeout: 30 * time.Second})

	resp, err := svc.ProcessPayment(ctx, payment.PaymentRequest{...})

Error Handling:

Validation and business rule violations are returned as errors before any
state is written or any gateway is called. Gateway failures are recorded on
the Transaction (FAILED) and reported in the response with their failure
code and retryable flag; they are not errors. Unexpected faults are returned
as SYSTEM_ERROR internal errors.

Units of work:

Each persistence step runs in its own unit of work. Gateway calls always
happen outside of them. A payment whose outcome cannot be persisted stays
PROCESSING until the timeout sweep resolves it.

Notifications:

Notifications are sent after the outcome is persisted. Notifier errors and
panics are logged and otherwise ignored.
*/
package payment
