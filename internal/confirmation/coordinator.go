package confirmation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Submitter delivers a payload to the OEM and returns its confirmation number.
type Submitter interface {
	Submit(ctx context.Context, payload Payload) (string, error)
}

const DefaultTimeout = 30 * time.Second

type Coordinator struct {
	submitter Submitter
	timeout   time.Duration
	logger    *zap.Logger
}

func NewCoordinator(submitter Submitter, timeout time.Duration, logger *zap.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{submitter: submitter, timeout: timeout, logger: logger}
}

// Submit sends payload under the configured timeout. Every failure comes back
// as either a *TransientError or a *RejectedError.
func (c *Coordinator) Submit(ctx context.Context, payload Payload) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	number, err := c.submitter.Submit(ctx, payload)
	if err != nil {
		err = classify(ctx, err)
		if IsRejected(err) {
			c.logger.Info("OEM rejected confirmation",
				zap.String("request_id", payload.RequestID),
				zap.String("workflow", payload.Workflow.String()),
				zap.Error(err))
		} else {
			c.logger.Warn("OEM submission failed",
				zap.String("request_id", payload.RequestID),
				zap.String("workflow", payload.Workflow.String()),
				zap.Duration("elapsed", time.Since(started)),
				zap.Error(err))
		}
		return "", err
	}

	number = strings.TrimSpace(number)
	if number == "" {
		return "", &TransientError{Err: errors.New("OEM acknowledged without a confirmation number")}
	}

	c.logger.Info("OEM confirmation received",
		zap.String("request_id", payload.RequestID),
		zap.String("confirmation_number", number))

	return number, nil
}

func classify(ctx context.Context, err error) error {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected
	}
	var transient *TransientError
	if errors.As(err, &transient) {
		return transient
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &TransientError{Err: ctxErr}
	}
	return &TransientError{Err: err}
}
