package netresolv

import (
	"context"
	"errors"
	"fmt"
)

// retryScheduler drives the attempt sequence of one query: each server in
// ranked order, up to RetryCount attempts per server, each attempt bounded
// by BaseTimeout. The per-attempt timeout is fixed rather than growing, so
// the worst case for a whole query stays at BaseTimeout * RetryCount *
// server count.
//
// Every observed attempt outcome lands in the health tracker - timeouts
// count as failures, so a flaky server gets demoted even when every query
// eventually succeeds elsewhere.
type retryScheduler struct {
	exchanger Exchanger
	tracker   *healthTracker
	logger    Logger
}

// scheduleResult accounts for the attempts of one query. It is returned
// alongside the error, so attempt counts reach telemetry on failures too.
type scheduleResult struct {
	reply    *exchangeReply
	server   string
	attempts int
}

func (s *retryScheduler) run(ctx context.Context, q Query, nc NetContext, servers []string, p Params) (*scheduleResult, error) {
	res := &scheduleResult{}
	var lastErr error

	for _, server := range servers {
		for attempt := 1; attempt <= p.RetryCount; attempt++ {
			if err := ctx.Err(); err != nil {
				// Caller abandoned before the attempt started.
				return res, err
			}

			res.attempts++

			attemptCtx, cancel := context.WithTimeout(ctx, p.BaseTimeout)
			reply, err := s.exchanger.Exchange(attemptCtx, server, q, nc)
			cancel()

			if err == nil {
				s.tracker.recordOutcome(server, outcomeSuccess, reply.rtt, p)
				s.logger.Debug("server answered",
					Field{"server", server},
					Field{"attempt", attempt},
					Field{"rtt", reply.rtt})
				res.reply = reply
				res.server = server
				return res, nil
			}

			if ctx.Err() != nil {
				// The caller went away mid-attempt. The outcome was never
				// observed, so it leaves no sample behind.
				return res, ctx.Err()
			}

			if errors.Is(err, ErrNoAnswer) {
				// Authoritative negative. The server did its job; asking
				// the others would only repeat the same question.
				s.tracker.recordOutcome(server, outcomeSuccess, 0, p)
				res.server = server
				return res, err
			}

			if isTimeout(err) {
				s.tracker.recordOutcome(server, outcomeTimeout, 0, p)
				countAttemptFailure("timeout")
			} else {
				s.tracker.recordOutcome(server, outcomeFailure, 0, p)
				countAttemptFailure("transport")
			}

			lastErr = err
			s.logger.Debug("attempt failed",
				Field{"server", server},
				Field{"attempt", attempt},
				Field{"error", err.Error()})
			// Same server again until its retries are spent, then the next
			// one in rank order.
		}
	}

	if lastErr != nil {
		return res, fmt.Errorf("%w: %v", ErrAllServersUnreachable, lastErr)
	}
	return res, ErrAllServersUnreachable
}
