package orchestrator

import (
	"context"
	"time"
)

const (
	idlePollInterval  = 5 * time.Second
	errorRetryBackoff = time.Second
)

// runScheduler loops forever, sleeping until the soonest pick deadline and
// sweeping due sessions to the worker pool. The wake channel cuts a sleep
// short when a sooner deadline lands.
func (o *Orchestrator) runScheduler(ctx context.Context) error {
	timer := o.clock.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-o.wakeCh:
		default:
		}

		nd, err := o.sessions.FetchNextDeadline(ctx)
		if err != nil {
			o.logger.Error().Err(err).Str("instance", o.instanceID).Msg("fetch next deadline failed")
			timer.Reset(errorRetryBackoff)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				return nil
			}
		}

		if nd == nil || nd.Deadline == nil {
			timer.Reset(idlePollInterval)
			select {
			case <-timer.Chan():
				continue
			case <-o.wakeCh:
				continue
			case <-ctx.Done():
				return nil
			}
		}

		if wait := nd.Deadline.Sub(o.clock.Now()); wait > 0 {
			timer.Reset(wait)
			select {
			case <-timer.Chan():
			case <-o.wakeCh:
				continue
			case <-ctx.Done():
				return nil
			}
		}

		due, err := o.sessions.FetchDraftsDueForPick(ctx, o.batchSize)
		if err != nil {
			o.logger.Error().Err(err).Str("instance", o.instanceID).Msg("fetch due drafts failed")
			timer.Reset(errorRetryBackoff)
			select {
			case <-timer.Chan():
				continue
			case <-ctx.Done():
				return nil
			}
		}

		if len(due) > 0 {
			o.logger.Info().
				Int("count_due", len(due)).
				Str("instance", o.instanceID).
				Msg("sweeping due drafts")
			for _, draftID := range due {
				select {
				case <-ctx.Done():
					return nil
				default:
					o.NudgeSession(draftID)
				}
			}
		}
	}
}
