// internal/dispatch/bulk.go
package dispatch

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/evoflow/backend/internal/analytics"
	"github.com/evoflow/backend/internal/gateway"
	"github.com/evoflow/backend/internal/model"
)

// cancelTick is how often inter-send waits re-check cancellation.
const cancelTick = 100 * time.Millisecond

// ProgressFunc receives the running counts after every send attempt.
type ProgressFunc func(model.DispatchProgress)

// CancelFunc is polled before each send and during inter-send waits.
type CancelFunc func() bool

// Dispatcher sends one message to a list of recipients with a random delay
// between sends. It performs no recipient validation; callers pre-filter to
// digit/plus strings of length >= 10.
type Dispatcher struct {
	Gateway   gateway.Client
	Analytics *analytics.Service
}

func NewDispatcher(gw gateway.Client, an *analytics.Service) *Dispatcher {
	return &Dispatcher{Gateway: gw, Analytics: an}
}

// Send iterates recipients in order. Cancellation is checked before every
// send and at 100ms granularity during waits; a cancelled run returns the
// partial result immediately. Individual failures are counted and iteration
// continues. A send already dispatched to the gateway is never interrupted.
func (d *Dispatcher) Send(
	ctx context.Context,
	instance string,
	recipients []string,
	message string,
	att *model.Attachment,
	minDelaySec, maxDelaySec int,
	onProgress ProgressFunc,
	isCancelled CancelFunc,
) model.DispatchResult {
	result := model.DispatchResult{Total: len(recipients)}

	cancelled := func() bool {
		if ctx.Err() != nil {
			return true
		}
		return isCancelled != nil && isCancelled()
	}

	for i, number := range recipients {
		if cancelled() {
			log.Println("⏹️ Dispatch cancelled, returning partial result")
			return result
		}

		var err error
		if att != nil {
			err = d.Gateway.SendMedia(ctx, instance, number, att, message)
		} else {
			err = d.Gateway.SendText(ctx, instance, number, message)
		}

		progress := model.DispatchProgress{Recipient: number}
		if err != nil {
			result.Failed++
			progress.Error = err.Error()
			d.Analytics.TrackMessage(instance, "failed")
			log.Printf("❌ Failed for %s: %v", number, err)
		} else {
			result.Sent++
			d.Analytics.TrackMessage(instance, "sent")
			log.Printf("✅ Sent to %s", number)
		}
		progress.Sent = result.Sent
		progress.Failed = result.Failed
		if onProgress != nil {
			onProgress(progress)
		}

		if i < len(recipients)-1 {
			delay := randomDelay(minDelaySec, maxDelaySec)
			if delay > 0 {
				log.Printf("⏳ Waiting %ds...", delay)
			}
			if !d.wait(ctx, time.Duration(delay)*time.Second, isCancelled) {
				return result
			}
		}
	}

	return result
}

// randomDelay picks a uniformly random integer number of seconds in
// [minSec, maxSec].
func randomDelay(minSec, maxSec int) int {
	if maxSec <= minSec {
		return minSec
	}
	return rand.Intn(maxSec-minSec+1) + minSec
}

func (d *Dispatcher) wait(ctx context.Context, delay time.Duration, isCancelled CancelFunc) bool {
	deadline := time.Now().Add(delay)
	for time.Now().Before(deadline) {
		if isCancelled != nil && isCancelled() {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(cancelTick):
		}
	}
	return true
}
