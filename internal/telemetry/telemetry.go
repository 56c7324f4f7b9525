// Package telemetry carries best-effort usage events out of the companion
// processes. Emission never blocks or fails a user-facing operation.
package telemetry

import (
	"context"
	"log"
	"time"
)

// Event kinds emitted by the companion.
const (
	KindPlaybackTransition = "playback_transition"
	KindNotificationShown  = "notification_shown"
	KindPushDelivery       = "push_delivery"
	KindSubscriptionChange = "subscription_change"
)

// Event is one usage event.
type Event struct {
	Kind      string
	SessionID string
	Origin    string
	Detail    map[string]string
	CreatedAt time.Time
}

// EventEmitter emits events (e.g. as OTel log records). Best-effort; callers log
// and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

// emitTimeout bounds a single async emit. Used by EmitAsync and by ShutdownDrainDuration.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long a process waits after stopping its servers
// before shutting down the providers, so in-flight async emits can finish.
const ShutdownDrainDuration = emitTimeout

// EmitAsync runs Emit in a goroutine so the caller is not blocked. The goroutine
// uses context.Background() with emitTimeout, so cancellation of the calling
// operation does not abort an in-flight emit.
//
// emitter and event may be nil; EmitAsync then returns without starting a goroutine.
func EmitAsync(emitter EventEmitter, event *Event) {
	if emitter == nil || event == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(ctx, event); err != nil {
			log.Printf("telemetry: async emit failed: %v", err)
		}
	}()
}
