// Package tasks runs the background now-playing poll loop and publishes its
// results as process-wide playback state.
package tasks

import (
	"sync"
	"sync/atomic"
)

// NotPlaying is the progress sentinel published when no track is active.
const NotPlaying = -1.0

// Notification is a one-shot "now playing" event produced on a track change.
type Notification struct {
	Track string
}

// PlaybackState is the externally observable playback state.
//
// Only the poller mutates it. Reads are safe concurrently with poller writes;
// per-field reads never tear, but cross-field consistency within one cycle is
// not promised: a consumer may briefly see fresh progress with the previous
// cycle's color.
type PlaybackState struct {
	mu        sync.RWMutex
	progress  float64
	color     string
	lastTrack string

	// pending holds at most one undelivered notification. The consumer
	// drains it; the poller only ever produces.
	pending atomic.Pointer[Notification]
}

// NewPlaybackState returns state in the "not playing" condition.
func NewPlaybackState() *PlaybackState {
	return &PlaybackState{progress: NotPlaying}
}

// Progress returns the current progress ratio, or NotPlaying. Values may
// transiently fall outside [0,1]; render defensively.
func (s *PlaybackState) Progress() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

// Playing reports whether a track is active.
func (s *PlaybackState) Playing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress != NotPlaying
}

// Color returns the dominant album color as an RGB hex string. ok is false
// when no color is known and the consumer should use its default.
func (s *PlaybackState) Color() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.color, s.color != ""
}

// LastTrack returns the display name of the last observed track. This is the
// de-duplication key across polls.
func (s *PlaybackState) LastTrack() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTrack
}

// TakeNotification removes and returns the pending notification, or nil.
func (s *PlaybackState) TakeNotification() *Notification {
	return s.pending.Swap(nil)
}

func (s *PlaybackState) setProgress(p float64) {
	s.mu.Lock()
	s.progress = p
	s.mu.Unlock()
}

// clearPlayback resets progress and color. The last track name is retained so
// resuming the same track does not re-notify.
func (s *PlaybackState) clearPlayback() {
	s.mu.Lock()
	s.progress = NotPlaying
	s.color = ""
	s.mu.Unlock()
}

func (s *PlaybackState) beginTrack(name, color string) {
	s.mu.Lock()
	s.lastTrack = name
	s.color = color
	s.mu.Unlock()
	s.pending.Store(&Notification{Track: name})
}
