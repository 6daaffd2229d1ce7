//go:build crashtest

// Package testutil provides test utilities for power-loss simulation.
//
// Kill points provide a mechanism to deterministically exit a process at specific
// code locations for whitebox crash testing. Unlike sync points (which pause
// execution), kill points terminate the process to simulate a power cut
// mid-write, so that boot-time reconstruction from the surviving flash
// contents can be exercised deterministically.
//
// Usage:
//
//	// In production code (compiled out without build tag):
//	testutil.MaybeKill(testutil.KPRingPushHeader)
//
//	// In test harness (set via env var or API):
//	testutil.SetKillPoint(testutil.KPRingPushHeader)
//
// Build with kill points enabled:
//
//	go build -tags crashtest ./...
package testutil

import (
	"os"
	"sync"
	"sync/atomic"
)

// killPointState holds the global kill point configuration.
type killPointState struct {
	// target is the name of the kill point that should trigger exit.
	// Empty string means no kill point is set.
	target atomic.Value // stores string

	// armed controls whether kill points are active.
	// This allows temporarily disabling kill points without clearing the target.
	armed atomic.Bool

	// hitCount tracks how many times each kill point was reached.
	// Useful for debugging and verification.
	mu        sync.RWMutex
	hitCounts map[string]int64
}

// globalKillPoint is the singleton kill point state.
var globalKillPoint = &killPointState{
	hitCounts: make(map[string]int64),
}

// KillPointEnvVar is the environment variable used to set the kill point target.
const KillPointEnvVar = "IMAGERING_KILL_POINT"

func init() {
	// Check environment variable on startup
	if target := os.Getenv(KillPointEnvVar); target != "" {
		globalKillPoint.target.Store(target)
		globalKillPoint.armed.Store(true)
	}
}

// SetKillPoint sets the target kill point name.
// When MaybeKill is called with this name, the process will exit.
func SetKillPoint(name string) {
	globalKillPoint.target.Store(name)
	globalKillPoint.armed.Store(true)
}

// ClearKillPoint clears the kill point target.
func ClearKillPoint() {
	globalKillPoint.target.Store("")
	globalKillPoint.armed.Store(false)
}

// ArmKillPoint enables kill point processing.
func ArmKillPoint() {
	globalKillPoint.armed.Store(true)
}

// DisarmKillPoint disables kill point processing without clearing the target.
func DisarmKillPoint() {
	globalKillPoint.armed.Store(false)
}

// IsKillPointArmed returns whether kill points are currently armed.
func IsKillPointArmed() bool {
	return globalKillPoint.armed.Load()
}

// GetKillPointTarget returns the current kill point target.
func GetKillPointTarget() string {
	if v := globalKillPoint.target.Load(); v != nil {
		return v.(string)
	}
	return ""
}

// GetKillPointHitCount returns how many times a kill point was reached.
func GetKillPointHitCount(name string) int64 {
	globalKillPoint.mu.RLock()
	defer globalKillPoint.mu.RUnlock()
	return globalKillPoint.hitCounts[name]
}

// ResetKillPointCounts resets all hit counts.
func ResetKillPointCounts() {
	globalKillPoint.mu.Lock()
	defer globalKillPoint.mu.Unlock()
	globalKillPoint.hitCounts = make(map[string]int64)
}

// MaybeKill checks if the named kill point matches the target and exits if so.
// This is the primary entry point for kill points in production code.
//
// If the kill point is armed and the name matches the target, the process
// exits with code 0 (clean exit, not a crash signal).
func MaybeKill(name string) {
	if !globalKillPoint.armed.Load() {
		return
	}

	// Track hit count
	globalKillPoint.mu.Lock()
	globalKillPoint.hitCounts[name]++
	globalKillPoint.mu.Unlock()

	// Check if this is the target
	target, ok := globalKillPoint.target.Load().(string)
	if !ok || target == "" {
		return
	}

	if target == name {
		// Exit cleanly to simulate a crash
		// Exit code 0 indicates intentional kill, not an error
		os.Exit(0)
	}
}

// KillPointNames defines the standard kill point names.
// These follow the naming convention "Component.Operation:N" where N is
// 0 for "before", 1 for "after", or the name of a step.
const (
	// Ring push kill points
	KPRingPush0       = "Ring.Push:0"       // Before writing the image header
	KPRingPushHeader  = "Ring.Push:Header"  // After header written, before metadata
	KPRingPushPayload = "Ring.Push:Payload" // Mid-payload, after at least one chunk
	KPRingPushTrailer = "Ring.Push:Trailer" // After payload, before trailer CRC
	KPRingPushDone    = "Ring.Push:Done"    // After trailer written, before head/tail commit

	// Ring pop kill points
	KPRingPop0        = "Ring.Pop:0"        // Before reading the trailer CRC and advancing head
	KPRingPopAdjust   = "Ring.Pop:Adjust"   // After head/size/count updated, before erasing freed blocks
	KPRingPopDone     = "Ring.Pop:Done"     // After the freed blocks are erased

	// Buffered accessor kill points
	KPBufferedFlush0 = "Buffered.Flush:0" // Before programming a dirty page
	KPBufferedFlush1 = "Buffered.Flush:1" // After programming, before clearing dirty flag

	// Boot reconstruction kill points
	KPRecoveryScan0   = "Recovery.Scan:0"   // Before the discovery pass
	KPRecoveryCommit0 = "Recovery.Commit:0" // Before committing validated head/tail/count

	// Transfer state machine kill points
	KPWriterSendInit0  = "Writer.SendInit:0"  // Before emitting the init request
	KPWriterSendDone0  = "Writer.SendDone:0"  // Before emitting the done request
	KPResponderWrite0  = "Responder.Write:0"  // Before committing a received chunk
)
