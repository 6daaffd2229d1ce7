//go:build !crashtest

// Package testutil provides test utilities for power-loss simulation.
//
// This file provides no-op implementations of kill point functions for
// production builds. When built without the "crashtest" tag, all kill point
// calls are effectively eliminated by the compiler.
package testutil

// KillPointEnvVar is the environment variable used to set the kill point target.
// In production builds, this is defined but ignored.
const KillPointEnvVar = "IMAGERING_KILL_POINT"

// SetKillPoint is a no-op in production builds.
func SetKillPoint(_ string) {}

// ClearKillPoint is a no-op in production builds.
func ClearKillPoint() {}

// ArmKillPoint is a no-op in production builds.
func ArmKillPoint() {}

// DisarmKillPoint is a no-op in production builds.
func DisarmKillPoint() {}

// IsKillPointArmed always returns false in production builds.
func IsKillPointArmed() bool { return false }

// GetKillPointTarget always returns empty string in production builds.
func GetKillPointTarget() string { return "" }

// GetKillPointHitCount always returns 0 in production builds.
func GetKillPointHitCount(_ string) int64 { return 0 }

// ResetKillPointCounts is a no-op in production builds.
func ResetKillPointCounts() {}

// MaybeKill is a no-op in production builds.
// The compiler should inline and eliminate this entirely.
func MaybeKill(_ string) {}

// Kill point name constants - defined for API compatibility even in prod builds.
const (
	KPRingPush0       = "Ring.Push:0"
	KPRingPushHeader  = "Ring.Push:Header"
	KPRingPushPayload = "Ring.Push:Payload"
	KPRingPushTrailer = "Ring.Push:Trailer"
	KPRingPushDone    = "Ring.Push:Done"

	KPRingPop0      = "Ring.Pop:0"
	KPRingPopAdjust = "Ring.Pop:Adjust"
	KPRingPopDone   = "Ring.Pop:Done"

	KPBufferedFlush0 = "Buffered.Flush:0"
	KPBufferedFlush1 = "Buffered.Flush:1"

	KPRecoveryScan0   = "Recovery.Scan:0"
	KPRecoveryCommit0 = "Recovery.Commit:0"

	KPWriterSendInit0 = "Writer.SendInit:0"
	KPWriterSendDone0 = "Writer.SendDone:0"
	KPResponderWrite0 = "Responder.Write:0"
)
