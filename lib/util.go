package lib

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"time"
)

/* This file holds small helpers shared across the codebase */

// BytesEqual() reports whether two byte slices hold the same contents
func BytesEqual(a, b []byte) bool { return bytes.Equal(a, b) }

// BytesToString() returns the hex encoding of the bytes
func BytesToString(b []byte) string { return hex.EncodeToString(b) }

// StringToBytes() decodes a hex string into bytes
func StringToBytes(s string) ([]byte, error) { return hex.DecodeString(s) }

// BytesToTruncatedString() returns a shortened hex encoding for display purposes
func BytesToTruncatedString(b []byte) string {
	if len(b) > 10 {
		return hex.EncodeToString(b[:10])
	}
	return hex.EncodeToString(b)
}

// Append() joins two byte slices into a new slice without mutating either
func Append(a, b []byte) (out []byte) {
	out = make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// Uint64ToBigEndian() encodes a uint64 as 8 big-endian bytes so keys sort numerically
func Uint64ToBigEndian(i uint64) (b []byte) {
	b = make([]byte, 8)
	binary.BigEndian.PutUint64(b, i)
	return
}

// BigEndianToUint64() decodes 8 big-endian bytes into a uint64
func BigEndianToUint64(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// NewTimer() creates a stopped and drained timer, ready for ResetTimer()
func NewTimer() (timer *time.Timer) {
	timer = time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	return
}

// ResetTimer() safely stops, drains, and resets a timer to the duration
func ResetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// StopTimer() safely stops and drains a timer
func StopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// TimeNowMicro() captures the wall clock in unix microseconds
func TimeNowMicro() uint64 { return uint64(time.Now().UnixMicro()) }
