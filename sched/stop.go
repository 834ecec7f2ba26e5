package sched

import (
	"bytes"
	"unicode/utf8"
)

// matchStop scans buf for the earliest occurrence of any string in stops,
// reproducing a deliberately simple (non-KMP) scanner: for each start
// position in order, try each stop string in list order, comparing byte
// by byte; the first stop string that matches at the earliest start wins. This is O(n*m*k) rather than Aho-Corasick, but
// it is the scanner the streamed-output cut-point behavior was defined
// against, so its exact comparison order is part of the observable
// contract (two stop strings that are prefixes of one another resolve
// the same way here as there).
//
// It returns the byte offset in buf where the match begins, the matched
// string, and whether any match was found.
func matchStop(buf []byte, stops []string) (int, string, bool) {
	for start := 0; start < len(buf); start++ {
		for _, stop := range stops {
			if stop == "" {
				continue
			}
			if matchAt(buf, start, stop) {
				return start, stop, true
			}
		}
	}
	return 0, "", false
}

// unsafeFrom returns the earliest byte offset in buf at which some
// non-empty proper prefix of a stop string begins and continues
// unbroken to the end of buf — i.e. the earliest point from which buf's
// tail could still grow into a complete stop match once more bytes
// arrive. Bytes before this offset can never participate in a future
// match and are safe to emit now; bytes at or after it must be held
// back. Returns false if no such offset exists.
//
// Ports run.rs's pointer_safe/pointer_unsafe scan: a stop string split
// across two model-decoded chunks (e.g. "STOP" arriving as "ST" then
// "OP") must not have its first half emitted before the second half
// confirms the match.
func unsafeFrom(buf []byte, stops []string) (int, bool) {
	for start := 0; start < len(buf); start++ {
		remain := len(buf) - start
		for _, stop := range stops {
			if stop == "" || remain >= len(stop) {
				// remain >= len(stop) was already checked for a complete
				// match by matchStop; if it didn't match there, buf[start:]
				// can't be an in-progress prefix of stop either.
				continue
			}
			if string(buf[start:]) == stop[:remain] {
				return start, true
			}
		}
	}
	return 0, false
}

func matchAt(buf []byte, start int, stop string) bool {
	if start+len(stop) > len(buf) {
		return false
	}
	for i := 0; i < len(stop); i++ {
		if buf[start+i] != stop[i] {
			return false
		}
	}
	return true
}

// safeUTF8Cut returns the longest prefix of buf that ends on a complete
// UTF-8 rune boundary, and the remainder. A partial multi-byte rune at
// the tail is held back rather than emitted or lossily replaced; it is
// only ever replaced with the Unicode replacement character if the
// stream ends there permanently (see flushUTF8).
func safeUTF8Cut(buf []byte) (safe, rest []byte) {
	if len(buf) == 0 {
		return buf, nil
	}
	// Walk back from the end at most utf8.UTFMax bytes looking for the
	// start of a rune that is incomplete given the bytes we have.
	limit := len(buf) - utf8.UTFMax
	if limit < 0 {
		limit = 0
	}
	for i := len(buf) - 1; i >= limit; i-- {
		b := buf[i]
		if b < 0x80 {
			// Single-byte rune, necessarily complete; nothing to hold back.
			break
		}
		if utf8.RuneStart(b) {
			if !completeRuneAt(buf[i:]) {
				return buf[:i], buf[i:]
			}
			break
		}
	}
	return buf, nil
}

func completeRuneAt(b []byte) bool {
	r, size := utf8.DecodeRune(b)
	if r == utf8.RuneError && size <= 1 {
		return size == len(b) && len(b) >= 1 && utf8.RuneLen(r) <= len(b)
	}
	return size <= len(b) && utf8.RuneLen(r) == size
}

// flushUTF8 is applied to whatever bytes remain buffered when a request
// finishes: any trailing partial rune is lossily replaced rather than
// held back forever, since there will be no more bytes to complete it.
func flushUTF8(buf []byte) []byte {
	return bytes.ToValidUTF8(buf, []byte(string(utf8.RuneError)))
}
