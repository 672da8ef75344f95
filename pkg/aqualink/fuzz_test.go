// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package aqualink

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

func randomPacket(rng *rand.Rand) *Packet {
	payload := make([]byte, rng.Intn(MaxPayloadSize+1))
	rng.Read(payload)
	// Bias towards zeros so the stuffing paths are exercised
	for i := range payload {
		if rng.Intn(4) == 0 {
			payload[i] = 0
		}
	}
	return NewPacket(PacketID(rng.Intn(48)), payload)
}

// ============================================================
// Fuzz Tests
// ============================================================

func TestFuzz_RoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		p := randomPacket(rng)

		frame, err := EncodePacket(p)
		if err != nil {
			t.Fatalf("round %d: EncodePacket failed: %v", i, err)
		}
		if bytes.IndexByte(frame[:len(frame)-1], Terminator) >= 0 {
			t.Fatalf("round %d: interior terminator in frame", i)
		}

		got, err := DecodePacket(frame)
		if err != nil {
			t.Fatalf("round %d: DecodePacket failed: %v", i, err)
		}
		if got.ID() != p.ID() || !bytes.Equal(got.Payload(), p.Payload()) {
			t.Fatalf("round %d: round trip mismatch", i)
		}
	}
}

func TestFuzz_CorruptedFrames(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()
	accepted := 0

	for i := 0; i < rounds; i++ {
		frame, _ := EncodePacket(randomPacket(rng))
		block := frame[:len(frame)-1]

		// Flip one bit somewhere in the block
		pos := rng.Intn(len(block))
		block[pos] ^= 1 << uint(rng.Intn(8))

		// Must never panic; occasional acceptance is possible only if the
		// flip lands in a way that still yields a valid CRC.
		if _, err := DecodePacket(block); err == nil {
			accepted++
		}
	}

	if accepted > rounds/100+1 {
		t.Errorf("too many corrupted frames accepted: %d of %d", accepted, rounds)
	}
}

func TestFuzz_RandomGarbage(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		garbage := make([]byte, rng.Intn(300))
		rng.Read(garbage)

		// Must never panic
		_, _ = DecodePacket(garbage)
		_, _ = Deserialize(garbage)
	}
}

func TestFuzz_PayloadDecoders(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		p := randomPacket(rng)
		if rng.Intn(2) == 0 {
			p = NewPacket(p.ID(), p.Payload()[:rng.Intn(len(p.Payload())+1)])
		}

		// Must never panic regardless of kind or payload length
		_ = FormatPacket(p)
		_ = ValidatePacket(p)
	}
}
