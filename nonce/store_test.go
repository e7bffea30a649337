package nonce

import (
	"sync"
	"testing"
	"time"
)

func TestStoreRecordAndContains(t *testing.T) {
	s := NewStore()
	var n [32]byte
	n[0] = 0x42

	if s.Contains(n) {
		t.Fatal("fresh store already contains nonce")
	}
	s.Record(n, time.Now().Add(time.Hour))
	if !s.Contains(n) {
		t.Fatal("Contains false after Record")
	}
}

func TestStorePurgeExpired(t *testing.T) {
	s := NewStore()
	var expired, fresh [32]byte
	expired[0] = 1
	fresh[0] = 2

	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)
	s.Record(expired, past)
	s.Record(fresh, future)

	purged := s.PurgeExpired(time.Now())
	if purged != 1 {
		t.Fatalf("PurgeExpired returned %d, want 1", purged)
	}
	if s.Contains(expired) {
		t.Fatal("expired nonce survived purge")
	}
	if !s.Contains(fresh) {
		t.Fatal("fresh nonce was purged")
	}
}

// TestConcurrentPurgeAndInsert stress-tests one goroutine purging
// aggressively while another inserts a stream of nonces; neither may
// panic or deadlock the other.
func TestConcurrentPurgeAndInsert(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		farFuture := time.Now().Add(time.Hour)
		for i := range 100 {
			_ = i
			s.PurgeExpired(farFuture)
		}
	}()

	go func() {
		defer wg.Done()
		for i := uint64(0); i < 1000; i++ {
			var n [32]byte
			n[0] = byte(i >> 24)
			n[1] = byte(i >> 16)
			n[2] = byte(i >> 8)
			n[3] = byte(i)
			s.Record(n, time.Now().Add(time.Hour))
		}
	}()

	wg.Wait()
}
