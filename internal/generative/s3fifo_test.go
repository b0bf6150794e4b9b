package generative

import (
	"fmt"
	"sync"
	"testing"
)

func newTestS3FIFO(capacity int) *s3fifoCache {
	return newS3FIFOCache(newMemoryKV(), capacity, nil).(*s3fifoCache)
}

func TestS3FIFOGetSetDelete(t *testing.T) {
	t.Parallel()
	c := newTestS3FIFO(10)
	defer c.Close() //nolint:errcheck

	if _, ok := c.Get("x"); ok {
		t.Error("expected miss on empty cache")
	}

	c.Set("hash-a", `[{"text":"a@b.com"}]`)
	v, ok := c.Get("hash-a")
	if !ok || v != `[{"text":"a@b.com"}]` {
		t.Fatalf("expected hit after Set, got %q ok=%v", v, ok)
	}

	c.Set("hash-a", `[{"text":"c@d.com"}]`)
	v, ok = c.Get("hash-a")
	if !ok || v != `[{"text":"c@d.com"}]` {
		t.Errorf("expected overwritten value, got %q ok=%v", v, ok)
	}

	c.Delete("hash-a")
	if _, ok := c.Get("hash-a"); ok {
		t.Error("expected miss after Delete")
	}
}

func TestS3FIFOCapacityEnforced(t *testing.T) {
	t.Parallel()
	capacity := 10
	c := newTestS3FIFO(capacity)
	defer c.Close() //nolint:errcheck

	for i := 0; i < capacity+5; i++ {
		c.Set(fmt.Sprintf("key-%d", i), fmt.Sprintf("val-%d", i))
	}

	c.mu.Lock()
	total := c.sQueue.Len() + c.mQueue.Len()
	c.mu.Unlock()

	if total > capacity {
		t.Errorf("in-memory entries %d exceeds capacity %d", total, capacity)
	}
}

func TestS3FIFOPromotionToM(t *testing.T) {
	t.Parallel()
	c := newTestS3FIFO(2)
	defer c.Close() //nolint:errcheck

	c.Set("hot", "v-hot")
	c.Get("hot") // freq -> 1

	c.Set("cold", "v-cold") // total=2, no eviction yet
	c.Set("extra", "v-extra") // total=3 > 2, evicts "hot" from S -> promoted to M

	c.mu.Lock()
	e, ok := c.entries["hot"]
	c.mu.Unlock()

	if !ok {
		t.Fatal("expected 'hot' to still be resident after S eviction")
	}
	if !e.inM {
		t.Error("expected 'hot' to be promoted to M queue (freq > 0 at eviction time)")
	}
}

func TestS3FIFOGhostBypassesS(t *testing.T) {
	t.Parallel()
	c := newTestS3FIFO(2)
	defer c.Close() //nolint:errcheck

	c.Set("victim", "v-victim")
	c.Set("displacer", "v-displacer")
	c.Set("trigger", "v-trigger")

	c.mu.Lock()
	_, resident := c.entries["victim"]
	inGhost := c.ghostContains("victim")
	c.mu.Unlock()

	if resident {
		t.Error("expected 'victim' to be evicted from memory")
	}
	if !inGhost {
		t.Error("expected 'victim' to be in ghost after S eviction")
	}

	c.Set("victim", "v-victim-new")

	c.mu.Lock()
	e, ok := c.entries["victim"]
	c.mu.Unlock()

	if !ok {
		t.Fatal("expected 'victim' to be resident after re-insert")
	}
	if !e.inM {
		t.Error("expected 'victim' to bypass S and go to M on ghost-hit re-insert")
	}
}

func TestS3FIFOColdReadRewarmsMemory(t *testing.T) {
	t.Parallel()
	backing := newMemoryKV()
	backing.Set("cold-key", "v-cold")

	c := newS3FIFOCache(backing, 10, nil).(*s3fifoCache)
	defer c.Close() //nolint:errcheck

	c.mu.Lock()
	_, inMem := c.entries["cold-key"]
	c.mu.Unlock()
	if inMem {
		t.Fatal("expected cold-key absent from memory before Get")
	}

	v, ok := c.Get("cold-key")
	if !ok || v != "v-cold" {
		t.Fatalf("expected cold-key hit from backing, got ok=%v v=%q", ok, v)
	}

	c.mu.Lock()
	_, inMem = c.entries["cold-key"]
	c.mu.Unlock()
	if !inMem {
		t.Error("expected cold-key to be re-warmed into memory after Get")
	}
}

func TestS3FIFOConcurrentAccess(t *testing.T) {
	t.Parallel()
	c := newTestS3FIFO(100)
	defer c.Close() //nolint:errcheck

	const goroutines = 20
	const ops = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(g int) {
			defer wg.Done()
			for i := 0; i < ops; i++ {
				key := fmt.Sprintf("key-%d-%d", g, i%50)
				val := fmt.Sprintf("val-%d-%d", g, i)
				c.Set(key, val)
				c.Get(key)
				if i%10 == 0 {
					c.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.sQueue.Len() + c.mQueue.Len()
	if total > c.capacity {
		t.Errorf("post-concurrency: %d entries exceed capacity %d", total, c.capacity)
	}
	if len(c.entries) != total {
		t.Errorf("entries map (%d) out of sync with queue lengths (%d)", len(c.entries), total)
	}
	if c.ghostCount > c.ghostCap {
		t.Errorf("ghostCount %d exceeds ghostCap %d", c.ghostCount, c.ghostCap)
	}
}

func TestS3FIFOFrequencySaturation(t *testing.T) {
	t.Parallel()
	c := newTestS3FIFO(10)
	defer c.Close() //nolint:errcheck

	c.Set("k", "v")
	for i := 0; i < 100; i++ {
		c.Get("k")
	}

	c.mu.Lock()
	e := c.entries["k"]
	c.mu.Unlock()

	if e.freq != 3 {
		t.Errorf("expected freq=3 (saturated), got %d", e.freq)
	}
}

func TestS3FIFOWithBboltBacking(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	backing, err := newBboltKV(dir + "/test.db")
	if err != nil {
		t.Fatalf("newBboltKV: %v", err)
	}

	c := newS3FIFOCache(backing, 100, nil)
	defer c.Close() //nolint:errcheck

	c.Set("persist-key", `[{"text":"jane@example.com"}]`)

	v, ok := c.Get("persist-key")
	if !ok || v != `[{"text":"jane@example.com"}]` {
		t.Fatalf("expected hit, got ok=%v v=%q", ok, v)
	}

	c.Delete("persist-key")
	if _, ok := c.Get("persist-key"); ok {
		t.Error("expected miss after Delete")
	}
}
