package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_Do(t *testing.T) {
	var g SingleFlight[string]
	var counter int32

	const workers = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err, _ := g.Do("catalog", func() (string, error) {
				atomic.AddInt32(&counter, 1)
				time.Sleep(20 * time.Millisecond)
				return "ok", nil
			})
			if err != nil {
				t.Errorf("singleflight call failed: %v", err)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&counter); got != 1 {
		t.Fatalf("expected function to run once, got %d", got)
	}
}

func TestSingleFlight_SequentialCallsRunAgain(t *testing.T) {
	var g SingleFlight[string]
	var counter int32

	for i := 0; i < 3; i++ {
		_, _, shared := g.Do("k", func() (string, error) {
			atomic.AddInt32(&counter, 1)
			return "", nil
		})
		if shared {
			t.Fatalf("sequential call should not be shared")
		}
	}
	if got := atomic.LoadInt32(&counter); got != 3 {
		t.Fatalf("expected 3 runs, got %d", got)
	}
}

func TestSingleFlight_ForgetFuncStartsFreshCall(t *testing.T) {
	var g SingleFlight[int]
	release := make(chan struct{})
	started := make(chan struct{})

	first := make(chan int, 1)
	go func() {
		v, _, _ := g.Do("player:list", func() (int, error) {
			close(started)
			<-release
			return 1, nil
		})
		first <- v
	}()
	<-started

	g.ForgetFunc(func(key string) bool { return key == "player:list" })

	v, _, shared := g.Do("player:list", func() (int, error) { return 2, nil })
	if v != 2 || shared {
		t.Fatalf("expected a fresh unshared call, got v=%d shared=%v", v, shared)
	}

	close(release)
	if got := <-first; got != 1 {
		t.Fatalf("expected the detached call to finish with 1, got %d", got)
	}
}
