package pool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerPool(t *testing.T) {
	assert := assert.New(t)

	t.Run("Get and Put", func(t *testing.T) {
		timer1 := GetTimer(100 * time.Millisecond)
		assert.NotNil(timer1)

		PutTimer(timer1)

		timer2 := GetTimer(100 * time.Millisecond)
		assert.NotNil(timer2)

		<-timer2.C
		PutTimer(timer2)
	})

	t.Run("Reused Timer Fires On Schedule", func(t *testing.T) {
		timer1 := GetTimer(50 * time.Millisecond)
		time.Sleep(20 * time.Millisecond) // leave timer1 armed
		PutTimer(timer1)

		begin := time.Now()
		timer2 := GetTimer(200 * time.Millisecond)

		select {
		case tick := <-timer2.C:
			if tick.Sub(begin) < 180*time.Millisecond {
				t.Error("reused timer fired early, stale arming leaked through")
			}
		case <-time.After(300 * time.Millisecond):
			t.Error("reused timer did not fire within 300ms")
		}
		PutTimer(timer2)
	})

	t.Run("Concurrency", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				timer := GetTimer(10 * time.Millisecond)
				defer PutTimer(timer)
				<-timer.C
			}()
		}
		wg.Wait()
	})
}
