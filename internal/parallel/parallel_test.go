package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFor(t *testing.T) {
	configs := map[string]Config{
		"default":    DefaultConfig(),
		"sequential": Sequential(),
		"forced":     {Enabled: true, NumWorkers: 4, MinChunkSize: 1},
	}

	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			const n = 1000
			var visits [n]int32
			var total int64

			For(n, func(i int) {
				atomic.AddInt32(&visits[i], 1)
				atomic.AddInt64(&total, 1)
			}, cfg)

			assert.Equal(t, int64(n), total)
			for i, v := range visits {
				assert.Equal(t, int32(1), v, "index %d", i)
			}
		})
	}
}

func TestFor_Empty(t *testing.T) {
	called := false
	For(0, func(int) { called = true }, Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1})
	assert.False(t, called)
}

func TestForGrid(t *testing.T) {
	rows, cols := 4, 8
	var seen [4][8]int32

	ForGrid(rows, cols, func(a, b int) {
		atomic.AddInt32(&seen[a][b], 1)
	}, Config{Enabled: true, NumWorkers: 3, MinChunkSize: 2})

	for a := range seen {
		for b := range seen[a] {
			assert.Equal(t, int32(1), seen[a][b], "[%d][%d]", a, b)
		}
	}

	ForGrid(3, 0, func(int, int) { t.Fatal("no cells") }, DefaultConfig())
}

func BenchmarkFor(b *testing.B) {
	const n = 10000
	for name, cfg := range map[string]Config{"parallel": DefaultConfig(), "sequential": Sequential()} {
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				var sum int64
				For(n, func(i int) {
					atomic.AddInt64(&sum, int64(i))
				}, cfg)
			}
		})
	}
}
