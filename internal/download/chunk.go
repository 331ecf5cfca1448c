package download

import "time"

const (
	mib = 1024 * 1024

	DefaultInitialChunk int64 = 2 * mib
	DefaultMinChunk     int64 = 1 * mib
	DefaultMaxChunk     int64 = 64 * mib
)

// ChunkBounds 限定分块大小的取值范围。
type ChunkBounds struct {
	Min int64
	Max int64
}

// ChunkState 是分块下载循环的全部状态。
type ChunkState struct {
	Offset         int64
	ChunkSize      int64
	LastThroughput float64 // bytes/s，首轮为 0
}

// NewChunkState 返回从 0 开始的初始状态。
func NewChunkState(initial int64, bounds ChunkBounds) ChunkState {
	return ChunkState{ChunkSize: bounds.clamp(initial)}
}

// Advance 根据本轮收到的字节数与耗时计算下一轮状态。
// 吞吐不低于上一轮则块大小翻倍，否则减半，结果限定在 bounds 内。
func (s ChunkState) Advance(n int64, elapsed time.Duration, bounds ChunkBounds) ChunkState {
	if elapsed <= 0 {
		elapsed = time.Nanosecond
	}
	throughput := float64(n) / elapsed.Seconds()

	next := s.ChunkSize
	if throughput >= s.LastThroughput {
		next *= 2
	} else {
		next /= 2
	}

	return ChunkState{
		Offset:         s.Offset + n,
		ChunkSize:      bounds.clamp(next),
		LastThroughput: throughput,
	}
}

// End 返回本轮 Range 请求的闭区间终点，不超过 total-1。
func (s ChunkState) End(total int64) int64 {
	end := s.Offset + s.ChunkSize - 1
	if total > 0 && end >= total {
		end = total - 1
	}
	return end
}

func (b ChunkBounds) clamp(v int64) int64 {
	if b.Min > 0 && v < b.Min {
		return b.Min
	}
	if b.Max > 0 && v > b.Max {
		return b.Max
	}
	return v
}
