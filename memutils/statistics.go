package memutils

import "math"

// Statistics is a cheap summary of the memory held by one or more blocks
type Statistics struct {
	BlockCount int
	// BlockBytes is the total capacity of all blocks
	BlockBytes int
	// HeadBytes is the number of bytes consumed from the head end of all blocks, including padding
	HeadBytes int
	// TailBytes is the number of bytes consumed from the tail end of all blocks, including padding
	TailBytes int
}

func (s *Statistics) Clear() {
	s.BlockCount = 0
	s.BlockBytes = 0
	s.HeadBytes = 0
	s.TailBytes = 0
}

// UsedBytes is the sum of HeadBytes and TailBytes
func (s *Statistics) UsedBytes() int {
	return s.HeadBytes + s.TailBytes
}

// UnusedBytes is the number of bytes still available between the cursors of all blocks
func (s *Statistics) UnusedBytes() int {
	return s.BlockBytes - s.UsedBytes()
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.BlockCount += other.BlockCount
	s.BlockBytes += other.BlockBytes
	s.HeadBytes += other.HeadBytes
	s.TailBytes += other.TailBytes
}

type DetailedStatistics struct {
	Statistics
	BlockSizeMin       int
	BlockSizeMax       int
	UnusedRangeSizeMin int
	UnusedRangeSizeMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.BlockSizeMin = math.MaxInt
	s.BlockSizeMax = 0
	s.UnusedRangeSizeMin = math.MaxInt
	s.UnusedRangeSizeMax = 0
}

// AddBlock records one block of the provided capacity, whose cursors are at head and tail
func (s *DetailedStatistics) AddBlock(size, head, tail int) {
	s.BlockCount++
	s.BlockBytes += size
	s.HeadBytes += head
	s.TailBytes += size - tail

	if size < s.BlockSizeMin {
		s.BlockSizeMin = size
	}
	if size > s.BlockSizeMax {
		s.BlockSizeMax = size
	}

	s.AddUnusedRange(tail - head)
}

func (s *DetailedStatistics) AddUnusedRange(size int) {
	if size < s.UnusedRangeSizeMin {
		s.UnusedRangeSizeMin = size
	}

	if size > s.UnusedRangeSizeMax {
		s.UnusedRangeSizeMax = size
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)

	if other.BlockSizeMin < s.BlockSizeMin {
		s.BlockSizeMin = other.BlockSizeMin
	}

	if other.BlockSizeMax > s.BlockSizeMax {
		s.BlockSizeMax = other.BlockSizeMax
	}

	if other.UnusedRangeSizeMin < s.UnusedRangeSizeMin {
		s.UnusedRangeSizeMin = other.UnusedRangeSizeMin
	}

	if other.UnusedRangeSizeMax > s.UnusedRangeSizeMax {
		s.UnusedRangeSizeMax = other.UnusedRangeSizeMax
	}
}
