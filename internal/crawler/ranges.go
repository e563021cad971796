package crawler

import "math"

// BlockRange is a closed block interval
type BlockRange struct {
	From uint64
	To   uint64
}

// BlockRanges partitions [from, to] into contiguous closed ranges of at most step blocks.
// It returns nil when from > to or step is zero.
func BlockRanges(from, to, step uint64) []BlockRange {
	if from > to || step == 0 {
		return nil
	}

	var out []BlockRange
	for i := from; ; {
		end := to
		if step-1 <= math.MaxUint64-i && i+step-1 < to {
			end = i + step - 1
		}
		out = append(out, BlockRange{From: i, To: end})
		if end == to {
			return out
		}
		i = end + 1
	}
}

// ChunkAddresses splits addrs into contiguous batches of at most size entries
func ChunkAddresses(addrs []string, size int) [][]string {
	if size <= 0 || len(addrs) == 0 {
		return nil
	}

	out := make([][]string, 0, (len(addrs)+size-1)/size)
	for i := 0; i < len(addrs); i += size {
		out = append(out, addrs[i:min(i+size, len(addrs))])
	}
	return out
}
