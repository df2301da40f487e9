// Package candidate enumerates the numeric domain candidates of a scan range.
package candidate

import "fmt"

// Range is an inclusive span of candidate numbers.
type Range struct {
	Start int
	End   int
}

// Validate enforces Start <= End.
func (r Range) Validate() error {
	if r.Start > r.End {
		return fmt.Errorf("range start %d is greater than end %d", r.Start, r.End)
	}
	return nil
}

// Size is the number of integers in the range.
func (r Range) Size() int {
	if r.Start > r.End {
		return 0
	}
	return r.End - r.Start + 1
}

// Set is the ascending candidate sequence left after filtering.
type Set struct {
	Numbers []int
	Skipped []int
}

// Generate lists Start..End in ascending order, dropping numbers the filter excludes.
func Generate(r Range, f *Filter) Set {
	set := Set{Numbers: make([]int, 0, r.Size())}
	if r.Start > r.End {
		return set
	}
	// Stop on End itself so a range ending at math.MaxInt cannot wrap.
	for n := r.Start; ; n++ {
		if f.Excludes(n) {
			set.Skipped = append(set.Skipped, n)
		} else {
			set.Numbers = append(set.Numbers, n)
		}
		if n == r.End {
			break
		}
	}
	return set
}
