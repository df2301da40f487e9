package candidate

const previewExamples = 10

// Preview summarizes what a scan would do without fetching anything.
type Preview struct {
	Total          int
	ToScan         int
	Skipped        int
	ScanExamples   []int
	SkipExamples   []int
	MoreToScan     bool
	MoreSkipped    bool
	InvalidPattern []string
}

// NewPreview builds a Preview for the range and filter.
func NewPreview(r Range, f *Filter) Preview {
	set := Generate(r, f)
	return Preview{
		Total:          r.Size(),
		ToScan:         len(set.Numbers),
		Skipped:        len(set.Skipped),
		ScanExamples:   head(set.Numbers, previewExamples),
		SkipExamples:   head(set.Skipped, previewExamples),
		MoreToScan:     len(set.Numbers) > previewExamples,
		MoreSkipped:    len(set.Skipped) > previewExamples,
		InvalidPattern: f.Invalid(),
	}
}

func head(in []int, n int) []int {
	if len(in) > n {
		in = in[:n]
	}
	return append([]int(nil), in...)
}
