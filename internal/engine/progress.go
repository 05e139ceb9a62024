package engine

// Progress is the single refresh-line payload emitted once per iteration
// (spec.md §4.8 step 8). cmd/redumper renders it as a single rewritten
// status line; tests just record the sequence.
type Progress struct {
	Percentage float64
	LBA        int
	Overread   int
	ErrorsSCSI int
	ErrorsC2   int
	ErrorsQ    int
}

// ProgressFunc receives one Progress update per loop iteration.
type ProgressFunc func(Progress)
