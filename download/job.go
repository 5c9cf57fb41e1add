package download

import "errors"

var (
	ErrNoSegments = errors.New("no segments to download")
)

// Job is a single download: segment URLs in playback order, remuxed into one output file.
type Job struct {
	outputPath string
	segments   []string
}

func NewJob(outputPath string, segments []string) *Job {
	return &Job{
		outputPath: outputPath,
		segments:   append([]string(nil), segments...),
	}
}

func (j *Job) OutputPath() string {
	return j.outputPath
}

// Segments returns a copy of the segment URLs.
func (j *Job) Segments() []string {
	return append([]string(nil), j.segments...)
}

func (j *Job) Len() int {
	return len(j.segments)
}

// Result describes what a Job actually produced. OK only means at least one segment was written and the output file
// exists and is not empty; segments that could not be fetched are listed in Dropped and are simply missing from the
// output.
type Result struct {
	OutputPath string
	Total      int
	Written    int
	// Zero-based indexes of segments that could not be fetched.
	Dropped []int
	// Segment bytes written to the muxer.
	Bytes int64
	// Size of the output file.
	Size int64
	// Exit error of the muxer, if any.
	MuxerErr error
	OK       bool
}

// Complete is true if the output exists and no segment was dropped.
func (r *Result) Complete() bool {
	return r.OK && len(r.Dropped) == 0
}
