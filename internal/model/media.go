package model

// MediaFile is an uploaded audio or video file held in memory.
type MediaFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the file size in bytes.
func (f MediaFile) Size() int64 {
	return int64(len(f.Data))
}
