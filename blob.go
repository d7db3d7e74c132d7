package cppreflect

// Blob is a view over embedded bytes. It never copies or validates them;
// malformed content surfaces only when a consumer decodes it.
type Blob struct {
	data []byte
}

func NewBlob(data []byte) Blob {
	return Blob{data: data}
}

func (b Blob) Bytes() []byte { return b.data }

func (b Blob) Len() int { return len(b.data) }
