package cppreflect

import (
	"github.com/jward/cppreflect/internal/frontend"
)

// Materializer turns a unit's snapshot and build command into a model.
type Materializer interface {
	Materialize(path string, cmd Command, snapshot []byte) (*Model, error)
}

// MaterializerFunc adapts a function to Materializer.
type MaterializerFunc func(path string, cmd Command, snapshot []byte) (*Model, error)

func (f MaterializerFunc) Materialize(path string, cmd Command, snapshot []byte) (*Model, error) {
	return f(path, cmd, snapshot)
}

// FrontendMaterializer replays the build command in a frontend session and
// loads the snapshot into it. It is the default.
type FrontendMaterializer struct {
	// TempDir stages snapshot payloads while they are decoded ("" for the
	// system temp directory).
	TempDir string
}

func (f FrontendMaterializer) Materialize(_ string, cmd Command, snapshot []byte) (*Model, error) {
	sess, err := frontend.NewSession(cmd.Arguments,
		frontend.WithDirectory(cmd.Directory),
		frontend.WithTempDir(f.TempDir),
	)
	if err != nil {
		return nil, err
	}
	return sess.LoadSnapshot(snapshot)
}
