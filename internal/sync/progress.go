package sync

import (
	"io"

	"github.com/cheggaaa/pb/v3"
)

// transferBar shows a byte progress bar for one file when enabled.
type transferBar struct {
	bar *pb.ProgressBar
}

func newTransferBar(enabled bool, name string, size int64) *transferBar {
	if !enabled {
		return &transferBar{}
	}
	bar := pb.New64(size)
	bar.Set(pb.Bytes, true)
	bar.SetTemplate(`{{string . "name"}} {{counters . }} {{bar . }} {{percent . }} {{speed . }}`)
	bar.Set("name", name)
	bar.Start()
	return &transferBar{bar: bar}
}

func (t *transferBar) reader(r io.Reader) io.Reader {
	if t.bar == nil {
		return r
	}
	return t.bar.NewProxyReader(r)
}

func (t *transferBar) writer(w io.Writer) io.Writer {
	if t.bar == nil {
		return w
	}
	return t.bar.NewProxyWriter(w)
}

func (t *transferBar) finish() {
	if t.bar != nil {
		t.bar.Finish()
	}
}
