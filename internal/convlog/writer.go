// Package convlog persists conversation transcripts as timestamped JSON
// files and prunes old ones on a schedule.
package convlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/toolbridge/toolbridge/internal/apperr"
	"github.com/toolbridge/toolbridge/internal/schema"
)

const filePrefix = "conversation_"

// Writer dumps full transcripts to the log directory. Each write produces a
// new file; existing files are never modified.
type Writer struct {
	dir string
	now func() time.Time
}

func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.E(apperr.KindSerialization, "convlog.new",
			fmt.Errorf("create log directory: %w", err))
	}
	return &Writer{dir: dir, now: time.Now}, nil
}

// Write dumps the transcript to a fresh conversation_<timestamp>.json file.
// Same-second collisions get a _1, _2, ... suffix instead of overwriting.
func (w *Writer) Write(transcript []schema.Message) error {
	data, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		return apperr.E(apperr.KindSerialization, "convlog.write",
			fmt.Errorf("encode transcript: %w", err))
	}

	stamp := w.now().Format("2006-01-02_15-04-05")
	for i := 0; ; i++ {
		name := filePrefix + stamp + ".json"
		if i > 0 {
			name = fmt.Sprintf("%s%s_%d.json", filePrefix, stamp, i)
		}
		path := filepath.Join(w.dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return apperr.E(apperr.KindSerialization, "convlog.write",
				fmt.Errorf("create log file: %w", err))
		}

		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil {
			return apperr.E(apperr.KindSerialization, "convlog.write",
				fmt.Errorf("write log file: %w", werr))
		}
		if cerr != nil {
			return apperr.E(apperr.KindSerialization, "convlog.write",
				fmt.Errorf("close log file: %w", cerr))
		}
		slog.Debug("wrote conversation log", "file", name, "messages", len(transcript))
		return nil
	}
}

// Dir returns the log directory.
func (w *Writer) Dir() string {
	return w.dir
}
