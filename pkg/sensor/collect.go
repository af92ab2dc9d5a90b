package sensor

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/flagbot/pkg/poll"
)

// Collect takes n samples from src, one per yield, and writes them to
// <dir>/<name>-<unix millis>.csv with one row per sample.  Failed reads
// are recorded as empty rows so the timing stays visible.
func Collect(ctx context.Context, y poll.Yielder, dir, name string, src func() ([]float64, error), n int, unixMillis int64) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("%s-%d.csv", name, unixMillis))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to create sample file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for i := 0; i < n; i++ {
		if i > 0 {
			if err := y.Yield(ctx); err != nil {
				w.Flush()
				return path, err
			}
		}
		vals, err := src()
		var row []string
		if err == nil {
			for _, v := range vals {
				row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
			}
		}
		if err := w.Write(row); err != nil {
			return path, errors.Wrap(err, "failed to write sample")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return path, errors.Wrap(err, "failed to flush samples")
	}
	fmt.Printf("Collected %d samples into %s\n", n, path)
	return path, nil
}
