package gmat

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ChristopherRabotin/gmat/timesys"
	"github.com/fxamacker/cbor/v2"
	kitlog "github.com/go-kit/kit/log"
)

// Row is one sample of published values.
type Row struct {
	Epoch  timesys.PreciseEpoch // A1
	Values []float64
}

// cborHeader is the first item of a CBOR export.
type cborHeader struct {
	_       struct{} `cbor:",toarray"`
	Created string
	Columns []string
}

type cborRow struct {
	_      struct{} `cbor:",toarray"`
	Day    int64
	Sec    float64
	Values []float64
}

// ExportConfig configures the exporting of published rows.
type ExportConfig struct {
	OutputDir string
	Filename  string
	AsCSV     bool
	AsCBOR    bool
	Timestamp bool
	Logger    kitlog.Logger
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.AsCSV && !c.AsCBOR
}

func (c ExportConfig) path(ext string) string {
	name := c.Filename
	if c.Timestamp {
		t := time.Now()
		name = fmt.Sprintf("%s-%d-%02d-%02dT%02d.%02d.%02d", name, t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
	}
	return filepath.Join(c.OutputDir, name+"."+ext)
}

// StreamRows writes the rows received on the channel until it is closed. Each row must have one
// value per header column. The channel is always drained, even after a write error, so the
// producer never blocks; the first error is returned.
func StreamRows(conf ExportConfig, header []string, rows <-chan Row) (err error) {
	logger := conf.Logger
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	logger = kitlog.With(logger, "subsys", "export")
	defer func() {
		// Drain whatever is left.
		for range rows {
		}
	}()

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}()

	var csvW *csv.Writer
	if conf.AsCSV {
		f, ferr := os.Create(conf.path("csv"))
		if ferr != nil {
			return ferr
		}
		closers = append(closers, f)
		fmt.Fprintf(f, "# Creation date (UTC): %s\n# Epochs are UTC and A1 modified Julian dates (JD - 2430000.0)\n", time.Now().UTC())
		csvW = csv.NewWriter(f)
		if err := csvW.Write(append([]string{"epoch_utc", "epoch_a1"}, header...)); err != nil {
			return err
		}
		logger.Log("level", "info", "file", f.Name())
	}
	var cborE *cbor.Encoder
	if conf.AsCBOR {
		f, ferr := os.Create(conf.path("cbor"))
		if ferr != nil {
			return ferr
		}
		closers = append(closers, f)
		em, merr := cbor.EncOptions{Sort: cbor.SortCoreDeterministic}.EncMode()
		if merr != nil {
			return merr
		}
		cborE = em.NewEncoder(f)
		if err := cborE.Encode(cborHeader{Created: time.Now().UTC().Format(time.RFC3339), Columns: header}); err != nil {
			return err
		}
		logger.Log("level", "info", "file", f.Name())
	}

	count := 0
	for row := range rows {
		if len(row.Values) != len(header) {
			return fmt.Errorf("%w: row %d has %d values for %d columns", ErrInvalidArgument, count, len(row.Values), len(header))
		}
		if csvW != nil {
			record := make([]string, 0, 2+len(row.Values))
			record = append(record, timesys.ToTime(row.Epoch, timesys.A1).Format(time.RFC3339Nano))
			record = append(record, strconv.FormatFloat(float64(row.Epoch.Epoch()), 'f', 10, 64))
			for _, v := range row.Values {
				record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
			}
			if err := csvW.Write(record); err != nil {
				return err
			}
		}
		if cborE != nil {
			if err := cborE.Encode(cborRow{Day: row.Epoch.Day, Sec: row.Epoch.Sec, Values: row.Values}); err != nil {
				return err
			}
		}
		count++
	}
	if csvW != nil {
		csvW.Flush()
		if err := csvW.Error(); err != nil {
			return err
		}
	}
	logger.Log("level", "info", "rows", count)
	return nil
}

// ReadCBORRows reads back an export written by StreamRows.
func ReadCBORRows(r io.Reader) (header []string, rows []Row, err error) {
	dec := cbor.NewDecoder(r)
	var hdr cborHeader
	if err := dec.Decode(&hdr); err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	for {
		var row cborRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				return hdr.Columns, rows, nil
			}
			return nil, nil, err
		}
		rows = append(rows, Row{timesys.PreciseEpoch{Day: row.Day, Sec: row.Sec}, row.Values})
	}
}
