package ccsds

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// WriteFile writes the OEM to a file.
func (o *OEM) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := o.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write writes the OEM in KVN.
func (o *OEM) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	version := o.Version
	if version == "" {
		version = Version
	}
	created := o.Created
	if created.IsZero() {
		created = time.Now()
	}
	fmt.Fprintf(bw, "CCSDS_OEM_VERS = %s\n", version)
	writeComments(bw, o.Comments)
	fmt.Fprintf(bw, "CREATION_DATE = %s\n", FormatEpoch(created))
	fmt.Fprintf(bw, "ORIGINATOR = %s\n", o.Originator)
	for _, seg := range o.Segments {
		if err := seg.Meta.validate(); err != nil {
			return fmt.Errorf("%w: %s: %s", ErrFormat, seg.Meta.ObjectName, err)
		}
		m := seg.Meta
		fmt.Fprint(bw, "\nMETA_START\n")
		fmt.Fprintf(bw, "OBJECT_NAME = %s\n", m.ObjectName)
		id := m.ObjectID
		if id == "" {
			id = m.ObjectName
		}
		fmt.Fprintf(bw, "OBJECT_ID = %s\n", id)
		fmt.Fprintf(bw, "CENTER_NAME = %s\n", m.CenterName)
		fmt.Fprintf(bw, "REF_FRAME = %s\n", m.RefFrame)
		fmt.Fprintf(bw, "TIME_SYSTEM = %s\n", m.TimeSystem)
		fmt.Fprintf(bw, "START_TIME = %s\n", FormatEpoch(m.StartTime))
		fmt.Fprintf(bw, "STOP_TIME = %s\n", FormatEpoch(m.StopTime))
		if m.Interpolation != "" {
			fmt.Fprintf(bw, "INTERPOLATION = %s\n", m.Interpolation)
			fmt.Fprintf(bw, "INTERPOLATION_DEGREE = %d\n", m.InterpolationDegree)
		}
		fmt.Fprint(bw, "META_STOP\n\n")
		writeComments(bw, seg.Comments)
		for _, sv := range seg.States {
			if len(sv.R) != 3 || len(sv.V) != 3 || (sv.A != nil && len(sv.A) != 3) {
				return fmt.Errorf("%w: %s: state at %s does not have three components per vector", ErrFormat, m.ObjectName, FormatEpoch(sv.Epoch))
			}
			bw.WriteString(FormatEpoch(sv.Epoch))
			for _, vec := range [][]float64{sv.R, sv.V, sv.A} {
				for _, v := range vec {
					bw.WriteByte(' ')
					bw.WriteString(strconv.FormatFloat(v, 'e', -1, 64))
				}
			}
			bw.WriteByte('\n')
		}
		if len(seg.Covariances) == 0 {
			continue
		}
		fmt.Fprint(bw, "\nCOVARIANCE_START\n")
		for _, cov := range seg.Covariances {
			if cov.P == nil || cov.P.SymmetricDim() != 6 {
				return fmt.Errorf("%w: %s: covariance at %s is not 6x6", ErrFormat, m.ObjectName, FormatEpoch(cov.Epoch))
			}
			fmt.Fprintf(bw, "EPOCH = %s\n", FormatEpoch(cov.Epoch))
			if cov.RefFrame != "" {
				fmt.Fprintf(bw, "COV_REF_FRAME = %s\n", cov.RefFrame)
			}
			for i := 0; i < 6; i++ {
				for j := 0; j <= i; j++ {
					if j > 0 {
						bw.WriteByte(' ')
					}
					bw.WriteString(strconv.FormatFloat(cov.P.At(i, j), 'e', -1, 64))
				}
				bw.WriteByte('\n')
			}
		}
		fmt.Fprint(bw, "COVARIANCE_STOP\n")
	}
	return bw.Flush()
}

func writeComments(w io.Writer, comments []string) {
	for _, c := range comments {
		fmt.Fprintf(w, "COMMENT %s\n", c)
	}
}
