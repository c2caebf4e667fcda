package synth

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// stitch concatenates per-unit WAV files into dest, strictly in index
// order. The destination is written via a temp file and renamed into
// place, so a failure never leaves a partial artifact. Consumed
// transients are removed on success.
func stitch(results []Result, dest string) error {
	if len(results) == 0 {
		return fmt.Errorf("stitch: no audio to concatenate")
	}
	sorted := make([]Result, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".quillcast_stitch_*.wav")
	if err != nil {
		return fmt.Errorf("stitch: create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	var enc *wav.Encoder
	var format *audio.Format
	var depth int
	for _, r := range sorted {
		buf, err := readUnit(r.Path)
		if err != nil {
			cleanup()
			return &UnitError{Stage: "stitch", Index: r.Index, Err: err}
		}
		if enc == nil {
			format = buf.Format
			depth = buf.SourceBitDepth
			enc = wav.NewEncoder(tmp, format.SampleRate, depth, format.NumChannels, 1)
		} else if buf.Format.SampleRate != format.SampleRate || buf.Format.NumChannels != format.NumChannels || buf.SourceBitDepth != depth {
			cleanup()
			return &UnitError{Stage: "stitch", Index: r.Index,
				Err: fmt.Errorf("format mismatch: %d Hz/%d ch/%d bit vs %d Hz/%d ch/%d bit",
					buf.Format.SampleRate, buf.Format.NumChannels, buf.SourceBitDepth,
					format.SampleRate, format.NumChannels, depth)}
		}
		if err := enc.Write(buf); err != nil {
			cleanup()
			return &UnitError{Stage: "stitch", Index: r.Index, Err: fmt.Errorf("append audio: %w", err)}
		}
	}
	if err := enc.Close(); err != nil {
		cleanup()
		return fmt.Errorf("stitch: finalize artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("stitch: close artifact: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("stitch: move artifact into place: %w", err)
	}

	for _, r := range sorted {
		os.Remove(r.Path)
	}
	return nil
}

func readUnit(path string) (*audio.IntBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transient audio: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode transient audio: %w", err)
	}
	if buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("transient audio empty or corrupt")
	}
	// The decoder records the container's bit depth on the buffer;
	// fall back to 16 only when the header did not carry one.
	if buf.SourceBitDepth == 0 {
		buf.SourceBitDepth = int(dec.BitDepth)
	}
	if buf.SourceBitDepth == 0 {
		buf.SourceBitDepth = 16
	}
	return buf, nil
}
