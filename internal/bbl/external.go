package bbl

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

const (
	// DefaultBinary is the decoder executable looked up in PATH.
	DefaultBinary = "blackbox_decode"

	// ParseErrorsThreshold defines the number of consecutive malformed rows allowed
	ParseErrorsThreshold = 5
)

var (
	// ErrTooManyParseErrors is returned when the number of consecutive malformed rows exceeds the threshold
	ErrTooManyParseErrors = errors.New("too many consecutive parse errors")

	// ErrBrokenPipe is returned when there's an error reading from stdout or stderr
	ErrBrokenPipe = errors.New("broken pipe")

	// ErrNoFrames is returned when the decoder produced a field list but no frames
	ErrNoFrames = errors.New("decoder produced no frames")
)

// WithLogger sets the logger for the decoder
func WithLogger(logger *slog.Logger) func(d *ExternalDecoder) {
	return func(d *ExternalDecoder) {
		d.logger = logger.With(slog.String("decoder", d.binary))
	}
}

// WithParseErrorsThreshold sets the threshold for consecutive malformed rows
func WithParseErrorsThreshold(threshold uint8) func(d *ExternalDecoder) {
	return func(d *ExternalDecoder) {
		d.parseErrorsThreshold = threshold
	}
}

// ExternalDecoder runs the blackbox_decode tool on a session file and reads
// the CSV it writes to stdout. Headers are read from the session file
// itself since the CSV only carries field names.
type ExternalDecoder struct {
	binary               string
	parseErrorsThreshold uint8
	logger               *slog.Logger
}

// NewExternalDecoder creates a decoder for the given executable with a discard logger
func NewExternalDecoder(binary string, options ...func(d *ExternalDecoder)) *ExternalDecoder {
	if binary == "" {
		binary = DefaultBinary
	}

	d := ExternalDecoder{
		binary:               binary,
		parseErrorsThreshold: ParseErrorsThreshold,
		logger:               slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&d)
	}

	return &d
}

func (d *ExternalDecoder) cmd(ctx context.Context, path string) *exec.Cmd {
	return exec.CommandContext(ctx, d.binary, "--stdout", path)
}

// Decode implements Decoder.
func (d *ExternalDecoder) Decode(ctx context.Context, path string) (*Log, error) {
	headers, err := readHeaderFile(path)
	if err != nil {
		return nil, err
	}

	cmd := d.cmd(ctx, path)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("error creating stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("error creating stderr pipe: %w", err)
	}

	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("error starting command: %w", err)
	}

	d.logger.Debug("decoding session", slog.String("path", path))

	log := Log{Headers: headers}
	done := make(chan error, 2) // stdout and stderr readers

	go d.handleStdout(stdout, &log, done)
	go d.handleStderr(stderr, done)

	var errs []error
	for i := 0; i < cap(done); i++ {
		if err := <-done; err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		// the tool may still be writing; reading stopped so it has to go
		_ = cmd.Process.Kill()
	}

	if err := cmd.Wait(); err != nil && !errors.Is(err, context.Canceled) && len(errs) == 0 {
		errs = append(errs, fmt.Errorf("command exited with error: %w", err))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(log.Frames) == 0 {
		return nil, ErrNoFrames
	}

	return &log, nil
}

func readHeaderFile(path string) (headers map[string]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening session file: %w", err)
	}
	defer func() {
		if cErr := f.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("closing session file: %w", cErr)
		}
	}()

	if headers, err = ReadHeaders(f); err != nil {
		return nil, fmt.Errorf("reading headers: %w", err)
	}
	return headers, nil
}

// handleStdout reads the CSV stream into log. The first record is the field
// name list, every following record is one main frame.
func (d *ExternalDecoder) handleStdout(stdout io.Reader, log *Log, done chan<- error) {
	err := d.parseCSV(stdout, log)

	// drain so the tool does not block on a full pipe
	_, _ = io.Copy(io.Discard, stdout)

	done <- err
}

func (d *ExternalDecoder) parseCSV(r io.Reader, log *Log) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	var parseErrors uint8
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var pErr *csv.ParseError
			if errors.As(err, &pErr) {
				if parseErrors++; parseErrors >= d.parseErrorsThreshold {
					return ErrTooManyParseErrors
				}
				d.logger.Warn(fmt.Sprintf("error parsing frame: %s", err.Error()))
				continue
			}
			if errors.Is(err, fs.ErrClosed) {
				return nil
			}
			return fmt.Errorf("%w: error reading stdout: %w", ErrBrokenPipe, err)
		}

		if log.FieldNames == nil {
			log.FieldNames = make([]string, len(record))
			for i, name := range record {
				log.FieldNames[i] = strings.TrimSpace(name)
			}
			continue
		}

		if len(record) != len(log.FieldNames) {
			parseErrors++
			d.logger.Warn("frame field count mismatch",
				slog.Int("fields", len(record)),
				slog.Int("expected", len(log.FieldNames)))

			if parseErrors >= d.parseErrorsThreshold {
				return ErrTooManyParseErrors
			}
			continue
		}

		parseErrors = 0 // reset counter
		log.Frames = append(log.Frames, Frame{Type: FrameInter, Values: parseValues(record)})
	}
}

// parseValues converts one CSV record. Cells that are not finite numbers,
// such as flag names, "NaN" or "Inf", decode as zero.
func parseValues(record []string) []float64 {
	values := make([]float64, len(record))
	for i, cell := range record {
		v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values[i] = v
	}
	return values
}

// handleStderr reads from stderr and logs tool output.
func (d *ExternalDecoder) handleStderr(stderr io.Reader, done chan<- error) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		d.logger.Debug(fmt.Sprintf("%s >> %s", d.binary, line))
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, fs.ErrClosed) {
		done <- fmt.Errorf("%w: error reading stderr: %w", ErrBrokenPipe, err)
		return
	}

	done <- nil
}
