package selector

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	child_process_manager "github.com/AgustinSRG/go-child-process-manager"
	"github.com/sirupsen/logrus"

	"github.com/ivlev/pagecapture/internal/capture"
)

// Flag is the hidden command line flag that turns the binary into the selector child.
const Flag = "select-region"

const resultPrefix = "region: "

var (
	ErrNoResult  = errors.New("selector process printed no region")
	ErrBadResult = errors.New("malformed selector result")
)

// EncodeResult is the line the selector child prints for r.
func EncodeResult(r *capture.Region) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return resultPrefix + string(b), nil
}

// DecodeResult parses a line made by EncodeResult. ok is false for any other line.
func DecodeResult(line string) (r *capture.Region, ok bool, err error) {
	payload, found := strings.CutPrefix(strings.TrimSpace(line), resultPrefix)
	if !found {
		return nil, false, nil
	}
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, true, fmt.Errorf("%w: %q: %w", ErrBadResult, payload, err)
	}
	return r, true, nil
}

func WriteResult(w io.Writer, r *capture.Region) error {
	line, err := EncodeResult(r)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, line)
	return err
}

// ReadResult returns the last result line in rd, other output is skipped.
func ReadResult(rd io.Reader) (*capture.Region, error) {
	var (
		result *capture.Region
		seen   bool
	)
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		r, ok, err := DecodeResult(scanner.Text())
		if err != nil {
			return nil, err
		}
		if ok {
			result, seen = r, true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("unable to read selector output: %w", err)
	}
	if !seen {
		return nil, ErrNoResult
	}
	return result, nil
}

// RunIsolated starts exe with args and the selector flag, and waits for the
// region it reports. The child is tied to this process so it dies with it.
func RunIsolated(ctx context.Context, exe string, args []string, log logrus.FieldLogger) (*capture.Region, error) {
	cmd := exec.CommandContext(ctx, exe, append(args, "--"+Flag)...)
	cmd.Stderr = os.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("unable to initialize an stdout pipe: %w", err)
	}
	if err := child_process_manager.ConfigureCommand(cmd); err != nil {
		log.WithError(err).Warn("unable to configure the selector process")
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("unable to start a subprocess to select the region: %w", err)
	}
	if err := child_process_manager.AddChildProcess(cmd.Process); err != nil {
		log.WithError(err).Warn("unable to register the selector process")
	}
	log.WithField("pid", cmd.Process.Pid).Debug("selector process started")

	r, readErr := ReadResult(stdout)
	// drain so the child never blocks on a full pipe
	_, _ = io.Copy(io.Discard, stdout)
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("selector process failed: %w", err)
	}
	if readErr != nil {
		return nil, readErr
	}
	return r, nil
}
