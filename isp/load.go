package isp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/moffa90/go-machxo/bitstream"
	"github.com/moffa90/go-machxo/protocol"
)

// LoadResult summarizes a load. Compare Pages against the expected total to
// detect omitted pages.
type LoadResult struct {
	// Format is the decoded input format
	Format bitstream.Format

	// Pages is the number of pages written
	Pages int

	// Blocks is the number of well-formed JED blocks
	Blocks int

	// MalformedLines is the number of skipped malformed lines
	MalformedLines int

	// MalformedBlocks is the number of abandoned JED blocks: a bad terminator
	// or a page line with invalid bits
	MalformedBlocks int

	// Unsupported is the number of JED L records with a non-zero offset
	Unsupported int

	// BusyPolls is the number of busy polls after the last page (HEX only)
	BusyPolls int

	// Status is the status register read after ProgramDone (Program only)
	Status protocol.Status

	// Elapsed is the duration of the load
	Elapsed time.Duration
}

// LoadHEX writes every page of a HEX bitstream to configuration flash.
//
// The configuration address is reset once, then each line of 32 hex
// characters is written as one page in file order. Malformed lines are
// logged, counted and skipped unless strict decoding is enabled. After the
// last page LoadHEX waits for the device to clear busy.
//
// A transport failure or cancelled ctx stops the load and returns the
// partial result. Pages already written are not rolled back.
func (p *Programmer) LoadHEX(ctx context.Context, r io.Reader) (LoadResult, error) {
	start := time.Now()
	res := LoadResult{Format: bitstream.FormatHEX}

	if err := p.ResetConfigAddress(ctx); err != nil {
		return res, err
	}

	dec := bitstream.NewHEXDecoder(r)
	for {
		page, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !bitstream.IsDecodeError(err) {
				return res, fmt.Errorf("read hex: %w", err)
			}
			res.MalformedLines++
			if err := p.decodeError(err); err != nil {
				return res, err
			}
			continue
		}

		if err := p.loadPage(ctx, page, dec.Line(), &res, start); err != nil {
			return res, err
		}
	}

	p.logInfo(fmt.Sprintf("wrote %d pages", res.Pages),
		"format", res.Format.String(),
		"malformed_lines", res.MalformedLines,
	)

	polls, err := p.WaitBusy(ctx)
	res.BusyPolls = polls
	res.Elapsed = time.Since(start)
	if err != nil {
		return res, err
	}
	return res, nil
}

// LoadJED writes every L0 page block of a JEDEC fuse file to configuration
// flash.
//
// The configuration address is reset at the start of each block, then each
// 128-character fuse line is written as one page. A block ending in anything
// other than '*' is logged, counted and abandoned, and scanning resumes at
// the next L record. L records with a non-zero offset are counted as
// unsupported and their data is not written. LoadJED does not poll busy.
//
// Strict decoding, transport failures and cancellation behave as in LoadHEX.
func (p *Programmer) LoadJED(ctx context.Context, r io.Reader) (LoadResult, error) {
	start := time.Now()
	res := LoadResult{Format: bitstream.FormatJED}

	dec := bitstream.NewJEDDecoder(r)
	for {
		rec, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !bitstream.IsDecodeError(err) {
				return res, fmt.Errorf("read jed: %w", err)
			}

			var be *bitstream.BlockError
			switch {
			case errors.As(err, &be):
				res.MalformedBlocks++
			case errors.Is(err, bitstream.ErrUnsupportedOffset):
				res.Unsupported++
				p.logInfo("skipping unsupported record", "error", err.Error())
				continue
			default:
				res.MalformedLines++
			}
			if err := p.decodeError(err); err != nil {
				return res, err
			}
			continue
		}

		switch rec.Kind {
		case bitstream.RecordBlockStart:
			p.logDebug("page block", "line", rec.Line)
			if err := p.ResetConfigAddress(ctx); err != nil {
				return res, err
			}
		case bitstream.RecordPage:
			if err := p.loadPage(ctx, rec.Page, rec.Line, &res, start); err != nil {
				return res, err
			}
		case bitstream.RecordBlockEnd:
			res.Blocks++
			p.logInfo(fmt.Sprintf("wrote %d pages", rec.Pages), "line", rec.Line)
		}
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

// Load dispatches to LoadJED or LoadHEX.
func (p *Programmer) Load(ctx context.Context, r io.Reader, format bitstream.Format) (LoadResult, error) {
	switch format {
	case bitstream.FormatJED:
		return p.LoadJED(ctx, r)
	case bitstream.FormatHEX:
		return p.LoadHEX(ctx, r)
	default:
		return LoadResult{}, fmt.Errorf("unsupported bitstream format: %s", format)
	}
}

// LoadHEXFile opens path and calls LoadHEX.
func (p *Programmer) LoadHEXFile(ctx context.Context, path string) (LoadResult, error) {
	return p.loadFile(ctx, path, bitstream.FormatHEX)
}

// LoadJEDFile opens path and calls LoadJED.
func (p *Programmer) LoadJEDFile(ctx context.Context, path string) (LoadResult, error) {
	return p.loadFile(ctx, path, bitstream.FormatJED)
}

// LoadFile detects the format of path from its extension and loads it.
func (p *Programmer) LoadFile(ctx context.Context, path string) (LoadResult, error) {
	format, err := bitstream.DetectFormat(path)
	if err != nil {
		return LoadResult{}, err
	}
	return p.loadFile(ctx, path, format)
}

func (p *Programmer) loadFile(ctx context.Context, path string, format bitstream.Format) (LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return p.Load(ctx, f, format)
}

// Program performs the complete programming sequence:
//  1. Enter offline (or transparent) configuration mode
//  2. Erase the configured regions and wait for busy to clear
//  3. Load the bitstream
//  4. Set DONE and read the status register
//  5. Refresh, unless disabled
//
// Example:
//
//	f, _ := os.Open("impl1/design.jed")
//	defer f.Close()
//	res, err := prog.Program(ctx, f, bitstream.FormatJED)
func (p *Programmer) Program(ctx context.Context, r io.Reader, format bitstream.Format) (LoadResult, error) {
	if format != bitstream.FormatJED && format != bitstream.FormatHEX {
		return LoadResult{}, fmt.Errorf("unsupported bitstream format: %s", format)
	}

	start := time.Now()

	// Phase 1: Enter configuration mode
	p.reportProgress(Progress{Phase: PhaseEntering})
	if p.config.Transparent {
		if err := p.EnableConfigTransparent(ctx); err != nil {
			return LoadResult{}, fmt.Errorf("enable config: %w", err)
		}
	} else if err := p.EnableConfigOffline(ctx); err != nil {
		return LoadResult{}, fmt.Errorf("enable config: %w", err)
	}

	// Phase 2: Erase
	p.reportProgress(Progress{Phase: PhaseErasing, ElapsedTime: time.Since(start)})
	if err := p.Erase(ctx, p.config.EraseMask); err != nil {
		return LoadResult{}, fmt.Errorf("erase: %w", err)
	}
	polls, err := p.WaitBusy(ctx)
	if err != nil {
		return LoadResult{}, fmt.Errorf("erase: %w", err)
	}
	p.logDebug("erase complete", "regions", p.config.EraseMask.String(), "polls", polls)

	// Phase 3: Load pages
	p.reportProgress(Progress{Phase: PhaseProgramming, ElapsedTime: time.Since(start)})
	res, err := p.Load(ctx, r, format)
	if err != nil {
		return res, fmt.Errorf("load %s: %w", format, err)
	}

	// Phase 4: Program done
	p.reportProgress(Progress{Phase: PhaseFinishing, PagesWritten: res.Pages, ElapsedTime: time.Since(start)})
	if err := p.ProgramDone(ctx); err != nil {
		return res, fmt.Errorf("program done: %w", err)
	}
	status, err := p.ReadStatus(ctx)
	if err != nil {
		return res, fmt.Errorf("read status: %w", err)
	}
	res.Status = status
	p.logInfo("program done", "status", status.String())

	// Phase 5: Refresh
	if p.config.Refresh {
		p.reportProgress(Progress{Phase: PhaseRefreshing, PagesWritten: res.Pages, ElapsedTime: time.Since(start)})
		if err := p.Refresh(ctx); err != nil {
			return res, fmt.Errorf("refresh: %w", err)
		}
	}

	res.Elapsed = time.Since(start)
	p.reportProgress(Progress{Phase: PhaseComplete, PagesWritten: res.Pages, ElapsedTime: res.Elapsed})
	return res, nil
}

// ProgramFile detects the format of path from its extension and programs it.
func (p *Programmer) ProgramFile(ctx context.Context, path string) (LoadResult, error) {
	format, err := bitstream.DetectFormat(path)
	if err != nil {
		return LoadResult{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return p.Program(ctx, f, format)
}

// loadPage writes one decoded page and records it in res.
func (p *Programmer) loadPage(ctx context.Context, page protocol.Page, line int, res *LoadResult, start time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled after %d pages: %w", res.Pages, err)
	}

	if err := p.ProgramPage(ctx, page[:]); err != nil {
		return fmt.Errorf("program page %d (line %d): %w", res.Pages, line, err)
	}
	res.Pages++

	p.reportProgress(Progress{
		Phase:        PhaseProgramming,
		PagesWritten: res.Pages,
		Line:         line,
		ElapsedTime:  time.Since(start),
	})
	return nil
}

// decodeError reports a malformed line or block. It returns a non-nil error
// only in strict mode.
func (p *Programmer) decodeError(err error) error {
	p.logError("malformed input", "error", err.Error())
	if p.config.DecodeErrorCallback != nil {
		p.config.DecodeErrorCallback(err)
	}
	if p.config.StrictDecoding {
		return fmt.Errorf("strict decoding: %w", err)
	}
	return nil
}
