// Package enrich appends a road-type column to a CSV file, resolving each
// row's coordinate one row at a time with a courtesy delay between rows.
package enrich

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/roadtype-cli/internal/csvline"
	"github.com/sells-group/roadtype-cli/internal/resolver"
)

// DefaultColumnName is the name of the appended column.
const DefaultColumnName = "RoadType"

// DefaultDelay is the pause after every resolved-mode row.
const DefaultDelay = 200 * time.Millisecond

const progressEvery = 100

// Options configures a Pipeline.
type Options struct {
	LatitudeColumns  []string
	LongitudeColumns []string
	ColumnName       string
	Delay            time.Duration
	DeleteInput      bool
}

// DefaultOptions returns the out-of-the-box settings.
func DefaultOptions() Options {
	return Options{
		LatitudeColumns:  DefaultLatitudeColumns,
		LongitudeColumns: DefaultLongitudeColumns,
		ColumnName:       DefaultColumnName,
		Delay:            DefaultDelay,
	}
}

// Stats summarizes a run.
type Stats struct {
	Rows             int
	Lookups          int // rows handed to the resolver
	Skipped          int // rows with no usable coordinate
	CoordinatesFound bool
	Classes          map[string]int
	Duration         time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for progress and warnings.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithSleep replaces the pause between rows.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

// Pipeline drives the enrichment of one file.
type Pipeline struct {
	resolver resolver.Resolver
	opts     Options
	log      *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates a Pipeline. Empty option fields take the defaults.
func New(r resolver.Resolver, opts Options, extra ...Option) *Pipeline {
	def := DefaultOptions()
	if len(opts.LatitudeColumns) == 0 {
		opts.LatitudeColumns = def.LatitudeColumns
	}
	if len(opts.LongitudeColumns) == 0 {
		opts.LongitudeColumns = def.LongitudeColumns
	}
	if opts.ColumnName == "" {
		opts.ColumnName = def.ColumnName
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}

	p := &Pipeline{
		resolver: r,
		opts:     opts,
		log:      zap.L(),
		sleep:    sleepContext,
	}
	for _, o := range extra {
		o(p)
	}
	return p
}

// Run reads CSV lines from in and writes the augmented copy to out. Only an
// empty input, a write failure or a cancelled context stop a run early.
func (p *Pipeline) Run(ctx context.Context, in io.Reader, out io.Writer) (Stats, error) {
	start := time.Now()
	stats := Stats{Classes: make(map[string]int)}
	lines := newLineReader(in)
	w := bufio.NewWriter(out)

	header, ok, err := lines.next()
	if err != nil {
		return stats, exitError(ExitEmptyHeader, eris.Wrap(err, "enrich: read header"))
	}
	if !ok || strings.TrimSpace(header) == "" {
		return stats, exitError(ExitEmptyHeader, eris.New("enrich: empty input, no header line"))
	}

	cols := csvline.Split(header)
	if err := writeLine(w, csvline.Join(append(cols, p.opts.ColumnName))); err != nil {
		return stats, err
	}

	positions := FindColumns(cols, p.opts.LatitudeColumns, p.opts.LongitudeColumns)
	stats.CoordinatesFound = positions.Found()

	if !positions.Found() {
		p.log.Warn("latitude/longitude columns not found, appending empty "+p.opts.ColumnName,
			zap.Strings("header", cols),
			zap.Strings("latitude_names", p.opts.LatitudeColumns),
			zap.Strings("longitude_names", p.opts.LongitudeColumns),
		)
		err = p.passThrough(ctx, lines, w, &stats)
	} else {
		p.logColumns(cols, positions)
		err = p.resolveRows(ctx, lines, w, positions, &stats)
	}
	stats.Duration = time.Since(start)
	if err != nil {
		if ExitCode(err) != ExitWrite {
			// Keep the header and every completed row.
			_ = w.Flush()
		}
		return stats, err
	}

	if err := w.Flush(); err != nil {
		return stats, exitError(ExitWrite, eris.Wrap(err, "enrich: flush output"))
	}
	return stats, nil
}

// passThrough copies every remaining line verbatim with an empty column
// appended. No lookups and no delays happen in this mode.
func (p *Pipeline) passThrough(ctx context.Context, lines *lineReader, w *bufio.Writer, stats *Stats) error {
	empty := string(csvline.Separator) + csvline.Quote("")
	for {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "enrich: cancelled")
		}
		line, ok, err := lines.next()
		if err != nil {
			return eris.Wrap(err, "enrich: read input")
		}
		if !ok {
			return nil
		}
		if err := writeLine(w, line+empty); err != nil {
			return err
		}
		stats.Rows++
		stats.Skipped++
		stats.Classes[""]++
	}
}

func (p *Pipeline) resolveRows(ctx context.Context, lines *lineReader, w *bufio.Writer, cols Columns, stats *Stats) error {
	for {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "enrich: cancelled")
		}
		line, ok, err := lines.next()
		if err != nil {
			return eris.Wrap(err, "enrich: read input")
		}
		if !ok {
			return nil
		}

		fields := csvline.Split(line)
		class := ""
		lat, lon, found := coordinate(fields, cols)
		if found {
			class = p.resolver.Resolve(ctx, lat, lon)
			// A lookup cut short by cancellation has no real answer; drop the row.
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "enrich: cancelled")
			}
			stats.Lookups++
		} else {
			stats.Skipped++
		}
		stats.Rows++
		stats.Classes[class]++

		p.log.Debug("row",
			zap.Int("row", stats.Rows),
			zap.Int("fields", len(fields)),
			zap.String("class", class),
		)
		if stats.Rows%progressEvery == 0 {
			p.log.Info("progress", zap.Int("rows", stats.Rows), zap.Int("lookups", stats.Lookups))
		}

		if err := writeLine(w, csvline.Join(append(fields, class))); err != nil {
			return err
		}
		// Flush per row so partial output survives a killed run.
		if err := w.Flush(); err != nil {
			return exitError(ExitWrite, eris.Wrap(err, "enrich: flush output"))
		}

		if err := p.sleep(ctx, p.opts.Delay); err != nil {
			return eris.Wrap(err, "enrich: cancelled")
		}
	}
}

// logColumns reports the chosen coordinate columns, at warn level when a
// name set matched more than one column.
func (p *Pipeline) logColumns(header []string, cols Columns) {
	latMatches := MatchingColumns(header, p.opts.LatitudeColumns)
	lonMatches := MatchingColumns(header, p.opts.LongitudeColumns)
	fields := []zap.Field{
		zap.String("latitude", header[cols.Lat]),
		zap.Int("latitude_index", cols.Lat),
		zap.String("longitude", header[cols.Lon]),
		zap.Int("longitude_index", cols.Lon),
	}
	if len(latMatches) > 1 || len(lonMatches) > 1 {
		p.log.Warn("several coordinate columns matched, using the last of each",
			append(fields, zap.Ints("latitude_matches", latMatches), zap.Ints("longitude_matches", lonMatches))...)
		return
	}
	p.log.Debug("coordinate columns", fields...)
}

// coordinate returns the trimmed latitude and longitude text of a row.
func coordinate(fields []string, cols Columns) (lat, lon string, ok bool) {
	if !cols.fits(fields) {
		return "", "", false
	}
	lat = strings.TrimSpace(fields[cols.Lat])
	lon = strings.TrimSpace(fields[cols.Lon])
	if lat == "" || lon == "" {
		return "", "", false
	}
	return lat, lon, true
}

func writeLine(w *bufio.Writer, line string) error {
	if _, err := w.WriteString(line); err != nil {
		return exitError(ExitWrite, eris.Wrap(err, "enrich: write output"))
	}
	if err := w.WriteByte('\n'); err != nil {
		return exitError(ExitWrite, eris.Wrap(err, "enrich: write output"))
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// lineReader yields physical lines without their terminator. A trailing
// carriage return is dropped so CRLF files behave like LF files.
type lineReader struct {
	r *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64*1024)}
}

func (l *lineReader) next() (string, bool, error) {
	line, err := l.r.ReadString('\n')
	if err == io.EOF {
		if line == "" {
			return "", false, nil
		}
		err = nil
	}
	if err != nil {
		return "", false, err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, true, nil
}
