package enrich

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultOutputSuffix is inserted before ".csv" when no output path is given.
const DefaultOutputSuffix = ".with_roads"

// DeriveOutputPath builds the output path for input: "trips.csv" becomes
// "trips.with_roads.csv" and "trips" becomes "trips.with_roads.csv".
func DeriveOutputPath(input, suffix string) string {
	if suffix == "" {
		suffix = DefaultOutputSuffix
	}
	ext := filepath.Ext(input)
	if strings.EqualFold(ext, ".csv") {
		return strings.TrimSuffix(input, ext) + suffix + ext
	}
	return input + suffix + ".csv"
}

// RunFile enriches inputPath into outputPath. Both files are closed on every
// return path. A leading byte order mark on the input is dropped. When
// DeleteInput is set the input is removed after a successful run.
func (p *Pipeline) RunFile(ctx context.Context, inputPath, outputPath string) (Stats, error) {
	if samePath(inputPath, outputPath) {
		return Stats{}, exitError(ExitOpenOutput, eris.Errorf("enrich: output %s would overwrite input", outputPath))
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return Stats{}, exitError(ExitOpenInput, eris.Wrapf(err, "enrich: open input %s", inputPath))
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(outputPath)
	if err != nil {
		return Stats{}, exitError(ExitOpenOutput, eris.Wrapf(err, "enrich: open output %s", outputPath))
	}

	src := transform.NewReader(in, unicode.BOMOverride(transform.Nop))
	stats, runErr := p.Run(ctx, src, out)
	closeErr := out.Close()
	if runErr != nil {
		return stats, runErr
	}
	if closeErr != nil {
		return stats, exitError(ExitWrite, eris.Wrapf(closeErr, "enrich: close output %s", outputPath))
	}

	if p.opts.DeleteInput {
		_ = in.Close()
		if err := os.Remove(inputPath); err != nil {
			return stats, exitError(ExitDeleteInput, eris.Wrapf(err, "enrich: delete input %s", inputPath))
		}
		p.log.Info("deleted input", zap.String("path", inputPath))
	}
	return stats, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
