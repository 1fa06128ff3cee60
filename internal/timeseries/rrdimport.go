package timeseries

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"acarshub/internal/logger"
)

// ImportRegistry is the dedup registry a legacy RRD import consults and
// updates; backed by the rrd_import_registry table.
type ImportRegistry interface {
	HashImported(ctx context.Context, hash string) (bool, error)
	RegisterImportedHash(ctx context.Context, hash string) error
	BulkInsertRows(ctx context.Context, resolution Resolution, rows []Point) error
}

// rrdArchives maps each archive's rrdtool CF/resolution-seconds pair to
// the timeseries_stats resolution it becomes.
var rrdArchives = []struct {
	cf          string
	stepSeconds int
	resolution  Resolution
}{
	{"AVERAGE", 60, Res1Min},
	{"AVERAGE", 300, Res5Min},
	{"AVERAGE", 3600, Res1Hr},
	{"AVERAGE", 86400, Res1Day},
}

// ImportLegacyRRD imports path once: if its sha-256 is already registered,
// it is a no-op. Otherwise it shells out to rrdtool for each of the four
// archive resolutions, coerces NaN to 0, bulk-inserts the rows, and
// renames the source file to ".back" on success or ".corrupt" if it could
// not be read at all. A file already renamed to ".back" is not revisited:
// the caller only passes ".rrd" paths, so the hash of a ".back" file is
// never registered here.
func ImportLegacyRRD(ctx context.Context, path string, reg ImportRegistry) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		renameCorrupt(path)
		return fmt.Errorf("timeseries: read rrd file %s: %w", path, err)
	}
	if len(data) == 0 {
		renameCorrupt(path)
		return fmt.Errorf("timeseries: rrd file %s is empty", path)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	already, err := reg.HashImported(ctx, hash)
	if err != nil {
		return fmt.Errorf("timeseries: check import registry: %w", err)
	}
	if already {
		return nil
	}

	for _, archive := range rrdArchives {
		rows, err := readRRDArchive(ctx, path, archive.cf, archive.stepSeconds)
		if err != nil {
			return fmt.Errorf("timeseries: read rrd archive %s/%ds: %w", archive.cf, archive.stepSeconds, err)
		}
		if len(rows) == 0 {
			continue
		}
		if err := reg.BulkInsertRows(ctx, archive.resolution, rows); err != nil {
			return fmt.Errorf("timeseries: bulk insert %s rows: %w", archive.resolution, err)
		}
	}

	if err := reg.RegisterImportedHash(ctx, hash); err != nil {
		return fmt.Errorf("timeseries: register import hash: %w", err)
	}

	backPath := path + ".back"
	if err := os.Rename(path, backPath); err != nil {
		logger.Warnf("timeseries: rrd import succeeded but rename to %s failed: %v", backPath, err)
	}
	logger.Infof("timeseries: imported legacy rrd %s (sha256 %s)", path, hash)
	return nil
}

func renameCorrupt(path string) {
	if err := os.Rename(path, path+".corrupt"); err != nil {
		logger.Warnf("timeseries: could not rename unreadable rrd file %s: %v", path, err)
	}
}

// readRRDArchive shells out to `rrdtool fetch` for one archive, parsing
// its "timestamp: v1 v2 ... " output into Points. The header line is
// skipped; value columns are mapped to decoders by the fixed dsOrder.
func readRRDArchive(ctx context.Context, path, cf string, stepSeconds int) ([]Point, error) {
	cmd := exec.CommandContext(ctx, "rrdtool", "fetch", path, cf, "-r", strconv.Itoa(stepSeconds))
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	rows, parseErr := parseRRDFetch(stdout)
	waitErr := cmd.Wait()
	if parseErr != nil {
		return nil, parseErr
	}
	if waitErr != nil {
		return nil, waitErr
	}
	return rows, nil
}

// dsOrder is the datasource column order every acarshub RRD file was
// created with.
var dsOrder = []string{"acars", "vdlm", "hfdl", "imsl", "irdm", "total", "error"}

func parseRRDFetch(r io.Reader) ([]Point, error) {
	scanner := bufio.NewScanner(r)
	var rows []Point
	header := true

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			header = false
			continue
		}
		if header {
			continue
		}

		colonIdx := strings.Index(line, ":")
		if colonIdx < 0 {
			continue
		}
		tsStr := strings.TrimSpace(line[:colonIdx])
		ts, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			continue
		}

		fields := strings.Fields(line[colonIdx+1:])
		values := make(map[string]int64, len(fields))
		for i, f := range fields {
			if i >= len(dsOrder) {
				break
			}
			values[dsOrder[i]] = coerceNaN(f)
		}

		rows = append(rows, Point{
			TimestampMS: ts * 1000,
			Counts: Counts{
				ACARS: values["acars"],
				VDLM:  values["vdlm"],
				HFDL:  values["hfdl"],
				IMSL:  values["imsl"],
				IRDM:  values["irdm"],
				Total: values["total"],
				Error: values["error"],
			},
		})
	}
	return rows, scanner.Err()
}

func coerceNaN(field string) int64 {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return int64(math.Round(v))
}
