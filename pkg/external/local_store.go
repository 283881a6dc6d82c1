package external

import (
	"bufio"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/vhl-acmg-classifier/internal/domain"
)

// fafInfoKeys are the INFO keys gnomAD releases have used for the FAF95 popmax.
var fafInfoKeys = []string{"faf95_popmax", "FAF95_POPMAX", "FAF95_popmax", "fafmax_faf95_max", "faf95", "FAF95"}

// LocalFrequencyStore answers frequency queries from a local SQLite table keyed by
// chrom-pos-ref-alt.
type LocalFrequencyStore struct {
	db   *sql.DB
	path string
}

// NewLocalFrequencyStore opens (creating if needed) the SQLite frequency table at path.
// ":memory:" gives a private in-memory table.
func NewLocalFrequencyStore(path string) (*LocalFrequencyStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frequency database: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store, err := NewLocalFrequencyStoreWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	store.path = path
	return store, nil
}

// NewLocalFrequencyStoreWithDB wraps an open database and ensures the schema exists.
func NewLocalFrequencyStoreWithDB(db *sql.DB) (*LocalFrequencyStore, error) {
	const schema = `
	CREATE TABLE IF NOT EXISTS allele_frequency (
		locus_id TEXT PRIMARY KEY,
		ac INTEGER NOT NULL DEFAULT 0,
		an INTEGER NOT NULL DEFAULT 0,
		faf95_popmax REAL
	)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create frequency schema: %w", err)
	}
	return &LocalFrequencyStore{db: db}, nil
}

// Name implements domain.LocusSource.
func (s *LocalFrequencyStore) Name() string {
	return "local gnomAD table"
}

// Query implements domain.LocusSource.
func (s *LocalFrequencyStore) Query(ctx context.Context, locus domain.Locus) (*domain.FrequencyResult, error) {
	var ac int
	var faf sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		"SELECT ac, faf95_popmax FROM allele_frequency WHERE locus_id = ?", locus.ID(),
	).Scan(&ac, &faf)

	if errors.Is(err, sql.ErrNoRows) {
		r := domain.Absent(s.Name(), &locus)
		return &r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query local frequency table: %w", err)
	}

	if ac <= 0 {
		r := domain.Absent(s.Name(), &locus)
		return &r, nil
	}
	var fafPtr *float64
	if faf.Valid {
		v := faf.Float64
		fafPtr = &v
	}
	r := domain.Present(s.Name(), &locus, fafPtr)
	return &r, nil
}

// Put inserts or replaces one record.
func (s *LocalFrequencyStore) Put(ctx context.Context, locus domain.Locus, ac, an int, faf *float64) error {
	var fafVal sql.NullFloat64
	if faf != nil {
		fafVal = sql.NullFloat64{Float64: *faf, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO allele_frequency (locus_id, ac, an, faf95_popmax) VALUES (?, ?, ?, ?)
		ON CONFLICT(locus_id) DO UPDATE SET ac = excluded.ac, an = excluded.an, faf95_popmax = excluded.faf95_popmax`,
		locus.ID(), ac, an, fafVal,
	)
	if err != nil {
		return fmt.Errorf("failed to store frequency for %s: %w", locus.ID(), err)
	}
	return nil
}

// ImportVCF loads gnomAD-style VCF records (plain or gzipped) in one transaction and
// returns the number of alleles stored. Multi-allelic lines are split per ALT, taking
// the matching element of per-allele INFO values.
func (s *LocalFrequencyStore) ImportVCF(ctx context.Context, r io.Reader) (int, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return 0, fmt.Errorf("create gzip reader: %w", err)
		}
		defer gz.Close()
		br = bufio.NewReader(gz)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO allele_frequency (locus_id, ac, an, faf95_popmax) VALUES (?, ?, ?, ?)
		ON CONFLICT(locus_id) DO UPDATE SET ac = excluded.ac, an = excluded.an, faf95_popmax = excluded.faf95_popmax`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare import: %w", err)
	}
	defer stmt.Close()

	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	count, lineNumber := 0, 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		records, err := parseVCFLine(line)
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		for _, rec := range records {
			var faf sql.NullFloat64
			if rec.faf != nil {
				faf = sql.NullFloat64{Float64: *rec.faf, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, rec.locus.ID(), rec.ac, rec.an, faf); err != nil {
				return 0, fmt.Errorf("line %d: failed to store %s: %w", lineNumber, rec.locus.ID(), err)
			}
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read vcf: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return count, nil
}

// Count returns the number of stored alleles.
func (s *LocalFrequencyStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM allele_frequency").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count frequency records: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *LocalFrequencyStore) Close() error {
	return s.db.Close()
}

type vcfAllele struct {
	locus domain.Locus
	ac    int
	an    int
	faf   *float64
}

// parseVCFLine splits one data line into per-ALT records.
func parseVCFLine(line string) ([]vcfAllele, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, fmt.Errorf("expected at least 8 columns, got %d", len(fields))
	}

	pos, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("invalid position %q", fields[1])
	}
	chrom := strings.TrimPrefix(fields[0], "chr")
	ref := strings.ToUpper(fields[3])
	alts := strings.Split(fields[4], ",")
	info := parseInfo(fields[7])

	an, _ := strconv.Atoi(info["AN"])
	acs := strings.Split(info["AC"], ",")
	var fafs []string
	for _, key := range fafInfoKeys {
		if v, ok := info[key]; ok {
			fafs = strings.Split(v, ",")
			break
		}
	}

	records := make([]vcfAllele, 0, len(alts))
	for i, alt := range alts {
		if alt == "." || alt == "*" {
			continue
		}
		rec := vcfAllele{
			locus: domain.Locus{Chrom: chrom, Pos: pos, Ref: ref, Alt: strings.ToUpper(alt)},
			an:    an,
		}
		if v := perAllele(acs, i); v != "" {
			rec.ac, _ = strconv.Atoi(v)
		}
		if v := perAllele(fafs, i); v != "" && v != "." {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				rec.faf = &f
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// perAllele returns the i-th value, or the only value for a scalar field.
func perAllele(values []string, i int) string {
	switch {
	case len(values) == 0:
		return ""
	case i < len(values):
		return values[i]
	case len(values) == 1:
		return values[0]
	default:
		return ""
	}
}

// parseInfo parses the INFO column. Flags map to "".
func parseInfo(s string) map[string]string {
	info := make(map[string]string)
	if s == "." {
		return info
	}
	for _, part := range strings.Split(s, ";") {
		key, value, _ := strings.Cut(part, "=")
		info[key] = value
	}
	return info
}

var _ domain.LocusSource = (*LocalFrequencyStore)(nil)
