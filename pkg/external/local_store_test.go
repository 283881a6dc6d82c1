package external

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vhl-acmg-classifier/internal/domain"
)

const testVCF = `##fileformat=VCFv4.2
##INFO=<ID=AC,Number=A,Type=Integer,Description="Alternate allele count">
##INFO=<ID=AN,Number=1,Type=Integer,Description="Total number of alleles">
##INFO=<ID=faf95_popmax,Number=A,Type=Float,Description="Filtering allele frequency">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
chr3	10142041	.	G	C	.	PASS	AC=3;AN=1500000;faf95_popmax=1.2e-6
chr3	10142100	.	A	G,T	.	PASS	AC=0,12;AN=1500000;faf95_popmax=.,2.5e-5
chr3	10142200	.	AC	A	.	PASS	AC=1;AN=1400000
`

func newTestLocalStore(t *testing.T) *LocalFrequencyStore {
	t.Helper()
	store, err := NewLocalFrequencyStore(filepath.Join(t.TempDir(), "freq", "gnomad.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLocalFrequencyStore_ImportAndQuery(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	n, err := store.ImportVCF(ctx, strings.NewReader(testVCF))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	tests := []struct {
		name    string
		locus   domain.Locus
		present bool
		faf     *float64
	}{
		{"present with faf", domain.Locus{Chrom: "3", Pos: 10142041, Ref: "G", Alt: "C"}, true, ptr(1.2e-6)},
		{"zero count allele is absent", domain.Locus{Chrom: "3", Pos: 10142100, Ref: "A", Alt: "G"}, false, nil},
		{"second allele of multi-allelic line", domain.Locus{Chrom: "3", Pos: 10142100, Ref: "A", Alt: "T"}, true, ptr(2.5e-5)},
		{"present without faf", domain.Locus{Chrom: "3", Pos: 10142200, Ref: "AC", Alt: "A"}, true, nil},
		{"unknown locus is absent", domain.Locus{Chrom: "3", Pos: 1, Ref: "A", Alt: "C"}, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := store.Query(ctx, tt.locus)
			require.NoError(t, err)
			assert.True(t, r.Resolved())
			assert.Equal(t, tt.present, r.Present)
			if tt.faf == nil {
				assert.Nil(t, r.FAF)
			} else {
				require.NotNil(t, r.FAF)
				assert.InDelta(t, *tt.faf, *r.FAF, 1e-12)
			}
		})
	}
}

func TestLocalFrequencyStore_ImportGzip(t *testing.T) {
	store := newTestLocalStore(t)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(testVCF))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	n, err := store.ImportVCF(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestLocalFrequencyStore_ImportRejectsMalformedLines(t *testing.T) {
	store := newTestLocalStore(t)

	_, err := store.ImportVCF(context.Background(), strings.NewReader("3\tnotanumber\t.\tA\tG\t.\tPASS\tAC=1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count, "failed import is rolled back")
}

func TestLocalFrequencyStore_Put(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testLocus, 2, 100000, ptr(5e-6)))
	require.NoError(t, store.Put(ctx, testLocus, 4, 100000, nil))

	r, err := store.Query(ctx, testLocus)
	require.NoError(t, err)
	assert.True(t, r.Present)
	assert.Nil(t, r.FAF, "upsert replaces the faf")
}

func TestLocalFrequencyStore_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS allele_frequency").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT ac, faf95_popmax FROM allele_frequency").
		WithArgs(testLocus.ID()).
		WillReturnError(errors.New("disk I/O error"))

	store, err := NewLocalFrequencyStoreWithDB(db)
	require.NoError(t, err)

	_, err = store.Query(context.Background(), testLocus)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocalFrequencyStore_SchemaError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("read-only database"))
	_, err = NewLocalFrequencyStoreWithDB(db)
	assert.Error(t, err)
}

func TestParseVCFLine(t *testing.T) {
	records, err := parseVCFLine("3\t100\trs1\tA\tG,*\t.\tPASS\tAC=5,1;AN=10;FAF95_POPMAX=0.01,0.02")
	require.NoError(t, err)
	require.Len(t, records, 1, "spanning deletion allele skipped")
	assert.Equal(t, 5, records[0].ac)
	assert.Equal(t, 10, records[0].an)
	assert.InDelta(t, 0.01, *records[0].faf, 1e-12)

	_, err = parseVCFLine("3\t100\tA")
	assert.Error(t, err)
}
