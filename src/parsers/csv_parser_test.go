package parsers

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const canonicalCSV = "date,mrr,users,churn,new_users,revenue\n" +
	"2024-01-01,5000,120,3.2,15,5500\n" +
	"2024-02-01,5800,135,2.9,18,6400\n"

func TestParseWellFormedCSV(t *testing.T) {
	p := NewMetricCSVParser()
	records, err := p.Parse(strings.NewReader(canonicalCSV), 7)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, int64(7), first.UserID)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, 5000.0, first.MRR)
	assert.Equal(t, int64(120), first.Users)
	assert.Equal(t, 3.2, first.Churn)
	assert.Equal(t, int64(15), first.NewUsers)
	assert.Equal(t, 5500.0, first.Revenue)
	assert.False(t, first.UploadedAt.IsZero())

	// Input order is preserved.
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), records[1].Date)

	// One timestamp for the whole batch.
	assert.Equal(t, first.UploadedAt, records[1].UploadedAt)
}

func TestParseIsIdempotentExceptUploadedAt(t *testing.T) {
	p := NewMetricCSVParser()
	a, err := p.Parse(strings.NewReader(canonicalCSV), 1)
	require.NoError(t, err)
	b, err := p.Parse(strings.NewReader(canonicalCSV), 1)
	require.NoError(t, err)

	require.Len(t, b, len(a))
	for i := range a {
		x, y := a[i], b[i]
		x.UploadedAt, y.UploadedAt = time.Time{}, time.Time{}
		assert.Equal(t, x, y)
	}
}

func TestHeaderOrderIndependence(t *testing.T) {
	reordered := "revenue,new_users,churn,users,mrr,date\n" +
		"5500,15,3.2,120,5000,2024-01-01\n" +
		"6400,18,2.9,135,5800,2024-02-01\n"

	p := NewMetricCSVParser()
	canonical, err := p.Parse(strings.NewReader(canonicalCSV), 1)
	require.NoError(t, err)
	shuffled, err := p.Parse(strings.NewReader(reordered), 1)
	require.NoError(t, err)

	require.Len(t, shuffled, len(canonical))
	for i := range canonical {
		x, y := canonical[i], shuffled[i]
		x.UploadedAt, y.UploadedAt = time.Time{}, time.Time{}
		assert.Equal(t, x, y)
	}
}

func TestHeaderSynonymNormalization(t *testing.T) {
	for _, header := range []string{"New Users", "new_users", "NEW_USERS", "  new   users "} {
		csv := "date,mrr,users,churn," + header + ",revenue\n2024-01-01,5000,120,3.2,15,5500\n"
		records, err := NewMetricCSVParser().Parse(strings.NewReader(csv), 1)
		require.NoError(t, err, "header %q", header)
		require.Len(t, records, 1)
		assert.Equal(t, int64(15), records[0].NewUsers, "header %q", header)
	}
}

func TestMalformedHeaderNamesMissingColumns(t *testing.T) {
	csv := "date,mrr,users,churn,new_users\n2024-01-01,5000,120,3.2,15\n"
	records, err := NewMetricCSVParser().Parse(strings.NewReader(csv), 1)
	assert.Nil(t, records)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedHeader))
	assert.Contains(t, err.Error(), "revenue")
}

func TestEmptyFileIsMalformedHeader(t *testing.T) {
	_, err := NewMetricCSVParser().Parse(strings.NewReader(""), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedHeader))
}

func TestHeaderOnlyIsEmptyBatch(t *testing.T) {
	_, err := NewMetricCSVParser().Parse(strings.NewReader("date,mrr,users,churn,new_users,revenue\n"), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyBatch))
}

func TestAtomicityOnInvalidRow(t *testing.T) {
	// Negative users in the second data row: whole batch rejected, zero
	// records, row reported as 3 (header is row 1).
	csv := "date,mrr,users,churn,new_users,revenue\n" +
		"2024-01-01,5000,120,3.2,15,5500\n" +
		"2024-01-02,5800,-5,2.9,18,6400\n"
	records, err := NewMetricCSVParser().Parse(strings.NewReader(csv), 1)
	assert.Nil(t, records)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNegativeValue))
	assert.Contains(t, err.Error(), "row 3")
}

func TestChurnAboveBoundRejected(t *testing.T) {
	csv := "date,mrr,users,churn,new_users,revenue\n2024-01-01,5000,120,150,15,5500\n"
	records, err := NewMetricCSVParser().Parse(strings.NewReader(csv), 1)
	assert.Nil(t, records)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChurnBound))
	assert.Contains(t, err.Error(), "row 2")
}

func TestBoundaryValues(t *testing.T) {
	tests := []struct {
		name    string
		row     string
		wantErr error
	}{
		{"churn exactly 100 accepted", "2024-01-01,5000,120,100,15,5500", nil},
		{"churn just above 100 rejected", "2024-01-01,5000,120,100.01,15,5500", ErrChurnBound},
		{"zero mrr accepted", "2024-01-01,0,120,3.2,15,5500", nil},
		{"negative mrr rejected", "2024-01-01,-0.01,120,3.2,15,5500", ErrNegativeValue},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			csv := "date,mrr,users,churn,new_users,revenue\n" + tc.row + "\n"
			records, err := NewMetricCSVParser().Parse(strings.NewReader(csv), 1)
			if tc.wantErr == nil {
				require.NoError(t, err)
				assert.Len(t, records, 1)
			} else {
				assert.Nil(t, records)
				assert.True(t, errors.Is(err, tc.wantErr))
			}
		})
	}
}

func TestInvalidDateReported(t *testing.T) {
	csv := "date,mrr,users,churn,new_users,revenue\nnot-a-date,5000,120,3.2,15,5500\n"
	_, err := NewMetricCSVParser().Parse(strings.NewReader(csv), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDate))
	assert.Contains(t, err.Error(), "row 2")
}

func TestAcceptedDateLayouts(t *testing.T) {
	for _, date := range []string{"2024-03-05", "2024-03-05T10:30:00Z", "2024/03/05", "03/05/2024"} {
		csv := "date,mrr,users,churn,new_users,revenue\n" + date + ",5000,120,3.2,15,5500\n"
		records, err := NewMetricCSVParser().Parse(strings.NewReader(csv), 1)
		require.NoError(t, err, "date %q", date)
		assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), records[0].Date, "date %q", date)
	}
}

func TestNonNumericValueIsMissingField(t *testing.T) {
	csv := "date,mrr,users,churn,new_users,revenue\n2024-01-01,lots,120,3.2,15,5500\n"
	_, err := NewMetricCSVParser().Parse(strings.NewReader(csv), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingField))
	assert.Contains(t, err.Error(), "mrr")
	assert.Contains(t, err.Error(), "row 2")
}

func TestShortRowIsMissingField(t *testing.T) {
	csv := "date,mrr,users,churn,new_users,revenue\n2024-01-01,5000,120,3.2,15\n"
	_, err := NewMetricCSVParser().Parse(strings.NewReader(csv), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingField))
	assert.Contains(t, err.Error(), "revenue")
}

func TestEmptyLinesSkipped(t *testing.T) {
	csv := "date,mrr,users,churn,new_users,revenue\n\n2024-01-01,5000,120,3.2,15,5500\n   \n2024-02-01,5800,135,2.9,18,6400\n\n"
	records, err := NewMetricCSVParser().Parse(strings.NewReader(csv), 1)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestQuotedFieldsWithEmbeddedCommas(t *testing.T) {
	csv := "date,mrr,users,churn,new_users,revenue\n\"2024-01-01\",\"5000\",120,\"3.2\",15,5500\n"
	records, err := NewMetricCSVParser().Parse(strings.NewReader(csv), 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 5000.0, records[0].MRR)
}

func TestFractionalCountsTruncate(t *testing.T) {
	// User counts truncate toward zero rather than rejecting.
	csv := "date,mrr,users,churn,new_users,revenue\n2024-01-01,5000,120.9,3.2,15.7,5500\n"
	records, err := NewMetricCSVParser().Parse(strings.NewReader(csv), 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(120), records[0].Users)
	assert.Equal(t, int64(15), records[0].NewUsers)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "new_users", normalizeHeader("  New   Users "))
	assert.Equal(t, "mrr", normalizeHeader("MRR"))
	assert.Equal(t, "date", normalizeHeader("\ufeffdate"))
}
