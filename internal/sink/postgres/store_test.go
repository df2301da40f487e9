package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/domainscan/internal/scanner"
)

func TestConsumeInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewWithPool(mock, "", "0190f1d2-0000-7000-8000-000000000001")
	require.NoError(t, err)
	require.Equal(t, DefaultTable, sink.Table())

	at := time.Unix(1700000000, 0).UTC()
	result := scanner.ScanResult{
		N:           102,
		Domain:      "102.xyz",
		URL:         "https://registrar.test/?q=102.xyz",
		Hit:         true,
		Saved:       true,
		StatusCode:  200,
		Attempts:    2,
		Price:       "$0.98",
		ContentHash: "abc123",
		CheckedAt:   at,
	}

	mock.ExpectExec("INSERT INTO scan_results").
		WithArgs(
			"0190f1d2-0000-7000-8000-000000000001",
			102,
			"102.xyz",
			"https://registrar.test/?q=102.xyz",
			"hit",
			200,
			2,
			"$0.98",
			"",
			"abc123",
			at,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, sink.Consume(context.Background(), result))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeWrapsExecError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewWithPool(mock, "hits", "run")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO hits").WillReturnError(errors.New("db down"))
	err = sink.Consume(context.Background(), scanner.ScanResult{N: 1, Err: errors.New("HTTP 500")})
	require.ErrorContains(t, err, "db down")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewWithPool(mock, "scan_results", "run")
	require.NoError(t, err)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS scan_results").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	require.NoError(t, sink.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil, "", "run")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewWithPool(mock, "bad;table", "run")
	require.ErrorContains(t, err, "invalid table name")
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{}, "run")
	require.Error(t, err)
}
