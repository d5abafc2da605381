package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/inspection-cli/internal/store"
	"github.com/sells-group/inspection-cli/pkg/geocode"
)

const phoBacAddress = "1314 S JACKSON ST Seattle, WA 98144"

func loadFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "internal", "inspection", "testdata", "results.html"))
	require.NoError(t, err)
	return data
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), store.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

type stubGeocoder map[string]*geocode.Result

func (s stubGeocoder) Geocode(_ context.Context, address string) (*geocode.Result, error) {
	if res, ok := s[address]; ok {
		return res, nil
	}
	return &geocode.Result{}, nil
}
