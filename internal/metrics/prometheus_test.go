package metrics

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"favgrab/internal/database"
	"favgrab/internal/favicon"
)

func TestCollector_RecordLookup(t *testing.T) {
	c := NewCollector(nil)

	okBefore := testutil.ToFloat64(LookupTotal.WithLabelValues("ok"))
	invalidBefore := testutil.ToFloat64(LookupTotal.WithLabelValues("invalid_url"))

	c.RecordLookup(nil)
	c.RecordLookup(fmt.Errorf("%w: bad host", favicon.ErrInvalidURL))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(LookupTotal.WithLabelValues("ok")))
	assert.Equal(t, invalidBefore+1, testutil.ToFloat64(LookupTotal.WithLabelValues("invalid_url")))
}

func TestCollector_RecordExport(t *testing.T) {
	c := NewCollector(nil)
	before := testutil.ToFloat64(ExportTotal.WithLabelValues("64", "export_failed"))

	c.RecordExport(64, favicon.ErrExportFailure, 20*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(ExportTotal.WithLabelValues("64", "export_failed")))
}

func TestCollector_UpdateStoreMetrics(t *testing.T) {
	store, err := database.NewBoltStore(filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Put(ctx, &database.PendingExport{ExpiresAt: time.Now().Add(time.Hour)}))
	}

	c := NewCollector(store)
	require.NoError(t, c.UpdateStoreMetrics(ctx))
	assert.Equal(t, float64(3), testutil.ToFloat64(PendingExports))
}

func TestCollector_RecordExport_UnsupportedSizesShareLabel(t *testing.T) {
	c := NewCollector(nil)
	c.RecordExport(32, nil, time.Millisecond)
	c.RecordExport(1, favicon.ErrExportFailure, 0)

	seriesBefore := testutil.CollectAndCount(ExportTotal)
	invalidBefore := testutil.ToFloat64(ExportTotal.WithLabelValues("invalid", "export_failed"))

	for size := 100001; size <= 100050; size++ {
		c.RecordExport(size, favicon.ErrExportFailure, 0)
	}

	assert.Equal(t, seriesBefore, testutil.CollectAndCount(ExportTotal))
	assert.Equal(t, invalidBefore+50, testutil.ToFloat64(ExportTotal.WithLabelValues("invalid", "export_failed")))
}
