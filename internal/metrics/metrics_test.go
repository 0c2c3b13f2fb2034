package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordStage(t *testing.T) {
	okBefore := testutil.ToFloat64(StageRuns.WithLabelValues(StageSync, ResultSuccess))
	errBefore := testutil.ToFloat64(StageRuns.WithLabelValues(StageSync, ResultError))

	RecordStage(StageSync, 2*time.Second, nil)
	RecordStage(StageSync, time.Second, errors.New("shop unreachable"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(StageRuns.WithLabelValues(StageSync, ResultSuccess)))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(StageRuns.WithLabelValues(StageSync, ResultError)))
}

func TestRecordSync(t *testing.T) {
	before := testutil.ToFloat64(ItemsSynced.WithLabelValues("inserted"))
	RecordSync(3, 5, 1)
	assert.Equal(t, before+3, testutil.ToFloat64(ItemsSynced.WithLabelValues("inserted")))
}

func TestRecordEnrich(t *testing.T) {
	limited := testutil.ToFloat64(ModelRateLimited)
	parse := testutil.ToFloat64(ModelParseFailures)
	completed := testutil.ToFloat64(ItemsEnriched.WithLabelValues("completed"))

	RecordEnrich(4, 1, 1, 2, 1)

	assert.Equal(t, completed+4, testutil.ToFloat64(ItemsEnriched.WithLabelValues("completed")))
	assert.Equal(t, limited+2, testutil.ToFloat64(ModelRateLimited))
	assert.Equal(t, parse+1, testutil.ToFloat64(ModelParseFailures))
}

func TestRecordCuration(t *testing.T) {
	degraded := testutil.ToFloat64(DegradedRuns)
	picks := testutil.ToFloat64(PicksSelected.WithLabelValues("rules"))
	zh := testutil.ToFloat64(ArtifactsPublished.WithLabelValues("zh"))

	RecordCuration("rules", 3, true, []string{"en", "zh"})
	RecordCuration("rules", 4, false, nil)

	assert.Equal(t, degraded+1, testutil.ToFloat64(DegradedRuns))
	assert.Equal(t, picks+7, testutil.ToFloat64(PicksSelected.WithLabelValues("rules")))
	assert.Equal(t, zh+1, testutil.ToFloat64(ArtifactsPublished.WithLabelValues("zh")))
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/items", "200"))
	RecordAPIRequest("GET", "/api/v1/items", "200", 15*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/items", "200")))
}
