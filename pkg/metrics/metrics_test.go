package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/sidkik/pishow/pkg/errors"
)

func TestRecordReconcile(t *testing.T) {
	changedBefore := testutil.ToFloat64(reconcilesTotal.WithLabelValues("changed"))
	addedBefore := testutil.ToFloat64(filesAddedTotal)
	removedBefore := testutil.ToFloat64(filesRemovedTotal)
	errorBefore := testutil.ToFloat64(reconcilesTotal.WithLabelValues("error"))

	RecordReconcile(2, 1, nil)
	RecordReconcile(0, 0, errors.New("list failed"))

	assert.Equal(t, changedBefore+1, testutil.ToFloat64(reconcilesTotal.WithLabelValues("changed")))
	assert.Equal(t, addedBefore+2, testutil.ToFloat64(filesAddedTotal))
	assert.Equal(t, removedBefore+1, testutil.ToFloat64(filesRemovedTotal))
	assert.Equal(t, errorBefore+1, testutil.ToFloat64(reconcilesTotal.WithLabelValues("error")))
}

func TestRecordRemoteOperation(t *testing.T) {
	failed := remoteOperationsTotal.WithLabelValues("s3", "list", "error")
	before := testutil.ToFloat64(failed)

	RecordRemoteOperation("s3", "list", time.Second, errors.New("timeout"))
	assert.Equal(t, before+1, testutil.ToFloat64(failed))
}
