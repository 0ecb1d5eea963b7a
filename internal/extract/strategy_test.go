package extract

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltrus/Crypton/internal/news"
)

func TestGuardContent(t *testing.T) {
	require.NoError(t, guardContent(MethodDirect, "this sentence is comfortably past one hundred characters when padded with enough words to make the point stick", 100))

	err := guardContent(MethodDirect, "too short", 100)
	var ee *news.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, news.KindStructural, ee.Kind)
	assert.ErrorIs(t, err, errTooShort)
}

func TestClassifyStatus(t *testing.T) {
	assert.NoError(t, classifyStatus(MethodDirect, http.StatusOK))

	var ee *news.ExtractionError

	require.ErrorAs(t, classifyStatus(MethodDirect, http.StatusTooManyRequests), &ee)
	assert.Equal(t, news.KindTransient, ee.Kind)

	require.ErrorAs(t, classifyStatus(MethodDirect, http.StatusBadGateway), &ee)
	assert.Equal(t, news.KindTransient, ee.Kind)

	require.ErrorAs(t, classifyStatus(MethodDirect, http.StatusNotFound), &ee)
	assert.Equal(t, news.KindStructural, ee.Kind)

	require.ErrorAs(t, classifyStatus(MethodDirect, http.StatusForbidden), &ee)
	assert.Equal(t, news.KindStructural, ee.Kind)
}

func TestClassifyNetErr(t *testing.T) {
	var ee *news.ExtractionError
	require.ErrorAs(t, classifyNetErr(MethodReadability, errors.New("connection refused")), &ee)
	assert.Equal(t, news.KindTransient, ee.Kind)
}
