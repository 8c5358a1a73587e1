/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"io/ioutil"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider(t *testing.T) {
	p := NewProvider()
	cm := p.NewClientMetrics()
	sm := p.NewServerMetrics()

	cm.QueriesReceived.With("contract", "secrets", "fcn", "get").Add(1)
	cm.ExecutionsFailed.With("contract", "secrets", "fcn", "add", "fail", "ALREADY_EXISTS").Add(1)
	cm.QueryDuration.With("contract", "secrets", "fcn", "get").Observe(0.25)
	sm.RequestsReceived.With("route", "/livez", "code", "200").Add(1)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := ioutil.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `docsecrets_ledger_queries_received{contract="secrets",fcn="get"} 1`)
	assert.Contains(t, string(body), `docsecrets_ledger_executions_failed{contract="secrets",fail="ALREADY_EXISTS",fcn="add"} 1`)
	assert.Contains(t, string(body), `docsecrets_http_requests_received{code="200",route="/livez"} 1`)
	assert.Contains(t, string(body), "docsecrets_ledger_query_duration_count")
}

func TestDiscard(t *testing.T) {
	cm := NewDiscardClientMetrics()
	cm.QueriesReceived.With("contract", "keys", "fcn", "get").Add(1)
	cm.QueryDuration.Observe(1)

	sm := NewDiscardServerMetrics()
	sm.RequestsReceived.Add(1)
}
