package jito

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rrb3942/web2rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcCall struct {
	Jsonrpc string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int64             `json:"id"`
}

type engine struct {
	t       *testing.T
	results map[string]string
	calls   []rpcCall
	paths   []string
	mu      sync.Mutex
}

func (e *engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	var call rpcCall
	if !assert.NoError(e.t, json.Unmarshal(body, &call)) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	assert.Equal(e.t, "2.0", call.Jsonrpc)
	assert.Equal(e.t, http.MethodPost, r.Method)
	assert.Equal(e.t, "token", r.Header.Get(HeaderAuth))

	e.mu.Lock()
	e.calls = append(e.calls, call)
	e.paths = append(e.paths, r.URL.RequestURI())
	e.mu.Unlock()

	if call.Method == "sendTransaction" && r.URL.Query().Get("bundleOnly") == "true" {
		w.Header().Set(HeaderBundleID, "bundle-1")
	}

	_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,` + e.results[call.Method] + `}`))
}

func (e *engine) last() (rpcCall, string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.calls[len(e.calls)-1], e.paths[len(e.paths)-1]
}

func newTestClient(t *testing.T, results map[string]string) (*Client, *engine) {
	t.Helper()

	e := &engine{t: t, results: results}

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	h, err := web2rpc.NewHTTPTransport(web2rpc.HTTPTransportConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	c, err := NewClient(web2rpc.NewPipeline(h), Config{Endpoint: server.URL + "/", Auth: "token"})
	require.NoError(t, err)

	return c, e
}

const statusesResult = `"result":{
  "context":{"slot":242806119},
  "value":[
    {
      "bundle_id":"892b79ed49138bfb3aa5441f0df6e06ef34f9ee8f3976c15b323605bae0cf51d",
      "transactions":["3bC2M9fiACSjkTXZDgeNAuQ4ScTsdKGwR42ytFdhUvikqTmBheUxfsR1fDVsM5ADCMMspuwGkdm1uKbU246x5aE3"],
      "slot":242804011,
      "confirmation_status":"Finalized",
      "err":{"Ok":null},
      "tip":1000,
      "note":"landed",
      "meta":{"a":[1,2]}
    },
    null
  ]
}`

func TestTipAccounts(t *testing.T) {
	t.Parallel()

	c, e := newTestClient(t, map[string]string{
		"getTipAccounts": `"result":["96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5","HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe"]`,
	})

	accounts, err := c.TipAccounts(t.Context()).Get()
	require.NoError(t, err)
	assert.Equal(t, []string{"96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5", "HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe"}, accounts)

	call, path := e.last()
	assert.Equal(t, "getTipAccounts", call.Method)
	assert.Equal(t, bundlesPath, path)
	assert.Empty(t, call.Params)
	assert.Positive(t, call.ID)
}

func TestBundleStatuses(t *testing.T) {
	t.Parallel()

	c, e := newTestClient(t, map[string]string{"getBundleStatuses": statusesResult})

	var (
		mu      sync.Mutex
		unknown []string
	)

	c.pipeline.Callbacks.OnUnknownField = func(field []byte, _ web2rpc.Kind, _ int) {
		mu.Lock()
		unknown = append(unknown, string(field))
		mu.Unlock()
	}

	id := "892b79ed49138bfb3aa5441f0df6e06ef34f9ee8f3976c15b323605bae0cf51d"

	got, err := c.BundleStatuses(t.Context(), []string{id, "missing"}).Get()
	require.NoError(t, err)

	assert.Equal(t, uint64(242806119), got.Context.Slot)
	require.Len(t, got.ByID, 1)

	st := got.ByID[id]
	assert.Equal(t, id, st.BundleID)
	assert.Equal(t, uint64(242804011), st.Slot)
	assert.Equal(t, Finalized, st.ConfirmationStatus)
	assert.JSONEq(t, `{"Ok":null}`, string(st.Err))
	assert.Len(t, st.Transactions, 1)
	assert.Equal(t, map[string]string{"tip": "1000", "note": "landed", "meta": `{"a":[1,2]}`}, st.Unhandled)

	mu.Lock()
	assert.ElementsMatch(t, []string{"tip", "note", "meta"}, unknown)
	mu.Unlock()

	call, _ := e.last()
	require.Len(t, call.Params, 1)
	assert.JSONEq(t, `["`+id+`","missing"]`, string(call.Params[0]))
}

func TestBundleStatus(t *testing.T) {
	t.Parallel()

	//nolint:govet //Do not reorder struct
	tests := []struct {
		name   string
		result string
		want   *BundleStatus
	}{
		{"Found", `"result":{"context":{"slot":1},"value":[{"bundle_id":"b1","slot":5,"confirmationStatus":"confirmed","err":null}]}`,
			&BundleStatus{BundleID: "b1", Slot: 5, ConfirmationStatus: Confirmed, Transactions: []string{}}},
		{"Null", `"result":{"context":{"slot":1},"value":[null]}`, nil},
		{"Empty", `"result":{"value":[],"context":{"slot":1}}`, nil},
		{"BlankCommitment", `"result":{"context":{"slot":1},"value":[{"bundle_id":"b2","confirmation_status":""}]}`,
			&BundleStatus{BundleID: "b2", Transactions: []string{}}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			c, _ := newTestClient(t, map[string]string{"getBundleStatuses": test.result})

			got, err := c.BundleStatus(t.Context(), "b1").Get()
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestBundleStatusBadCommitment(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, map[string]string{
		"getBundleStatuses": `"result":{"context":{"slot":1},"value":[{"confirmation_status":"landed"}]}`,
	})

	_, err := c.BundleStatus(t.Context(), "b1").Get()
	assert.ErrorIs(t, err, web2rpc.ErrMalformedResponse)
	assert.ErrorIs(t, err, web2rpc.ErrDecode)
}

func TestSendBundle(t *testing.T) {
	t.Parallel()

	c, e := newTestClient(t, map[string]string{"sendBundle": `"result":"2id3YC2jK9G5Wo2phDx4gJVAew8DcY5NAojnVuao8rkxwPYPe8cSwE5GzhEgJA2y8fVjDEo6iR6ykBvDxrTQrtpb"`})

	id, err := c.SendBundle(t.Context(), [][]byte{{1, 2, 3}, {4}}).Get()
	require.NoError(t, err)
	assert.Equal(t, "2id3YC2jK9G5Wo2phDx4gJVAew8DcY5NAojnVuao8rkxwPYPe8cSwE5GzhEgJA2y8fVjDEo6iR6ykBvDxrTQrtpb", id)

	call, path := e.last()
	assert.Equal(t, bundlesPath, path)
	require.Len(t, call.Params, 2)
	assert.JSONEq(t, `["AQID","BA=="]`, string(call.Params[0]))
	assert.JSONEq(t, `{"encoding":"base64"}`, string(call.Params[1]))
}

func TestSendBundleNonString(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, map[string]string{"sendBundle": `"result":{"unexpected":true}`})

	id, err := c.SendBundle(t.Context(), [][]byte{{1}}).Get()
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestSendTransaction(t *testing.T) {
	t.Parallel()

	c, e := newTestClient(t, map[string]string{"sendTransaction": `"result":"sig1"`})

	retries := 0

	got, err := c.SendTransaction(t.Context(), []byte{9, 9}, SendOptions{
		SkipPreflight:       true,
		PreflightCommitment: Confirmed,
		MaxRetries:          &retries,
		BundleOnly:          true,
	}).Get()
	require.NoError(t, err)
	assert.Equal(t, SendResult{Signature: "sig1", BundleID: "bundle-1"}, got)

	call, path := e.last()
	assert.Equal(t, transactionsPath+"?bundleOnly=true", path)
	require.Len(t, call.Params, 2)
	assert.JSONEq(t, `"CQk="`, string(call.Params[0]))
	assert.JSONEq(t, `{"encoding":"base64","skipPreflight":true,"preflightCommitment":"confirmed","maxRetries":0}`, string(call.Params[1]))

	got, err = c.SendTransaction(t.Context(), []byte{9, 9}, SendOptions{}).Get()
	require.NoError(t, err)
	assert.Equal(t, SendResult{Signature: "sig1"}, got)

	_, path = e.last()
	assert.Equal(t, transactionsPath, path)
}

func TestRPCError(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, map[string]string{
		"sendBundle": `"error":{"code":-32602,"message":"bundle must contain at least one transaction"}`,
	})

	_, err := c.SendBundle(t.Context(), nil).Get()

	var rf *web2rpc.RemoteFailure

	require.ErrorAs(t, err, &rf)
	assert.True(t, rf.RPC)
	assert.Equal(t, int64(web2rpc.CodeInvalidParams), rf.Code)
	assert.False(t, web2rpc.Retryable(err))
}

func TestDecodeBundleStatusList(t *testing.T) {
	t.Parallel()

	c := web2rpc.NewCursor([]byte(`[1, "x", {"bundle_id":"a","transactions":null}, [], {"bundle_id":"b"}]`))

	list, err := DecodeBundleStatusList(c)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].BundleID)
	assert.Equal(t, "b", list[1].BundleID)
	assert.NotNil(t, list[0].Transactions)
	assert.Nil(t, list[0].Unhandled)
}

func TestDecodeBundleStatusNestedErrors(t *testing.T) {
	t.Parallel()

	for _, body := range []string{
		`{"transactions":["a" "b"],"slot":1}`,
		`{"transactions":[1]}`,
		`{"bundle_id":"a" {"slot":1}}`,
	} {
		st, err := DecodeBundleStatus(web2rpc.NewCursor([]byte(body)))
		require.ErrorIs(t, err, web2rpc.ErrDecode, body)
		assert.Equal(t, BundleStatus{}, st, body)
	}
}

func TestUnhandledSummary(t *testing.T) {
	t.Parallel()

	long := `[` + strings.Repeat(`1,`, 60) + `1]`

	st, err := DecodeBundleStatus(web2rpc.NewCursor([]byte(`{"big":` + long + `,"flag":false,"gone":null}`)))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(st.Unhandled["big"], "..."))
	assert.True(t, bytes.HasPrefix([]byte(st.Unhandled["big"]), []byte(`[1,1,`)))
	assert.Equal(t, "false", st.Unhandled["flag"])
	assert.Equal(t, "null", st.Unhandled["gone"])
}

func TestNewClientEndpoint(t *testing.T) {
	t.Parallel()

	c, err := NewClient(web2rpc.NewPipeline(nil), Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, c.base)

	_, err = NewClient(web2rpc.NewPipeline(nil), Config{Endpoint: "::"})
	assert.ErrorIs(t, err, ErrEndpoint)
}
