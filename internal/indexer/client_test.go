package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault-position-lab/internal/domain"
)

// subgraph answers GraphQL requests with handle's data object.
func subgraph(t *testing.T, handle func(req gqlRequest) interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"data": handle(req)})
	}))
}

func TestClient_Vault(t *testing.T) {
	server := subgraph(t, func(req gqlRequest) interface{} {
		assert.Contains(t, req.Query, "vault(id: $id)")
		assert.Equal(t, "LQM2cdzDY3", req.Variables["id"])
		return map[string]interface{}{
			"vault": map[string]interface{}{
				"id":              "LQM2cdzDY3",
				"apr":             "12.5",
				"performanceFees": "250",
				"depositLimit":    "0",
				"balanceTokens":   "4000000",
				"token":           map[string]interface{}{"id": "mint1", "symbol": "", "name": "", "decimals": 6},
				"shareToken":      map[string]interface{}{"id": "share1", "decimals": "6"},
				"strategies": []interface{}{
					map[string]interface{}{"id": "strat1", "maxDebt": "10000000", "currentDebt": "4000000", "balanceTokens": "4000000"},
				},
			},
		}
	})
	defer server.Close()

	v, err := NewClient(server.URL).Vault(context.Background(), "LQM2cdzDY3")
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, "LQM2cdzDY3", v.ID)
	assert.Equal(t, domain.VaultTypeDeFi, v.Type)
	assert.Equal(t, "12.5", v.APR.String())
	assert.Equal(t, "2.5", v.PerformanceFeePercent().String())
	assert.Equal(t, int32(6), v.Token.Decimals)
	assert.Equal(t, int32(6), v.ShareToken.Decimals)
	require.Len(t, v.Strategies, 1)
	assert.Equal(t, "10000000", v.Strategies[0].MaxDebt.String())
}

func TestClient_VaultUnknown(t *testing.T) {
	server := subgraph(t, func(req gqlRequest) interface{} {
		return map[string]interface{}{"vault": nil}
	})
	defer server.Close()

	v, err := NewClient(server.URL).Vault(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestClient_PositionLowercasesAccount(t *testing.T) {
	server := subgraph(t, func(req gqlRequest) interface{} {
		assert.Equal(t, "abcdef", req.Variables["account"])
		return map[string]interface{}{
			"accountVaultPositions": []interface{}{
				map[string]interface{}{
					"id":              "pos1",
					"account":         "abcdef",
					"balanceShares":   "500",
					"balancePosition": "500",
					"vault":           map[string]interface{}{"id": "Ahg1opVcGX"},
					"token":           map[string]interface{}{"id": "mint1", "decimals": 6},
					"shareToken":      map[string]interface{}{"id": "share1", "decimals": 6},
				},
			},
		}
	})
	defer server.Close()

	pos, err := NewClient(server.URL).Position(context.Background(), "AbCdEf", "Ahg1opVcGX")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, "pos1", pos.ID)
	assert.Equal(t, "Ahg1opVcGX", pos.VaultID)
	assert.Equal(t, "share1", pos.ShareToken.ID)
}

func TestClient_PositionNone(t *testing.T) {
	server := subgraph(t, func(req gqlRequest) interface{} {
		return map[string]interface{}{"accountVaultPositions": []interface{}{}}
	})
	defer server.Close()

	pos, err := NewClient(server.URL).Position(context.Background(), "acc", "v")
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestClient_PositionDepositsPaginates(t *testing.T) {
	const total = 2500
	var requests atomic.Int32

	server := subgraph(t, func(req gqlRequest) interface{} {
		requests.Add(1)
		first := int(req.Variables["first"].(float64))
		skip := int(req.Variables["skip"].(float64))
		var page []interface{}
		for i := skip; i < total && i < skip+first; i++ {
			page = append(page, map[string]interface{}{
				"id":           "d" + strings.Repeat("x", i%3),
				"timestamp":    "1700000000",
				"sharesMinted": "10",
				"tokenAmount":  "10",
				"blockNumber":  "55",
				"vault":        map[string]interface{}{"id": "v1"},
			})
		}
		return map[string]interface{}{"deposits": page}
	})
	defer server.Close()

	items, err := NewClient(server.URL, WithPageSize(1000)).PositionDeposits(context.Background(), "acc", "v1")
	require.NoError(t, err)
	assert.Len(t, items, total)
	assert.Equal(t, int32(3), requests.Load())
	assert.Equal(t, domain.TransactionDeposit, items[0].Kind)
	assert.Equal(t, "v1", items[0].VaultID)
	assert.Equal(t, int64(55), items[0].BlockNumber)
	assert.Equal(t, "25000", domain.SumTokenAmounts(items).String())
}

func TestClient_StrategyReports(t *testing.T) {
	server := subgraph(t, func(req gqlRequest) interface{} {
		assert.Equal(t, "strat1", req.Variables["strategy"])
		if strings.Contains(req.Query, "strategyReports(") {
			return map[string]interface{}{"strategyReports": []interface{}{
				map[string]interface{}{"id": "r1", "timestamp": "1700000000000", "gain": "100", "loss": "0"},
				map[string]interface{}{"id": "r2", "timestamp": "1700003600000", "gain": "0", "loss": "5"},
			}}
		}
		return map[string]interface{}{"strategyHistoricalAprs": []interface{}{
			map[string]interface{}{"id": "a1", "apr": "7.25", "timestamp": "1700000000"},
		}}
	})
	defer server.Close()

	reports, aprs, err := NewClient(server.URL).StrategyReports(context.Background(), "strat1")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, int64(1700003600000), reports[1].Timestamp)
	assert.Equal(t, "5", reports[1].Loss.String())
	assert.False(t, reports[0].Synthetic)
	require.Len(t, aprs, 1)
	assert.Equal(t, "7.25", aprs[0].APR.String())
}

func TestClient_GraphQLErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":null,"errors":[{"message":"Type Query has no field vaultz"}]}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, WithRetryDelay(time.Millisecond)).Vault(context.Background(), "x")
	require.Error(t, err)

	var gqlErr *GraphQLError
	require.True(t, errors.As(err, &gqlErr))
	assert.Equal(t, "vault", gqlErr.Query)
	assert.Contains(t, gqlErr.Messages[0], "no field")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data":{"vault":null}}`))
	}))
	defer server.Close()

	v, err := NewClient(server.URL, WithRetryDelay(time.Millisecond)).Vault(context.Background(), "x")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, WithRetryDelay(time.Millisecond)).Vault(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_APIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":{"vault":null}}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, WithAPIKey("secret")).Vault(context.Background(), "x")
	require.NoError(t, err)
}

func TestClient_PositionTransactions(t *testing.T) {
	server := subgraph(t, func(req gqlRequest) interface{} {
		item := map[string]interface{}{
			"id":          "t1",
			"timestamp":   "1700000000",
			"tokenAmount": "7",
			"blockNumber": "9",
			"vault":       map[string]interface{}{"id": "v1"},
		}
		if strings.Contains(req.Query, "withdrawals") {
			return map[string]interface{}{"withdrawals": []interface{}{item}}
		}
		return map[string]interface{}{"deposits": []interface{}{item, item}}
	})
	defer server.Close()

	h, err := NewClient(server.URL).PositionTransactions(context.Background(), "acc", "v1")
	require.NoError(t, err)
	assert.Len(t, h.Deposits, 2)
	assert.Len(t, h.Withdrawals, 1)
	assert.Equal(t, "7", h.NetDeposited().String())
}
