package feeoracle

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeebo/assert"

	"github.com/fd1az/omniroute/business/routing/app"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
	"github.com/fd1az/omniroute/internal/config"
	"github.com/fd1az/omniroute/internal/logger"
)

func newOracle(t *testing.T, h http.HandlerFunc) *Oracle {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	o, err := New(config.FeeOracleConfig{BaseURL: srv.URL, Timeout: time.Second, CacheTTL: time.Minute},
		logger.New(io.Discard, logger.LevelError, "test", nil))
	assert.NoError(t, err)
	t.Cleanup(o.Close)
	return o
}

func request(calldata []byte) app.FeeRequest {
	return app.FeeRequest{
		SourceChainID:      asset.ChainIDEthereum,
		DestinationChainID: asset.ChainIDBSC,
		ReceiveSide:        common.HexToAddress("0x5604"),
		Calldata:           calldata,
		FeeAsset:           asset.USDC,
	}
}

func TestOracle_EstimateFee(t *testing.T) {
	var calls atomic.Int32
	o := newOracle(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, r.URL.Path, "/v1/calculate-fee")
		var body feeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, body.ChainIDFrom, asset.ChainIDEthereum)
		assert.Equal(t, body.ChainIDTo, asset.ChainIDBSC)
		_ = json.NewEncoder(w).Encode(feeResponse{Price: "125000"})
	})

	fee, err := o.EstimateFee(context.Background(), request([]byte{1, 2, 3}))
	assert.NoError(t, err)
	assert.Equal(t, fee.Raw().Int64(), int64(125_000))
	assert.True(t, fee.Asset().Equals(asset.USDC))

	_, err = o.EstimateFee(context.Background(), request([]byte{1, 2, 3}))
	assert.NoError(t, err)
	assert.Equal(t, int(calls.Load()), 1)

	// different calldata is a different question
	_, err = o.EstimateFee(context.Background(), request([]byte{1, 2, 4}))
	assert.NoError(t, err)
	assert.Equal(t, int(calls.Load()), 2)
}

func TestOracle_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server_error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"empty_price", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{}`)
		}},
		{"malformed_price", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"price":"1.5e3x"}`)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOracle(t, tt.handler)
			_, err := o.EstimateFee(context.Background(), request(nil))
			assert.Error(t, err)
			assert.Equal(t, apperror.GetCode(err), apperror.CodeFeeOracleError)
			assert.Equal(t, o.cache.Len(), 0)
		})
	}
}
