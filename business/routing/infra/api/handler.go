package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/omniroute/business/routing/app"
	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/apperror"
	"github.com/fd1az/omniroute/internal/asset"
	"github.com/fd1az/omniroute/internal/logger"
)

const maxBodyBytes = 64 << 10

// Router answers exact-input quotes.
type Router interface {
	RouteExactIn(ctx context.Context, req domain.Request) (*domain.QuoteResult, error)
}

// Handler implements the /v1 endpoints.
type Handler struct {
	router          Router
	ledgers         app.LedgerClient
	completions     app.CompletionWatcher
	assets          *asset.Registry
	defaultSlippage uint32
	logger          logger.LoggerInterface
}

// NewHandler creates the handler. ledgers and completions may be nil, in
// which case the relay endpoints answer UNSUPPORTED_LEDGER.
func NewHandler(router Router, ledgers app.LedgerClient, completions app.CompletionWatcher, assets *asset.Registry, defaultSlippageBps uint32, log logger.LoggerInterface) *Handler {
	return &Handler{
		router:          router,
		ledgers:         ledgers,
		completions:     completions,
		assets:          assets,
		defaultSlippage: defaultSlippageBps,
		logger:          log,
	}
}

// Quote handles POST /v1/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var body quoteRequest
	if err := decode(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	req, err := h.toRequest(body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.router.RouteExactIn(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(res))
}

// Transaction handles POST /v1/transactions.
func (h *Handler) Transaction(w http.ResponseWriter, r *http.Request) {
	var body transactionRequest
	if err := decode(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.ledgers == nil {
		h.writeError(w, r, apperror.Validation(apperror.CodeUnsupportedLedger, "transaction relay is disabled"))
		return
	}
	raw, err := decodeHex(body.RawTransaction)
	if err != nil || len(raw) == 0 {
		h.writeError(w, r, apperror.Validation(apperror.CodeInvalidRequest, "rawTransaction must be hex encoded"))
		return
	}

	hash, err := h.ledgers.Broadcast(r.Context(), body.ChainID, raw)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.Info(r.Context(), "transaction relayed", "chain_id", body.ChainID, "tx_hash", hash.Hex())

	resp := transactionResponse{ChainID: body.ChainID, TxHash: hash.Hex()}
	if !body.Wait {
		writeJSON(w, http.StatusAccepted, resp)
		return
	}

	conf, err := h.ledgers.AwaitConfirmation(r.Context(), body.ChainID, hash)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp.Confirmation = toConfirmationDTO(conf)
	writeJSON(w, http.StatusOK, resp)
}

// Completion handles POST /v1/completions.
func (h *Handler) Completion(w http.ResponseWriter, r *http.Request) {
	var body completionRequest
	if err := decode(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.completions == nil {
		h.writeError(w, r, apperror.Validation(apperror.CodeUnsupportedLedger, "completion tracking is disabled"))
		return
	}
	id, err := decodeHex(body.ExternalID)
	if err != nil || len(id) != common.HashLength {
		h.writeError(w, r, apperror.Validation(apperror.CodeInvalidRequest, "externalId must be 32 hex encoded bytes"))
		return
	}

	c, err := h.completions.AwaitCompletion(r.Context(), body.ChainID, common.BytesToHash(id))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCompletionResponse(c))
}

func (h *Handler) toRequest(body quoteRequest) (domain.Request, error) {
	in, err := h.assets.Resolve(body.TokenIn)
	if err != nil {
		return domain.Request{}, apperror.New(apperror.CodeInvalidRequest, apperror.WithContext("tokenIn"), apperror.WithCause(err))
	}
	out, err := h.assets.Resolve(body.TokenOut)
	if err != nil {
		return domain.Request{}, apperror.New(apperror.CodeInvalidRequest, apperror.WithContext("tokenOut"), apperror.WithCause(err))
	}
	amount, err := asset.ParseRaw(in, body.AmountIn)
	if err != nil {
		return domain.Request{}, apperror.New(apperror.CodeInvalidRequest, apperror.WithContext("amountIn"), apperror.WithCause(err))
	}

	req := domain.Request{
		AmountIn:    amount,
		TokenOut:    out,
		From:        body.From,
		To:          body.To,
		RevertTo:    body.RevertTo,
		SlippageBps: h.defaultSlippage,
	}
	if body.SlippageBps != nil {
		req.SlippageBps = *body.SlippageBps
	}
	if body.Deadline > 0 {
		req.Deadline = time.Unix(body.Deadline, 0)
	}
	return req, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperror.New(apperror.CodeInvalidRequest, apperror.WithContext("malformed JSON body"), apperror.WithCause(err))
	}
	return nil
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	err = apperror.Surface(err)

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.Internal(apperror.CodeInternalError, "", err)
	}
	if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
		appErr.WithTraceID(sc.TraceID().String())
	}

	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", appErr.ToLog())
	}
	writeJSON(w, status, appErr.ToResponse())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
