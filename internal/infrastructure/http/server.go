package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cryptoquote-service/internal/application"
	"cryptoquote-service/internal/domain"
)

// Server exposes the quoting engine over HTTP. It is a thin caller: all
// pricing state lives in the engine, all trade execution in the trader.
type Server struct {
	engine *application.QuoteEngine
	trader application.Trader
	ready  func(r *http.Request) error
}

func NewServer(engine *application.QuoteEngine, trader application.Trader) *Server {
	return &Server{engine: engine, trader: trader}
}

// SetReadyCheck installs the readiness probe used by /readyz.
func (s *Server) SetReadyCheck(fn func(r *http.Request) error) { s.ready = fn }

type symbolResp struct {
	Symbol             string `json:"symbol"`
	Base               string `json:"base"`
	Quote              string `json:"quote"`
	FormulaType        string `json:"formula_type"`
	FormulaID          string `json:"formula_id,omitempty"`
	FormulaDescription string `json:"formula_description"`
	FormulaExample     string `json:"formula_example"`
}

type quoteResp struct {
	Symbol         string `json:"symbol"`
	Amount         string `json:"amount"`
	Price          string `json:"price"`
	Fee            string `json:"fee"`
	MinAmount      string `json:"min_amount"`
	MaxAmount      string `json:"max_amount"`
	DerivedAmount  string `json:"derived_amount"`
	WithinLimits   bool   `json:"within_limits"`
	ChannelHealthy bool   `json:"channel_healthy"`
	Formula        string `json:"formula"`
}

type statusResp struct {
	SelectedSymbol string `json:"selected_symbol"`
	InputAmount    string `json:"input_amount"`
	Price          string `json:"price"`
	Fee            string `json:"fee"`
	DerivedAmount  string `json:"derived_amount"`
	ChannelHealthy bool   `json:"channel_healthy"`
}

type exchangeRequest struct {
	Symbol string `json:"symbol"`
	Amount string `json:"amount"`
}

type exchangeResponse struct {
	Message   string    `json:"message"`
	Amount    string    `json:"amount"`
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) getSymbols(w http.ResponseWriter, r *http.Request) {
	pairs := s.engine.Pairs()
	if len(pairs) == 0 {
		var err error
		pairs, err = s.engine.LoadPairs(r.Context())
		if err != nil {
			writeRemoteError(w, err)
			return
		}
	}
	resp := make([]symbolResp, 0, len(pairs))
	for _, p := range pairs {
		rule := s.engine.FormulaFor(p.Symbol)
		resp = append(resp, symbolResp{
			Symbol:             p.Symbol,
			Base:               p.Base,
			Quote:              p.Quote,
			FormulaType:        string(p.FormulaKind),
			FormulaID:          p.FormulaID,
			FormulaDescription: rule.Description,
			FormulaExample:     rule.Example,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getQuote(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	amount := r.URL.Query().Get("amount")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if _, ok := s.engine.Pair(symbol); !ok {
		// The pair list may simply not be loaded yet.
		if _, err := s.engine.LoadPairs(r.Context()); err != nil {
			writeRemoteError(w, err)
			return
		}
		if _, ok := s.engine.Pair(symbol); !ok {
			writeError(w, http.StatusNotFound, domain.ErrUnknownSymbol.Error())
			return
		}
	}
	if err := s.engine.SelectPair(r.Context(), symbol); err != nil {
		writeRemoteError(w, err)
		return
	}
	s.engine.SetAmount(amount)

	st := s.engine.State()
	writeJSON(w, http.StatusOK, quoteResp{
		Symbol:         st.SelectedSymbol,
		Amount:         st.InputAmount,
		Price:          st.Price,
		Fee:            st.FeePercent,
		MinAmount:      st.MinAmount,
		MaxAmount:      st.MaxAmount,
		DerivedAmount:  st.DerivedAmount,
		WithinLimits:   s.engine.ValidateAmount(),
		ChannelHealthy: st.ChannelHealthy,
		Formula:        s.engine.FormulaFor(symbol).Description,
	})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	st := s.engine.State()
	writeJSON(w, http.StatusOK, statusResp{
		SelectedSymbol: st.SelectedSymbol,
		InputAmount:    st.InputAmount,
		Price:          st.Price,
		Fee:            st.FeePercent,
		DerivedAmount:  st.DerivedAmount,
		ChannelHealthy: st.ChannelHealthy,
	})
}

func (s *Server) postExchange(w http.ResponseWriter, r *http.Request) {
	var body exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Symbol == "" || body.Amount == "" {
		writeError(w, http.StatusBadRequest, "symbol and amount are required")
		return
	}
	amount, err := strconv.ParseFloat(body.Amount, 64)
	if err != nil || amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive number")
		return
	}
	// Limits are only known for the currently quoted pair; gate on them
	// when we have them.
	if s.engine.State().SelectedSymbol == body.Symbol && !s.engine.ValidateAmount() {
		writeError(w, http.StatusBadRequest, "amount outside pair limits")
		return
	}

	res, err := s.trader.Exchange(r.Context(), body.Symbol, body.Amount)
	if err != nil {
		writeRemoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exchangeResponse{
		Message:   res.Message,
		Amount:    res.Amount,
		Symbol:    res.Symbol,
		Timestamp: res.Timestamp,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Code: status, Message: msg})
}

// writeRemoteError maps a failed market call to a gateway error; anything
// else is internal.
func writeRemoteError(w http.ResponseWriter, err error) {
	var re *application.RemoteError
	if errors.As(err, &re) {
		writeError(w, http.StatusBadGateway, re.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
