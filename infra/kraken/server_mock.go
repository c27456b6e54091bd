package kraken

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/kilianp07/smartcharge/core/logger"
	"github.com/kilianp07/smartcharge/core/model"
)

// MockConfig configures a MockServer.
type MockConfig struct {
	Address   string
	APIKey    string
	AccountID string
}

// MockServer answers the GraphQL operations used by Client with in-memory
// account data. It is meant for local development and tests.
type MockServer struct {
	addr      string
	apiKey    string
	accountID string
	log       logger.Logger
	srv       *http.Server
	requests  *prometheus.CounterVec

	mu        sync.Mutex
	tokens    map[string]bool
	prefs     preferencesDTO
	device    deviceDTO
	planned   []dispatchDTO
	completed []dispatchDTO
	failNext  int
	tokenTTL  time.Duration
}

// NewMockServer creates a mock server registering its request counter on
// reg. A nil registerer selects the default one.
func NewMockServer(cfg MockConfig, reg prometheus.Registerer, log logger.Logger) *MockServer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	log = logger.OrNop(log)
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kraken_mock_requests_total",
		Help: "GraphQL operations served by the mock provider",
	}, []string{"operation"})
	if err := reg.Register(requests); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if exist, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				requests = exist
			} else {
				log.Errorf("existing collector for kraken_mock_requests_total has wrong type %T", are.ExistingCollector)
			}
		}
	}
	weekdayTime, weekendTime := "07:00", "07:00"
	soc := 80
	s := &MockServer{
		addr:      cfg.Address,
		apiKey:    cfg.APIKey,
		accountID: cfg.AccountID,
		log:       log,
		requests:  requests,
		tokens:    make(map[string]bool),
		tokenTTL:  time.Hour,
		prefs: preferencesDTO{
			WeekdayTargetTime: &weekdayTime,
			WeekdayTargetSoc:  &soc,
			WeekendTargetTime: &weekendTime,
			WeekendTargetSoc:  &soc,
		},
		device: deviceDTO{
			ID:           "00000000-mock-device",
			Provider:     "TESLA",
			VehicleMake:  "Tesla",
			VehicleModel: "Model 3",
			BatterySizeKWh: decimal.NullDecimal{
				Decimal: decimal.RequireFromString("75"), Valid: true,
			},
			ChargePointPowerKW: decimal.NullDecimal{
				Decimal: decimal.RequireFromString("7.4"), Valid: true,
			},
			Status:    "Live",
			HasToken:  true,
			CreatedAt: "2024-01-01T00:00:00+00:00",
		},
	}
	return s
}

// SetPlannedDispatches replaces the planned dispatches served.
func (s *MockServer) SetPlannedDispatches(records []model.DispatchRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planned = toDTOs(records)
}

// SetCompletedDispatches replaces the completed dispatches served.
func (s *MockServer) SetCompletedDispatches(records []model.DispatchRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = toDTOs(records)
}

// FailNext makes the next n requests answer with HTTP 503.
func (s *MockServer) FailNext(n int) {
	s.mu.Lock()
	s.failNext = n
	s.mu.Unlock()
}

// SetTokenTTL changes the lifetime announced for new tokens.
func (s *MockServer) SetTokenTTL(d time.Duration) {
	s.mu.Lock()
	s.tokenTTL = d
	s.mu.Unlock()
}

// RevokeTokens invalidates every issued token.
func (s *MockServer) RevokeTokens() {
	s.mu.Lock()
	s.tokens = make(map[string]bool)
	s.mu.Unlock()
}

// Handler returns the GraphQL endpoint handler.
func (s *MockServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/graphql/", s.handleGraphQL)
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("pong")); err != nil {
			s.log.Errorf("write pong: %v", err)
		}
	})
	return mux
}

func toDTOs(records []model.DispatchRecord) []dispatchDTO {
	out := make([]dispatchDTO, 0, len(records))
	for _, r := range records {
		d := dispatchDTO{
			Start:     r.Start.UTC().Format("2006-01-02 15:04:05Z07:00"),
			End:       r.End.UTC().Format("2006-01-02 15:04:05Z07:00"),
			ChargeKWh: r.EnergyDeltaKWh,
		}
		d.Meta = &struct {
			Source   string `json:"source"`
			Location string `json:"location"`
		}{Source: r.Source, Location: r.Location}
		out = append(out, d)
	}
	return out
}

func (s *MockServer) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.requests.WithLabelValues(req.OperationName).Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	if req.OperationName == opToken {
		key, _ := req.Variables["apiKey"].(string)
		if key != s.apiKey {
			s.writeErrors(w, "Invalid data.", "KT-CT-1139", "Authentication failed.")
			return
		}
		token := uuid.NewString()
		s.tokens[token] = true
		s.writeData(w, map[string]any{"obtainKrakenToken": map[string]any{
			"token":        token,
			"payload":      map[string]any{"exp": time.Now().Add(s.tokenTTL).Unix()},
			"refreshToken": uuid.NewString(),
		}})
		return
	}
	if !s.tokens[r.Header.Get("Authorization")] {
		s.writeErrors(w, "Signature of the JWT has expired.", "KT-CT-1124", "Token expired.")
		return
	}
	if req.OperationName != opAccounts {
		if acc, _ := req.Variables["accountNumber"].(string); acc != s.accountID {
			s.writeErrors(w, "Unauthorized.", "KT-CT-4123", "Account not found.")
			return
		}
	}

	switch req.OperationName {
	case opAccounts:
		s.writeData(w, map[string]any{"viewer": map[string]any{
			"accounts": []map[string]string{{"number": s.accountID}},
		}})
	case opCombined:
		s.writeData(w, combinedDTO{
			Preferences: &s.prefs,
			Device:      &s.device,
			Planned:     s.planned,
			Completed:   s.completed,
		})
	case opPreferences:
		tt, _ := req.Variables["targetTime"].(string)
		socF, _ := req.Variables["targetSocPercent"].(float64)
		soc := int(socF)
		s.prefs.WeekdayTargetTime, s.prefs.WeekendTargetTime = &tt, &tt
		s.prefs.WeekdayTargetSoc, s.prefs.WeekendTargetSoc = &soc, &soc
		s.writeDevice(w, opPreferences)
	case opTriggerBoost:
		now := time.Now().UTC()
		s.planned = append(s.planned, toDTOs([]model.DispatchRecord{{
			Start:          now,
			End:            now.Add(time.Hour),
			EnergyDeltaKWh: decimal.NewFromInt(-7),
			Source:         model.SourceBumpCharge,
		}})...)
		s.writeDevice(w, opTriggerBoost)
	case opDeleteBoost:
		kept := s.planned[:0]
		for _, d := range s.planned {
			if d.Meta == nil || d.Meta.Source != model.SourceBumpCharge {
				kept = append(kept, d)
			}
		}
		s.planned = kept
		s.writeDevice(w, opDeleteBoost)
	case opSuspend:
		s.device.Suspended = true
		s.writeDevice(w, opSuspend)
	case opResume:
		s.device.Suspended = false
		s.writeDevice(w, opResume)
	default:
		s.writeErrors(w, "Unknown operation "+req.OperationName, "", "")
	}
}

func (s *MockServer) writeDevice(w http.ResponseWriter, op string) {
	s.writeData(w, map[string]any{op: map[string]any{
		"krakenflexDevice": map[string]string{"krakenflexDeviceId": s.device.ID},
	}})
}

func (s *MockServer) writeData(w http.ResponseWriter, data any) {
	s.write(w, map[string]any{"data": data})
}

func (s *MockServer) writeErrors(w http.ResponseWriter, message, code, description string) {
	e := QueryError{Message: message}
	e.Extensions.ErrorCode = code
	e.Extensions.ErrorDescription = description
	s.write(w, map[string]any{"data": nil, "errors": []QueryError{e}})
}

func (s *MockServer) write(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Errorf("encode response: %v", err)
	}
}

// Addr returns the listening address once Start has been called.
func (s *MockServer) Addr() string { return s.addr }

// Start runs the HTTP server until the context is canceled.
func (s *MockServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr().String()
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("shutdown server: %v", err)
		}
		cancel()
	}()
	s.log.Infof("kraken mock server listening on %s", s.addr)
	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
