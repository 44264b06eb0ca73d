package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/arenasync/internal/adapters/http/api"
	service "github.com/okian/arenasync/internal/app"
	"github.com/okian/arenasync/internal/domain/countdown"
	"github.com/okian/arenasync/internal/domain/model"
	"github.com/okian/arenasync/internal/domain/phase"
	"github.com/okian/arenasync/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type mockSession struct {
	mu      sync.Mutex
	view    service.View
	remain  countdown.Remaining
	betErr  error
	bets    []decimal.Decimal
	updates chan service.Update
}

func (m *mockSession) View() service.View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

func (m *mockSession) Countdown() countdown.Remaining { return m.remain }

func (m *mockSession) PlaceBet(_ context.Context, choiceID model.ID, amount decimal.Decimal) (model.Commitment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.betErr != nil {
		return model.Commitment{}, m.betErr
	}
	m.bets = append(m.bets, amount)
	return model.Commitment{ID: "b1", EventID: "7", ChoiceID: choiceID, Amount: amount}, nil
}

func (m *mockSession) Subscribe(int) (<-chan service.Update, func()) {
	return m.updates, func() {}
}

func newMux(m *mockSession) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(m, api.WithWriteTimeout(time.Second)).Register(mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func trackedView() service.View {
	return service.View{
		SessionID:       "s1",
		Mode:            service.ModeFollow,
		Event:           &model.ScheduledEvent{ID: "7", Phase: phase.BettingOpen},
		Phase:           phase.BettingOpen,
		CountdownTarget: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:       time.Date(2025, 5, 1, 11, 58, 0, 0, time.UTC),
	}
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		m := &mockSession{updates: make(chan service.Update)}
		mux := newMux(m)

		Convey("Then health serves the metrics exposition", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then unknown routes are not found", func() {
			w := do(mux, http.MethodGet, "/leaderboard", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods are not found", func() {
			So(do(mux, http.MethodPost, "/state", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/bets", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestStateHandlers(t *testing.T) {
	Convey("Given a session tracking an event", t, func() {
		m := &mockSession{view: trackedView(), remain: countdown.Remaining{Minutes: 2, Seconds: 5}}
		mux := newMux(m)

		Convey("When the state is requested", func() {
			w := do(mux, http.MethodGet, "/state", "")

			Convey("Then the view is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["session_id"], ShouldEqual, "s1")
				So(body["mode"], ShouldEqual, "follow")
				So(body["phase"], ShouldEqual, "betting_open")
			})
		})

		Convey("When the countdown is requested", func() {
			w := do(mux, http.MethodGet, "/countdown", "")

			Convey("Then remaining time and target are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["minutes"], ShouldEqual, 2.0)
				So(body["seconds"], ShouldEqual, 5.0)
				So(body["expired"], ShouldEqual, false)
				So(body["target"], ShouldEqual, "2025-05-01T12:00:00Z")
			})
		})
	})

	Convey("Given a session with no event", t, func() {
		mux := newMux(&mockSession{})

		Convey("Then the countdown is not found", func() {
			w := do(mux, http.MethodGet, "/countdown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			var body map[string]string
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["code"], ShouldEqual, "not_found")
			So(body["message"], ShouldEqual, "no event tracked")
		})
	})
}

func TestBetsHandler(t *testing.T) {
	Convey("Given a session accepting bets", t, func() {
		m := &mockSession{view: trackedView()}
		mux := newMux(m)

		Convey("When the body is malformed", func() {
			w := do(mux, http.MethodPost, "/bets", `{"choice_id":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the choice is missing", func() {
			w := do(mux, http.MethodPost, "/bets", `{"amount":100}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			var body map[string]string
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["code"], ShouldEqual, "bad_request")
			So(body["message"], ShouldEqual, "bad request: missing choice_id")
			So(body["message"], ShouldNotContainSubstring, "api.")
		})

		Convey("When the amount is not positive", func() {
			w := do(mux, http.MethodPost, "/bets", `{"choice_id":"2","amount":0}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the bet is valid", func() {
			w := do(mux, http.MethodPost, "/bets", `{"choice_id":"2","amount":"150.5"}`)

			Convey("Then the commitment is created", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(m.bets, ShouldHaveLength, 1)
				So(m.bets[0].String(), ShouldEqual, "150.5")
				var body map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["chosen_fighter"], ShouldEqual, "2")
			})
		})

		Convey("When the session refuses the bet", func() {
			cases := []struct {
				err    error
				status int
			}{
				{&model.CommitError{Kind: model.ErrInvalidAmount, Message: "too small"}, http.StatusBadRequest},
				{&model.CommitError{Kind: model.ErrEventNotFound, Message: "gone"}, http.StatusNotFound},
				{&model.CommitError{Kind: model.ErrUnauthorized, Message: "login"}, http.StatusUnauthorized},
				{&model.CommitError{Kind: model.ErrInsufficientFunds, Message: "broke"}, http.StatusPaymentRequired},
				{&model.CommitError{Kind: model.ErrBettingClosed, Message: "late"}, http.StatusConflict},
				{&model.CommitError{Kind: model.ErrCommitRejected, Message: "no"}, http.StatusUnprocessableEntity},
				{context.DeadlineExceeded, http.StatusBadGateway},
			}

			Convey("Then each kind maps to its status", func() {
				for _, c := range cases {
					m.betErr = c.err
					w := do(mux, http.MethodPost, "/bets", `{"choice_id":"2","amount":100}`)
					So(w.Code, ShouldEqual, c.status)
				}
			})

			Convey("Then refusals are counted under their error code", func() {
				m.betErr = &model.CommitError{Kind: model.ErrInsufficientFunds, Message: "broke"}
				So(do(mux, http.MethodPost, "/bets", `{"choice_id":"2","amount":100}`).Code, ShouldEqual, http.StatusPaymentRequired)
				So(do(mux, http.MethodGet, "/bets", "").Code, ShouldEqual, http.StatusNotFound)

				exposition := do(mux, http.MethodGet, "/healthz", "").Body.String()
				So(exposition, ShouldContainSubstring, `errors_by_component_total{component="api_bets",error_type="insufficient_funds"}`)
				So(exposition, ShouldContainSubstring, `errors_by_component_total{component="api_bets",error_type="not_found"}`)
			})
		})
	})
}

// wireUpdate is the client view of a stream frame.
type wireUpdate struct {
	Kind    string         `json:"kind"`
	EventID string         `json:"event_id"`
	Round   int            `json:"round"`
	View    map[string]any `json:"view"`
}

func TestStreamHandler(t *testing.T) {
	Convey("Given a websocket client on the stream", t, func() {
		m := &mockSession{view: trackedView(), updates: make(chan service.Update, 4)}
		srv := httptest.NewServer(newMux(m))
		defer srv.Close()

		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)
		defer conn.Close()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

		Convey("Then the current view arrives first", func() {
			var u wireUpdate
			So(conn.ReadJSON(&u), ShouldBeNil)
			So(u.Kind, ShouldEqual, "view")
			So(u.EventID, ShouldEqual, "7")
			So(u.View["session_id"], ShouldEqual, "s1")

			Convey("And pushed updates follow", func() {
				m.updates <- service.Update{Kind: service.UpdateReveal, EventID: "7", Round: 1}
				So(conn.ReadJSON(&u), ShouldBeNil)
				So(u.Kind, ShouldEqual, "reveal")
				So(u.Round, ShouldEqual, 1)
			})

			Convey("And the stream closes when the session goes away", func() {
				close(m.updates)
				_, _, err := conn.ReadMessage()
				So(websocket.IsCloseError(err, websocket.CloseGoingAway), ShouldBeTrue)
			})
		})
	})
}
