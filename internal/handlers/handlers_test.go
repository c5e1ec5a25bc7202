package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/tennis-tracker/internal/database"
	"github.com/trentd187/tennis-tracker/internal/live"
	"github.com/trentd187/tennis-tracker/internal/middleware"
	"github.com/trentd187/tennis-tracker/internal/models"
	"github.com/trentd187/tennis-tracker/internal/scoring"
	"github.com/trentd187/tennis-tracker/internal/websocket"
)

type testServer struct {
	app    *fiber.App
	db     *gorm.DB
	userID uuid.UUID
	role   models.UserRole
}

// newTestServer wires the same routes as cmd/server. Instead of parsing a Clerk token,
// requests run as s.userID with role s.role.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dsn := "sqlite:" + filepath.Join(t.TempDir(), "api.db")
	db, err := database.Connect(dsn)
	if err != nil {
		t.Fatalf("Connect() failed: %v", err)
	}
	if err := database.RunMigrations(db, dsn); err != nil {
		t.Fatalf("RunMigrations() failed: %v", err)
	}

	logger := log.New(io.Discard)
	reg := live.NewRegistry(db, nil, logger, scoring.DefaultHistoryLimit)
	s := &testServer{db: db, userID: uuid.New(), role: models.UserRoleUser}

	app := fiber.New()
	app.Get("/health", HealthCheck(db))
	app.Get("/ws/matches/:id", RequireUpgrade, MatchSocket(websocket.NewHub(), reg, logger))

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, s.userID.String())
		c.Locals(middleware.LocalUserRole, string(s.role))
		return c.Next()
	})
	api.Get("/formats", ListFormats)
	api.Get("/matches", ListMatches(db))
	api.Post("/matches", CreateMatch(reg))
	api.Get("/matches/:id", GetMatch(reg))
	api.Post("/matches/:id/points", RecordPoint(reg))
	api.Post("/matches/:id/undo", UndoPoint(reg))
	api.Post("/matches/:id/forfeit",
		middleware.RequireRole(models.UserRoleAdmin, models.UserRoleManager), ForfeitMatch(reg))
	api.Get("/matches/:id/stats", MatchStats(reg))

	s.app = app
	return s
}

// do sends a request and decodes a JSON response into out when out is non-nil.
func (s *testServer) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (s *testServer) createMatch(t *testing.T, format string) live.Snapshot {
	t.Helper()
	var snap live.Snapshot
	status := s.do(t, "POST", "/api/v1/matches", CreateMatchRequest{
		Format:  format,
		Player1: "Ada",
		Player2: "Grace",
	}, &snap)
	if status != fiber.StatusCreated {
		t.Fatalf("create match: status %d", status)
	}
	return snap
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	var body map[string]string
	if status := s.do(t, "GET", "/health", nil, &body); status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestListFormats(t *testing.T) {
	s := newTestServer(t)
	var formats []FormatResponse
	if status := s.do(t, "GET", "/api/v1/formats", nil, &formats); status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if len(formats) != 11 {
		t.Fatalf("got %d formats, want 11", len(formats))
	}
	if formats[0].ID != scoring.BestOf3 || formats[0].Rules.SetsToWin != 2 {
		t.Errorf("first format = %+v", formats[0])
	}
}

func TestCreateMatchValidation(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		body CreateMatchRequest
		want int
	}{
		{"valid", CreateMatchRequest{Format: "FAST4", Player1: "A", Player2: "B"}, fiber.StatusCreated},
		{"second server", CreateMatchRequest{Format: "FAST4", Player1: "A", Player2: "B", FirstServer: "PLAYER_2"}, fiber.StatusCreated},
		{"unknown format", CreateMatchRequest{Format: "CANASTA", Player1: "A", Player2: "B"}, fiber.StatusBadRequest},
		{"bad server", CreateMatchRequest{Format: "FAST4", Player1: "A", Player2: "B", FirstServer: "BALL_KID"}, fiber.StatusBadRequest},
		{"missing player", CreateMatchRequest{Format: "FAST4", Player1: "A"}, fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.do(t, "POST", "/api/v1/matches", tt.body, nil); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoringFlow(t *testing.T) {
	s := newTestServer(t)
	match := s.createMatch(t, "BEST_OF_3")
	base := "/api/v1/matches/" + match.MatchID

	var snap live.Snapshot
	for i := 0; i < 4; i++ {
		if status := s.do(t, "POST", base+"/points", PointRequest{Winner: "PLAYER_1", Ace: true, Serve: 1}, &snap); status != fiber.StatusOK {
			t.Fatalf("record point: status %d", status)
		}
	}
	if snap.State.Set.Games.Player1 != 1 || snap.State.Server != scoring.Player2 {
		t.Errorf("after one game: %+v", snap.State)
	}
	if !snap.ChangeSides {
		t.Error("ChangeSides = false after the first game")
	}

	s.do(t, "POST", base+"/points", PointRequest{Winner: "PLAYER_1", Outcome: "WINNER"}, &snap)
	if status := s.do(t, "POST", base+"/undo", nil, &snap); status != fiber.StatusOK {
		t.Fatalf("undo: status %d", status)
	}
	if !snap.State.Game.Score.IsZero() {
		t.Errorf("score after undo = %+v, want 0-0", snap.State.Game.Score)
	}

	var got live.Snapshot
	if status := s.do(t, "GET", base, nil, &got); status != fiber.StatusOK {
		t.Fatalf("get match: status %d", status)
	}
	if got.State.Set.Games != snap.State.Set.Games {
		t.Errorf("GET returned games %+v, want %+v", got.State.Set.Games, snap.State.Set.Games)
	}

	var stats scoring.MatchStats
	if status := s.do(t, "GET", base+"/stats", nil, &stats); status != fiber.StatusOK {
		t.Fatalf("stats: status %d", status)
	}
	if stats.Player1.Aces != 4 || stats.Player1.Winners != 0 || stats.Player1.PointsWon != 4 {
		t.Errorf("player 1 stats = %+v, the undone winner must not count", stats.Player1)
	}

	var list []MatchSummary
	s.do(t, "GET", "/api/v1/matches?status=in_progress", nil, &list)
	if len(list) != 1 || list[0].ID != match.MatchID || list[0].StartedAt == nil {
		t.Errorf("list = %+v", list)
	}
}

func TestPointValidation(t *testing.T) {
	s := newTestServer(t)
	base := "/api/v1/matches/" + s.createMatch(t, "NO_AD").MatchID

	tests := []struct {
		name string
		body PointRequest
		want int
	}{
		{"bad winner", PointRequest{Winner: "UMPIRE"}, fiber.StatusBadRequest},
		{"bad outcome", PointRequest{Winner: "PLAYER_1", Outcome: "LUCKY_NET"}, fiber.StatusBadRequest},
		{"third serve", PointRequest{Winner: "PLAYER_1", Serve: 3}, fiber.StatusBadRequest},
		{"not a deciding point", PointRequest{Winner: "PLAYER_1", DecidingPoint: true}, fiber.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.do(t, "POST", base+"/points", tt.body, nil); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}

	if got := s.do(t, "POST", base+"/undo", nil, nil); got != fiber.StatusConflict {
		t.Errorf("undo on a new match: status = %d, want 409", got)
	}
}

func TestUnknownAndMalformedMatchIDs(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		method, path string
		want         int
	}{
		{"GET", "/api/v1/matches/not-a-uuid", fiber.StatusBadRequest},
		{"GET", "/api/v1/matches/" + uuid.NewString(), fiber.StatusNotFound},
		{"POST", "/api/v1/matches/" + uuid.NewString() + "/undo", fiber.StatusNotFound},
		{"GET", "/api/v1/matches/" + uuid.NewString() + "/stats", fiber.StatusNotFound},
	}
	for _, tt := range tests {
		if got := s.do(t, tt.method, tt.path, nil, nil); got != tt.want {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, got, tt.want)
		}
	}
	if got := s.do(t, "GET", "/api/v1/matches?status=paused", nil, nil); got != fiber.StatusBadRequest {
		t.Errorf("bad status filter: status = %d, want 400", got)
	}
}

func TestForfeitRequiresManager(t *testing.T) {
	s := newTestServer(t)
	base := "/api/v1/matches/" + s.createMatch(t, "SINGLE_SET").MatchID
	body := ForfeitRequest{Winner: "PLAYER_2"}

	if got := s.do(t, "POST", base+"/forfeit", body, nil); got != fiber.StatusForbidden {
		t.Fatalf("forfeit as user: status = %d, want 403", got)
	}

	s.role = models.UserRoleManager
	var snap live.Snapshot
	if got := s.do(t, "POST", base+"/forfeit", body, &snap); got != fiber.StatusOK {
		t.Fatalf("forfeit as manager: status = %d, want 200", got)
	}
	if snap.Status != models.MatchStatusForfeited || snap.State.Winner != scoring.Player2 {
		t.Errorf("after forfeit: %+v", snap)
	}
	if got := s.do(t, "POST", base+"/points", PointRequest{Winner: "PLAYER_1"}, nil); got != fiber.StatusConflict {
		t.Errorf("point after forfeit: status = %d, want 409", got)
	}
}

func TestListMatchesScopedToCreator(t *testing.T) {
	s := newTestServer(t)
	s.createMatch(t, "BEST_OF_3")

	s.userID = uuid.New()
	s.createMatch(t, "BEST_OF_5")

	var list []MatchSummary
	s.do(t, "GET", "/api/v1/matches", nil, &list)
	if len(list) != 1 || list[0].Format != "BEST_OF_5" {
		t.Errorf("user sees %+v, want only their own match", list)
	}

	s.role = models.UserRoleAdmin
	s.do(t, "GET", "/api/v1/matches", nil, &list)
	if len(list) != 2 {
		t.Errorf("admin sees %d matches, want 2", len(list))
	}
}

func TestWebSocketRouteRequiresUpgrade(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/ws/matches/"+uuid.NewString(), nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("status = %d, want 426", resp.StatusCode)
	}
}
