package route

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nfc-hospital/nfc-hospital-guide-sub000/internal/models"
)

type mockPlanner struct {
	mock.Mock
}

func (m *mockPlanner) Plan(ctx context.Context, startNodeID, endNodeID string) (*Plan, error) {
	args := m.Called(ctx, startNodeID, endNodeID)
	plan, _ := args.Get(0).(*Plan)
	return plan, args.Error(1)
}

type failingManual struct{ err error }

func (f failingManual) Lookup(ctx context.Context, facilityName string) (*ManualRoute, bool, error) {
	return nil, false, f.err
}

func testStart() Start {
	return Start{TagCode: "TAG-MAIN-1F-ENTRANCE", NodeID: "entrance", Position: &models.Point{X: 0, Y: 0}, Floor: "1F", MapID: "main_1f"}
}

func testDest() *models.Destination {
	return &models.Destination{
		ID: "xray", Title: "X-ray", Floor: "1F",
		Coordinates: &models.Point{X: 300, Y: 400}, LocationTagRef: "TAG-MAIN-1F-XRAY",
	}
}

func TestComputeRoute_Preconditions(t *testing.T) {
	planner := &mockPlanner{}
	e := NewEngine(nil, planner, DefaultOptions(), zap.NewNop())

	start := testStart()
	start.TagCode = " "
	_, err := e.ComputeRoute(context.Background(), start, testDest())
	assert.ErrorIs(t, err, ErrMissingStart)
	assert.True(t, IsPrecondition(err))

	_, err = e.ComputeRoute(context.Background(), testStart(), nil)
	assert.ErrorIs(t, err, ErrMissingDestination)

	dest := testDest()
	dest.LocationTagRef = ""
	_, err = e.ComputeRoute(context.Background(), testStart(), dest)
	assert.ErrorIs(t, err, ErrMissingDestination)

	planner.AssertNotCalled(t, "Plan", mock.Anything, mock.Anything, mock.Anything)
}

func TestComputeRoute_ManualNeverCallsPlanner(t *testing.T) {
	planner := &mockPlanner{}
	manual := NewManualRouteTable(ManualRoute{
		Name:  "X-ray",
		MapID: "main_1f",
		Nodes: []models.RouteNode{
			{ID: "entrance", X: 0, Y: 0, Floor: "1F"},
			{ID: "corner", X: 0, Y: 400, Floor: "1F"},
			{ID: "xray", X: 300, Y: 400, Floor: "1F"},
		},
	})
	e := NewEngine(manual, planner, DefaultOptions(), zap.NewNop())

	r, err := e.ComputeRoute(context.Background(), testStart(), testDest())
	require.NoError(t, err)
	assert.Equal(t, models.RouteModeManual, r.Mode)
	assert.Len(t, r.Nodes, 3)
	assert.Len(t, r.Edges, len(r.Nodes)-1)
	assert.NotEmpty(t, r.RouteID)
	// (400 + 300) * 0.1
	assert.Equal(t, 70.0, r.TotalDistance)
	assert.Equal(t, 70, r.EstimatedTime)
	assert.Equal(t, []string{"1F"}, r.FloorsInvolved)

	planner.AssertNotCalled(t, "Plan", mock.Anything, mock.Anything, mock.Anything)
}

func TestComputeRoute_ManualByID(t *testing.T) {
	manual := NewManualRouteTable(ManualRoute{
		Name:  "xray",
		Nodes: []models.RouteNode{{ID: "a"}, {ID: "b", X: 10}},
	})
	e := NewEngine(manual, nil, DefaultOptions(), zap.NewNop())

	r, err := e.ComputeRoute(context.Background(), testStart(), testDest())
	require.NoError(t, err)
	assert.Equal(t, models.RouteModeManual, r.Mode)
}

func TestComputeRoute_PlannerComputed(t *testing.T) {
	planner := &mockPlanner{}
	planner.On("Plan", mock.Anything, "TAG-MAIN-1F-ENTRANCE", "TAG-MAIN-1F-XRAY").Return(&Plan{
		MapID: "main",
		Coordinates: []Waypoint{
			{X: 100, Y: 50, Floor: "1F"},
			{X: 300, Y: 200, Floor: "1F", Name: "Elevator B"},
			{X: 300, Y: 200, Floor: "3F"},
			{X: 300, Y: 260, Floor: "3F"},
		},
		Distance: 120,
	}, nil).Once()

	e := NewEngine(NewManualRouteTable(), planner, DefaultOptions(), zap.NewNop())
	r, err := e.ComputeRoute(context.Background(), testStart(), testDest())
	require.NoError(t, err)
	planner.AssertExpectations(t)

	assert.Equal(t, models.RouteModeComputed, r.Mode)
	require.Len(t, r.Nodes, 5)
	assert.Equal(t, "wp-0~wp-1", r.Nodes[1].ID)
	assert.Equal(t, 300.0, r.Nodes[1].X)
	assert.Equal(t, 50.0, r.Nodes[1].Y)
	require.NotNil(t, r.Nodes[2].Transition)
	assert.Equal(t, models.TransitionElevator, r.Nodes[2].Transition.Type)
	assert.Equal(t, "3F", r.Nodes[2].Transition.TargetFloor)
	assert.Equal(t, []string{"1F", "3F"}, r.FloorsInvolved)
	assert.Len(t, r.Edges, len(r.Nodes)-1)
	assert.Equal(t, 120.0, r.TotalDistance)
	// 120m / 1m/s + 一次换层
	assert.Equal(t, 180, r.EstimatedTime)
}

func TestComputeRoute_OfflineFallback(t *testing.T) {
	kinds := []PlannerErrorKind{PlannerNetwork, PlannerTimeout, PlannerNotFound, PlannerServer, PlannerMalformed}
	for _, kind := range kinds {
		t.Run(string(kind), func(t *testing.T) {
			planner := &mockPlanner{}
			planner.On("Plan", mock.Anything, mock.Anything, mock.Anything).
				Return(nil, &PlannerError{Kind: kind, Err: errors.New("boom")})

			e := NewEngine(nil, planner, DefaultOptions(), zap.NewNop())
			r, err := e.ComputeRoute(context.Background(), testStart(), testDest())
			require.NoError(t, err)

			assert.Equal(t, models.RouteModeOffline, r.Mode)
			require.Len(t, r.Nodes, 2)
			assert.Equal(t, [][2]string{{"entrance", "TAG-MAIN-1F-XRAY"}}, r.Edges)
			assert.NotEmpty(t, r.Advisory)
			assert.Equal(t, 50.0, r.TotalDistance)
			assert.Equal(t, 50, r.EstimatedTime)
		})
	}
}

func TestComputeRoute_NoPlannerFallsBack(t *testing.T) {
	e := NewEngine(nil, nil, DefaultOptions(), zap.NewNop())
	r, err := e.ComputeRoute(context.Background(), testStart(), testDest())
	require.NoError(t, err)
	assert.Equal(t, models.RouteModeOffline, r.Mode)
}

func TestComputeRoute_NoCoordinatesSurfacesError(t *testing.T) {
	planner := &mockPlanner{}
	planner.On("Plan", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &PlannerError{Kind: PlannerNotFound, StatusCode: 404, Err: errors.New("no path")})

	start := testStart()
	start.Position = nil
	e := NewEngine(nil, planner, DefaultOptions(), zap.NewNop())

	_, err := e.ComputeRoute(context.Background(), start, testDest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPlannerUnavailable)
	assert.False(t, IsPrecondition(err))
}

func TestComputeRoute_OfflineUsesLastKnownPosition(t *testing.T) {
	planner := &mockPlanner{}
	planner.On("Plan", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &PlannerError{Kind: PlannerNetwork, Err: errors.New("down")})

	start := testStart()
	start.Position = nil
	start.LastKnown = &models.Point{X: 30, Y: 40}
	e := NewEngine(nil, planner, DefaultOptions(), zap.NewNop())

	r, err := e.ComputeRoute(context.Background(), start, testDest())
	require.NoError(t, err)
	assert.Equal(t, models.RouteModeOffline, r.Mode)
	require.Len(t, r.Nodes, 2)
	assert.Equal(t, "entrance", r.Nodes[0].ID)
	assert.Equal(t, 30.0, r.Nodes[0].X)
	assert.Equal(t, 40.0, r.Nodes[0].Y)

	start.Position = &models.Point{X: 1, Y: 2}
	r, err = e.ComputeRoute(context.Background(), start, testDest())
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Nodes[0].X, "current position wins over last known")
}

func TestComputeRoute_CanceledIsNotFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	planner := &mockPlanner{}
	planner.On("Plan", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled)

	e := NewEngine(nil, planner, DefaultOptions(), zap.NewNop())
	r, err := e.ComputeRoute(ctx, testStart(), testDest())
	assert.Nil(t, r)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComputeRoute_ManualFailureFallsThrough(t *testing.T) {
	planner := &mockPlanner{}
	planner.On("Plan", mock.Anything, mock.Anything, mock.Anything).Return(&Plan{
		Coordinates: []Waypoint{{X: 0, Y: 0}, {X: 10, Y: 0}},
	}, nil)

	e := NewEngine(failingManual{err: errors.New("table unavailable")}, planner, DefaultOptions(), zap.NewNop())
	r, err := e.ComputeRoute(context.Background(), testStart(), testDest())
	require.NoError(t, err)
	assert.Equal(t, models.RouteModeComputed, r.Mode)
	assert.Equal(t, 1.0, r.TotalDistance)
}
