package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	apitesting "github.com/coopfoundry/divvy/api/testing"
	"github.com/coopfoundry/divvy/ledger"
	divvytesting "github.com/coopfoundry/divvy/utils/pkg/testing"
)

const testOwner = "coop-owner"

// stubCollab implements the engine's collaborator interfaces with fixed
// revenue and weights.
type stubCollab struct {
	revenue int64
	weights map[string]int64
	members []string
}

func (s *stubCollab) Revenue(ctx context.Context, ventureID string) (int64, error) {
	return s.revenue, nil
}

func (s *stubCollab) ActiveMembers(ctx context.Context, ventureID string) ([]string, error) {
	return s.members, nil
}

func (s *stubCollab) TotalWeight(ctx context.Context, ventureID string) (int64, error) {
	var total int64
	for _, w := range s.weights {
		total += w
	}
	return total, nil
}

func (s *stubCollab) MemberWeight(ctx context.Context, ventureID, memberID string) (int64, error) {
	return s.weights[memberID], nil
}

func (s *stubCollab) Pay(ctx context.Context, amount int64, toMember string) error {
	return nil
}

func newTestServer(t *testing.T, collab *stubCollab, clock clockwork.Clock) *httptest.Server {
	t.Helper()
	pool := apitesting.NewIsolatedDB(t, sharedDB)
	engine, err := ledger.New(ledger.Config{
		Logger:        divvytesting.NewLogger(),
		Clock:         clock,
		Pool:          pool,
		Oracle:        collab,
		Membership:    collab,
		Contributions: collab,
		Transfer:      collab,
		Owner:         testOwner,
	})
	require.NoError(t, err)
	require.NoError(t, engine.Bootstrap(t.Context()))

	srv := httptest.NewServer(NewServer(divvytesting.NewLogger(), engine).Router())
	t.Cleanup(srv.Close)
	return srv
}

// doJSON issues a request with an optional JSON body and X-Caller header and
// decodes the JSON response into out when it is non-nil.
func doJSON(t *testing.T, method, url, caller string, body, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != "" {
		req.Header.Set("X-Caller", caller)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func configureVenture(t *testing.T, baseURL, ventureID string, threshold int64, maxMembers int, auto bool) {
	t.Helper()
	status := doJSON(t, http.MethodPut, fmt.Sprintf("%s/api/ventures/%s/config", baseURL, ventureID), testOwner,
		ConfigureVentureRequest{MinShareThreshold: threshold, MaxMembers: maxMembers, AutoDistribute: auto}, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestDivvy_API_DepositAndQueries(t *testing.T) {
	t.Parallel()

	collab := &stubCollab{weights: map[string]int64{"alice": 100}, members: []string{"alice"}}
	srv := newTestServer(t, collab, nil)
	configureVenture(t, srv.URL, "v1", 0, 10, false)

	var dep DepositResponse
	status := doJSON(t, http.MethodPost, srv.URL+"/api/ventures/v1/deposits", "",
		DepositRequest{Amount: 500}, &dep)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, int64(500), dep.PoolTotal)

	status = doJSON(t, http.MethodPost, srv.URL+"/api/ventures/v1/deposits", "",
		DepositRequest{Amount: 250}, &dep)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, int64(750), dep.PoolTotal)

	var pool PendingPoolResponse
	status = doJSON(t, http.MethodGet, srv.URL+"/api/ventures/v1/pending", "", nil, &pool)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, int64(750), pool.Amount)

	var settings ledger.Settings
	status = doJSON(t, http.MethodGet, srv.URL+"/api/status", "", nil, &settings)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, testOwner, settings.Owner)
	require.False(t, settings.Paused)

	var version VersionResponse
	status = doJSON(t, http.MethodGet, srv.URL+"/api/version", "", nil, &version)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, version.Version)

	var vcfg ledger.VentureConfig
	status = doJSON(t, http.MethodGet, srv.URL+"/api/ventures/v1/config", "", nil, &vcfg)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 10, vcfg.MaxMembers)
}

func TestDivvy_API_DistributionFlow(t *testing.T) {
	t.Parallel()

	collab := &stubCollab{
		revenue: 5000,
		weights: map[string]int64{"alice": 50, "bob": 30, "carol": 20},
		members: []string{"alice", "bob", "carol"},
	}
	srv := newTestServer(t, collab, nil)
	configureVenture(t, srv.URL, "v1", 0, 10, false)

	status := doJSON(t, http.MethodPut, srv.URL+"/api/admin/fee", testOwner, SetFeeRequest{FeePercent: 1}, nil)
	require.Equal(t, http.StatusOK, status)

	status = doJSON(t, http.MethodPost, srv.URL+"/api/ventures/v1/deposits", "", DepositRequest{Amount: 1000}, nil)
	require.Equal(t, http.StatusOK, status)

	var initiated InitiateResponse
	status = doJSON(t, http.MethodPost, srv.URL+"/api/ventures/v1/distributions", "", nil, &initiated)
	require.Equal(t, http.StatusCreated, status)
	require.NotZero(t, initiated.DistributionID)

	settleURL := fmt.Sprintf("%s/api/distributions/%d/settle", srv.URL, initiated.DistributionID)
	status = doJSON(t, http.MethodPost, settleURL, "", nil, nil)
	require.Equal(t, http.StatusOK, status)

	var d ledger.Distribution
	status = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/distributions/%d", srv.URL, initiated.DistributionID), "", nil, &d)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, ledger.StatusCompleted, d.Status)
	require.Equal(t, int64(60), d.FeeCollected)
	require.Equal(t, int64(5940), d.NetRevenue)

	var entries PaginatedResponse[ledger.Entry]
	status = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/distributions/%d/entries", srv.URL, initiated.DistributionID), "", nil, &entries)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 3, entries.Total)
	require.Len(t, entries.Items, 3)

	var balance ledger.MemberBalance
	status = doJSON(t, http.MethodGet, srv.URL+"/api/ventures/v1/balances/alice", "", nil, &balance)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, int64(2970), balance.Amount)

	// Settling twice conflicts.
	status = doJSON(t, http.MethodPost, settleURL, "", nil, nil)
	require.Equal(t, http.StatusConflict, status)
}

func TestDivvy_API_VestingClaims(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	collab := &stubCollab{
		revenue: 5940,
		weights: map[string]int64{"alice": 50, "bob": 30, "carol": 20},
		members: []string{"alice", "bob", "carol"},
	}
	srv := newTestServer(t, collab, clock)
	configureVenture(t, srv.URL, "v1", 0, 10, false)

	status := doJSON(t, http.MethodPut, srv.URL+"/api/admin/vesting", testOwner,
		SetVestingRequest{Enabled: true, PeriodSecs: 100, Periods: 12}, nil)
	require.Equal(t, http.StatusOK, status)

	var initiated InitiateResponse
	status = doJSON(t, http.MethodPost, srv.URL+"/api/ventures/v1/distributions", "", nil, &initiated)
	require.Equal(t, http.StatusCreated, status)

	settleURL := fmt.Sprintf("%s/api/distributions/%d/settle", srv.URL, initiated.DistributionID)
	status = doJSON(t, http.MethodPost, settleURL, "", nil, nil)
	require.Equal(t, http.StatusOK, status)

	var sc ledger.VestingSchedule
	status = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/distributions/%d/vesting/alice", srv.URL, initiated.DistributionID), "", nil, &sc)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, int64(2970), sc.TotalEntitled)

	claimURL := fmt.Sprintf("%s/api/distributions/%d/claims", srv.URL, initiated.DistributionID)

	// Nothing vested yet.
	status = doJSON(t, http.MethodPost, claimURL, "", ClaimRequest{MemberID: "alice"}, nil)
	require.Equal(t, http.StatusConflict, status)

	clock.Advance(300 * time.Second)

	var claimed ClaimResponse
	status = doJSON(t, http.MethodPost, claimURL, "", ClaimRequest{MemberID: "alice"}, &claimed)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, int64(741), claimed.Amount)

	// A claim needs a member id.
	status = doJSON(t, http.MethodPost, claimURL, "", ClaimRequest{}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	// No schedule for an unknown member.
	status = doJSON(t, http.MethodPost, claimURL, "", ClaimRequest{MemberID: "nobody"}, nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestDivvy_API_AdminGating(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubCollab{}, nil)

	// No caller header.
	status := doJSON(t, http.MethodPost, srv.URL+"/api/admin/pause", "", nil, nil)
	require.Equal(t, http.StatusForbidden, status)

	// Wrong caller.
	status = doJSON(t, http.MethodPut, srv.URL+"/api/admin/fee", "intruder", SetFeeRequest{FeePercent: 5}, nil)
	require.Equal(t, http.StatusForbidden, status)

	// Owner passes; paused engine rejects deposits with 409.
	status = doJSON(t, http.MethodPost, srv.URL+"/api/admin/pause", testOwner, nil, nil)
	require.Equal(t, http.StatusOK, status)

	configureVenture(t, srv.URL, "v1", 0, 10, false)
	status = doJSON(t, http.MethodPost, srv.URL+"/api/ventures/v1/deposits", "", DepositRequest{Amount: 100}, nil)
	require.Equal(t, http.StatusConflict, status)

	status = doJSON(t, http.MethodPost, srv.URL+"/api/admin/unpause", testOwner, nil, nil)
	require.Equal(t, http.StatusOK, status)
	status = doJSON(t, http.MethodPost, srv.URL+"/api/ventures/v1/deposits", "", DepositRequest{Amount: 100}, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestDivvy_API_ErrorMapping(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubCollab{}, nil)
	configureVenture(t, srv.URL, "v1", 0, 10, false)

	// Unknown venture is 404.
	status := doJSON(t, http.MethodPost, srv.URL+"/api/ventures/missing/deposits", "", DepositRequest{Amount: 100}, nil)
	require.Equal(t, http.StatusNotFound, status)

	// Invalid amount is 400.
	status = doJSON(t, http.MethodPost, srv.URL+"/api/ventures/v1/deposits", "", DepositRequest{Amount: -5}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	// No profits anywhere is 409.
	status = doJSON(t, http.MethodPost, srv.URL+"/api/ventures/v1/distributions", "", nil, nil)
	require.Equal(t, http.StatusConflict, status)

	// Unknown distribution is 404.
	status = doJSON(t, http.MethodPost, srv.URL+"/api/distributions/424242/settle", "", nil, nil)
	require.Equal(t, http.StatusNotFound, status)

	// Malformed distribution id is 400.
	status = doJSON(t, http.MethodPost, srv.URL+"/api/distributions/not-a-number/settle", "", nil, nil)
	require.Equal(t, http.StatusBadRequest, status)

	// Bad fee bounds are 400.
	status = doJSON(t, http.MethodPut, srv.URL+"/api/admin/fee", testOwner, SetFeeRequest{FeePercent: 99}, nil)
	require.Equal(t, http.StatusBadRequest, status)
}
