package vrrp

import (
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAddresses(t *testing.T, ips ...string) VirtualAddresses {
	t.Helper()
	parsed := make([]net.IP, len(ips))
	for i, ip := range ips {
		parsed[i] = net.ParseIP(ip).To4()
	}
	addrs, err := NewVirtualAddresses(parsed)
	require.NoError(t, err)
	return addrs
}

func ownerParams(t *testing.T) *Parameters {
	t.Helper()
	vrid, err := NewVRID(1)
	require.NoError(t, err)
	addrs := mustAddresses(t, "1.1.1.1", "2.2.2.2")
	params, err := NewParameters(vrid, addrs, IntervalFromSeconds(1), OwnerMode())
	require.NoError(t, err)
	return params
}

func backupParams(t *testing.T, primaryIP string, priority uint8, preempt, accept bool) *Parameters {
	t.Helper()
	vrid, err := NewVRID(1)
	require.NoError(t, err)
	addrs := mustAddresses(t, "1.1.1.1", "2.2.2.2")
	mode := NewBackupMode(net.ParseIP(primaryIP).To4(), Priority(priority), preempt, accept)
	params, err := NewParameters(vrid, addrs, IntervalFromSeconds(1), mode)
	require.NoError(t, err)
	return params
}

var actionCmp = cmp.Options{
	cmp.AllowUnexported(Action{}),
}

func assertActions(t *testing.T, got Actions, want []Action) {
	t.Helper()
	gotSlice := got.Collect()
	if diff := cmp.Diff(want, gotSlice, actionCmp); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
}

// Invariant 1: construction yields Initialized and is a no-op on
// anything but Startup.
func TestNewRouterStartsInitialized(t *testing.T) {
	r := NewRouter(ownerParams(t))
	assert.Equal(t, StateInitialized, r.State().Kind)

	now := time.Now()
	assertActions(t, r.HandleInput(now, ShutdownInput()), nil)
	assertActions(t, r.HandleInput(now, TimerInput()), nil)
	assert.Equal(t, StateInitialized, r.State().Kind)
}

// Invariant 2 (partial, the Parameters half): Owner always has
// priority 255, always accepts, always preempts.
func TestOwnerPriorityAcceptPreempt(t *testing.T) {
	p := ownerParams(t)
	assert.EqualValues(t, 255, p.Priority())
	assert.True(t, p.ShouldAccept())
	assert.True(t, p.ShouldPreempt())
}

// Invariants 3 & 4: skew_time and active_down_interval formulas.
func TestSkewTimeAndActiveDownIntervalFormulas(t *testing.T) {
	interval := IntervalFromSeconds(1) // 100 centis
	priority := Priority(100)

	skew := priority.SkewTime(interval)
	assert.EqualValues(t, (256-100)*100/256, skew.Centiseconds())

	active := priority.ActiveDownInterval(interval)
	assert.EqualValues(t, 3*100+skew.Centiseconds(), active.Centiseconds())
}

// Scenario 1 — Backup startup.
func TestScenarioBackupStartup(t *testing.T) {
	params := backupParams(t, "42.42.42.42", 100, true, false)
	r := NewRouter(params)

	t0 := time.Now()
	actions := r.HandleInput(t0, StartupInput())
	assertActions(t, actions, nil)

	st := r.State()
	require.Equal(t, StateBackup, st.Kind)
	assert.Equal(t, IntervalFromSeconds(1), st.Backup.ActiveAdverInterval)

	wantDeadline := t0.Add(Priority(100).ActiveDownInterval(IntervalFromSeconds(1)).Duration())
	assert.True(t, st.Backup.ActiveDownTimer.Equal(wantDeadline))
}

// Scenario 2 — Owner startup.
func TestScenarioOwnerStartup(t *testing.T) {
	params := ownerParams(t)
	r := NewRouter(params)
	mac := params.MACAddress()

	t0 := time.Now()
	actions := r.HandleInput(t0, StartupInput())

	assertActions(t, actions, []Action{
		activateAction(),
		sendAdvertisementAction(),
		sendGratuitousARPAction(mac, net.ParseIP("1.1.1.1").To4()),
		sendGratuitousARPAction(mac, net.ParseIP("2.2.2.2").To4()),
	})

	st := r.State()
	require.Equal(t, StateActive, st.Kind)
	assert.True(t, st.Active.AdverTimer.Equal(t0.Add(time.Second)))
}

// Scenario 3 — Backup promotion on active-down timeout.
func TestScenarioBackupPromotionOnActiveDown(t *testing.T) {
	params := backupParams(t, "42.42.42.42", 100, true, false)
	r := NewRouter(params)
	mac := params.MACAddress()

	t0 := time.Now()
	r.HandleInput(t0, StartupInput())

	deadline := r.State().Backup.ActiveDownTimer
	actions := r.HandleInput(deadline, TimerInput())

	assertActions(t, actions, []Action{
		activateAction(),
		sendAdvertisementAction(),
		sendGratuitousARPAction(mac, net.ParseIP("1.1.1.1").To4()),
		sendGratuitousARPAction(mac, net.ParseIP("2.2.2.2").To4()),
	})

	st := r.State()
	require.Equal(t, StateActive, st.Kind)
	assert.True(t, st.Active.AdverTimer.Equal(deadline.Add(time.Second)))
}

// Scenario 4 — Active is not preempted by a lower-priority sender.
func TestScenarioActiveNotPreemptedByLowerPriority(t *testing.T) {
	params := ownerParams(t)
	r := NewRouter(params)

	t0 := time.Now()
	r.HandleInput(t0, StartupInput())

	actions := r.HandleInput(t0, PacketInput(
		AdvertisementPacket(net.ParseIP("9.9.9.9").To4(), Priority(200), IntervalFromSeconds(10)),
	))

	assertActions(t, actions, []Action{sendAdvertisementAction()})

	st := r.State()
	require.Equal(t, StateActive, st.Kind)
	assert.True(t, st.Active.AdverTimer.Equal(t0.Add(time.Second)))
}

// Scenario 5 — Active demoted by equal-priority, higher-IP sender.
func TestScenarioActiveDemotedOnPriorityTieHigherIP(t *testing.T) {
	params := backupParams(t, "1.1.1.1", 100, true, false)
	r := NewRouter(params)

	t0 := time.Now()
	r.HandleInput(t0, StartupInput())
	r.HandleInput(r.State().Backup.ActiveDownTimer, TimerInput()) // promote to Active

	now := r.State().Active.AdverTimer.Add(-500 * time.Millisecond)
	actions := r.HandleInput(now, PacketInput(
		AdvertisementPacket(net.ParseIP("9.9.9.9").To4(), Priority(100), IntervalFromSeconds(10)),
	))

	assertActions(t, actions, []Action{deactivateAction()})

	st := r.State()
	require.Equal(t, StateBackup, st.Kind)
	assert.Equal(t, IntervalFromSeconds(10), st.Backup.ActiveAdverInterval)
	assert.True(t, st.Backup.ActiveDownTimer.Equal(now.Add(Priority(100).ActiveDownInterval(IntervalFromSeconds(10)).Duration())))
}

// Scenario 6 — Active answers ARP for a virtual address.
func TestScenarioActiveAnswersARP(t *testing.T) {
	params := ownerParams(t)
	r := NewRouter(params)
	mac := params.MACAddress()

	t0 := time.Now()
	r.HandleInput(t0, StartupInput())

	senderMAC := net.HardwareAddr{0x02, 0x05, 0x02, 0x05, 0x02, 0x05}
	senderIP := net.ParseIP("24.24.24.24").To4()
	targetIP := net.ParseIP("1.1.1.1").To4()

	actions := r.HandleInput(t0, PacketInput(RequestARPPacket(senderMAC, senderIP, targetIP)))

	assertActions(t, actions, []Action{
		sendReplyARPAction(mac, targetIP, senderMAC, senderIP),
	})
}

// Scenario 7 — Active's IP routing disposition.
func TestScenarioActiveRoutesIP(t *testing.T) {
	params := ownerParams(t)
	r := NewRouter(params)
	mac := params.MACAddress()
	t0 := time.Now()
	r.HandleInput(t0, StartupInput())

	forward := r.HandleInput(t0, PacketInput(IPPacket(mac, net.ParseIP("5.2.5.2").To4())))
	assertActions(t, forward, []Action{routeAction(RouteForward)})

	accept := r.HandleInput(t0, PacketInput(IPPacket(mac, net.ParseIP("1.1.1.1").To4())))
	assertActions(t, accept, []Action{routeAction(RouteAccept)})

	other := net.HardwareAddr{0x02, 0x05, 0x02, 0x05, 0x02, 0x05}
	none := r.HandleInput(t0, PacketInput(IPPacket(other, net.ParseIP("24.24.24.24").To4())))
	assertActions(t, none, nil)
}

// Invariant 6: Shutdown from Active emits exactly
// [ShutdownAdvertisement, Deactivate].
func TestShutdownFromActiveEmitsShutdownSequence(t *testing.T) {
	params := ownerParams(t)
	r := NewRouter(params)
	t0 := time.Now()
	r.HandleInput(t0, StartupInput())

	actions := r.HandleInput(t0, ShutdownInput())
	assertActions(t, actions, []Action{
		sendShutdownAdvertisementAction(),
		deactivateAction(),
	})
	assert.Equal(t, StateInitialized, r.State().Kind)
}

// Invariant 7: Backup adopts a non-preempting or ≥priority
// advertisement with an empty action stream.
func TestBackupAdoptsNonPreemptingAdvertisement(t *testing.T) {
	params := backupParams(t, "1.1.1.1", 100, true, false)
	r := NewRouter(params)
	t0 := time.Now()
	r.HandleInput(t0, StartupInput())

	now := t0.Add(100 * time.Millisecond)
	actions := r.HandleInput(now, PacketInput(
		AdvertisementPacket(net.ParseIP("9.9.9.9").To4(), Priority(150), IntervalFromSeconds(2)),
	))
	assertActions(t, actions, nil)

	st := r.State()
	require.Equal(t, StateBackup, st.Kind)
	assert.Equal(t, IntervalFromSeconds(2), st.Backup.ActiveAdverInterval)
	assert.True(t, st.Backup.ActiveDownTimer.Equal(now.Add(Priority(100).ActiveDownInterval(IntervalFromSeconds(2)).Duration())))
}

// Invariant 8: Backup adopts a ShutdownAdvertisement with
// active_down_timer = now + skew_time(interval).
func TestBackupAdoptsShutdownAdvertisement(t *testing.T) {
	params := backupParams(t, "1.1.1.1", 100, true, false)
	r := NewRouter(params)
	t0 := time.Now()
	r.HandleInput(t0, StartupInput())

	now := t0.Add(100 * time.Millisecond)
	actions := r.HandleInput(now, PacketInput(ShutdownAdvertisementPacket(IntervalFromSeconds(2))))
	assertActions(t, actions, nil)

	st := r.State()
	require.Equal(t, StateBackup, st.Kind)
	assert.True(t, st.Backup.ActiveDownTimer.Equal(now.Add(Priority(100).SkewTime(IntervalFromSeconds(2)).Duration())))
}

// Backup does not adopt a preempt-eligible, strictly lower priority
// advertisement: no state change, no actions.
func TestBackupIgnoresLowerPriorityAdvertisementWhenPreemptEnabled(t *testing.T) {
	params := backupParams(t, "1.1.1.1", 100, true, false)
	r := NewRouter(params)
	t0 := time.Now()
	r.HandleInput(t0, StartupInput())
	before := r.State()

	actions := r.HandleInput(t0.Add(10*time.Millisecond), PacketInput(
		AdvertisementPacket(net.ParseIP("9.9.9.9").To4(), Priority(50), IntervalFromSeconds(1)),
	))
	assertActions(t, actions, nil)
	assert.Equal(t, before, r.State())
}

// Backup startup while the deadline has already elapsed promotes
// immediately (resolved Open Question, SPEC_FULL.md §9).
func TestBackupStartupCommandWhilePastDeadlinePromotes(t *testing.T) {
	params := backupParams(t, "1.1.1.1", 100, true, false)
	r := NewRouter(params)
	t0 := time.Now()
	r.HandleInput(t0, StartupInput())

	deadline := r.State().Backup.ActiveDownTimer
	actions := r.HandleInput(deadline.Add(time.Millisecond), StartupInput())

	require.Equal(t, StateActive, r.State().Kind)
	require.NotEmpty(t, actions.Collect())
}

// Invariant 10 / Initialized edge case: a received IP datagram while
// Initialized is rejected, not merely ignored.
func TestInitializedRejectsIPDatagram(t *testing.T) {
	r := NewRouter(ownerParams(t))
	actions := r.HandleInput(time.Now(), PacketInput(IPPacket(net.HardwareAddr{1, 2, 3, 4, 5, 6}, net.ParseIP("1.1.1.1").To4())))
	assertActions(t, actions, []Action{routeAction(RouteReject)})
	assert.Equal(t, StateInitialized, r.State().Kind)
}

// Backup rejects any observed IP datagram outright.
func TestBackupRejectsIPDatagram(t *testing.T) {
	params := backupParams(t, "1.1.1.1", 100, true, false)
	r := NewRouter(params)
	r.HandleInput(time.Now(), StartupInput())

	actions := r.HandleInput(time.Now(), PacketInput(IPPacket(net.HardwareAddr{1, 2, 3, 4, 5, 6}, net.ParseIP("1.1.1.1").To4())))
	assertActions(t, actions, []Action{routeAction(RouteReject)})
}

// Property: next_timer never regresses across a sequence of Timer
// inputs that do not change state (Backup watching an idle Active).
func TestNextTimerNeverRegressesWhileBackupIdles(t *testing.T) {
	params := backupParams(t, "1.1.1.1", 100, true, false)
	r := NewRouter(params)
	t0 := time.Now()
	r.HandleInput(t0, StartupInput())

	last := r.NextTimer(t0)
	for i := 0; i < 5; i++ {
		now := t0.Add(time.Duration(i) * 10 * time.Millisecond)
		r.HandleInput(now, TimerInput())
		next := r.NextTimer(now)
		assert.False(t, next.Before(last), "next_timer regressed from %v to %v", last, next)
		last = next
	}
}
