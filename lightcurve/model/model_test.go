package model

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-spex/internal/testutil"
	"github.com/cwbudde/algo-spex/lightcurve/params"
)

func reg(t *testing.T, ps ...params.Parameter) *params.Registry {
	t.Helper()

	r := params.NewRegistry()
	for _, p := range ps {
		if err := r.Add(p); err != nil {
			t.Fatalf("Add(%q): %v", p.Name, err)
		}
	}

	return r
}

func stepRegistry(t *testing.T, height, onset float64) *params.Registry {
	return reg(t,
		params.Parameter{Name: "step0", Value: height, Kind: params.BindFree},
		params.Parameter{Name: "steptime0", Value: onset, Kind: params.BindFixed},
	)
}

func transitRegistry(t *testing.T) *params.Registry {
	return reg(t,
		params.Parameter{Name: "t0", Value: 0.5, Kind: params.BindShared},
		params.Parameter{Name: "per", Value: 3, Kind: params.BindFixed},
		params.Parameter{Name: "rp", Value: 0.1, Kind: params.BindFree},
		params.Parameter{Name: "a", Value: 8, Kind: params.BindFixed},
		params.Parameter{Name: "inc", Value: 90, Kind: params.BindFixed},
		params.Parameter{Name: "u1", Value: 0, Kind: params.BindFixed},
		params.Parameter{Name: "u2", Value: 0, Kind: params.BindFixed},
	)
}

func TestStepExactValues(t *testing.T) {
	time := testutil.Linspace(0, 1, 11)

	m, err := Compose(Config{
		Name:     "step",
		Time:     time,
		NChan:    3,
		Registry: stepRegistry(t, 0.05, 0.5),
	}, NewStep(1))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	for c := 0; c < 3; c++ {
		flux, err := m.Eval(c)
		if err != nil {
			t.Fatalf("Eval(%d): %v", c, err)
		}

		for i, ti := range time {
			want := 1.0
			if ti >= 0.5 {
				want = 1.05
			}

			if flux[i] != want {
				t.Fatalf("channel %d flux(%v) = %v, want exactly %v", c, ti, flux[i], want)
			}
		}
	}
}

func TestMulIsElementwiseProduct(t *testing.T) {
	time := testutil.Linspace(0, 1, 20)

	a, err := Compose(Config{
		Name: "a", Time: time, NChan: 1,
		Registry: stepRegistry(t, 0.05, 0.4),
	}, NewStep(1))
	if err != nil {
		t.Fatalf("Compose a: %v", err)
	}

	b, err := Compose(Config{
		Name: "b", Time: time, NChan: 1,
		Registry: reg(t,
			params.Parameter{Name: "c0", Value: 1, Kind: params.BindFree},
			params.Parameter{Name: "c1", Value: 0.2, Kind: params.BindFree},
		),
	}, NewPolynomial(1))
	if err != nil {
		t.Fatalf("Compose b: %v", err)
	}

	ab, err := Mul(a, b)
	if err != nil {
		t.Fatalf("Mul: %v", err)
	}

	fa, _ := a.Eval(0)
	fb, _ := b.Eval(0)
	fab, err := ab.Eval(0)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}

	for i := range fab {
		if math.Abs(fab[i]-fa[i]*fb[i]) > 1e-14 {
			t.Fatalf("sample %d: product %v, want %v", i, fab[i], fa[i]*fb[i])
		}
	}

	// Union registry keeps both parameter sets.
	names := ab.Binding().Registry().Names()
	if len(names) != 4 {
		t.Fatalf("union registry has %d parameters, want 4", len(names))
	}
}

func TestMulKeepsFactorUpdatesLive(t *testing.T) {
	time := testutil.Linspace(0, 1, 10)

	a, err := Compose(Config{
		Name: "a", Time: time, NChan: 1,
		Registry: stepRegistry(t, 0.05, 0.4),
	}, NewStep(1))
	if err != nil {
		t.Fatalf("Compose a: %v", err)
	}

	b, err := Compose(Config{
		Name: "b", Time: time, NChan: 1,
		Registry: reg(t,
			params.Parameter{Name: "c0", Value: 1, Kind: params.BindFixed},
		),
	}, NewPolynomial(0))
	if err != nil {
		t.Fatalf("Compose b: %v", err)
	}

	ab, err := Mul(a, b)
	if err != nil {
		t.Fatalf("Mul: %v", err)
	}

	// After composition the factors resolve through the union binding, so
	// an update issued on a factor is visible to its own evaluation and to
	// the product.
	if err := a.Update([]float64{0.2}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	fa, err := a.Eval(0)
	if err != nil {
		t.Fatalf("a.Eval: %v", err)
	}

	if got := fa[len(fa)-1]; got != 1.2 {
		t.Fatalf("factor flux after update = %v, want 1.2", got)
	}

	fab, err := ab.Eval(0)
	if err != nil {
		t.Fatalf("ab.Eval: %v", err)
	}

	if got := fab[len(fab)-1]; got != 1.2 {
		t.Fatalf("product flux after factor update = %v, want 1.2", got)
	}
}

func TestUpdateMatchesFreshConstruction(t *testing.T) {
	time := testutil.Linspace(0, 1, 15)

	m, err := Compose(Config{
		Name: "step", Time: time, NChan: 2,
		Registry: stepRegistry(t, 0.05, 0.5),
	}, NewStep(1))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	// Layout: step0, step0_1.
	if err := m.Update([]float64{0.02, 0.08}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	fresh0, err := Compose(Config{
		Name: "fresh", Time: time, NChan: 1,
		Registry: stepRegistry(t, 0.02, 0.5),
	}, NewStep(1))
	if err != nil {
		t.Fatalf("Compose fresh: %v", err)
	}

	fresh1, err := Compose(Config{
		Name: "fresh", Time: time, NChan: 1,
		Registry: stepRegistry(t, 0.08, 0.5),
	}, NewStep(1))
	if err != nil {
		t.Fatalf("Compose fresh: %v", err)
	}

	got0, _ := m.Eval(0)
	got1, _ := m.Eval(1)
	want0, _ := fresh0.Eval(0)
	want1, _ := fresh1.Eval(0)

	testutil.RequireSliceNearlyEqual(t, got0, want0, 0)
	testutil.RequireSliceNearlyEqual(t, got1, want1, 0)
}

func TestTransitDepthAndBaseline(t *testing.T) {
	time := testutil.Linspace(0, 1, 101)

	m, err := Compose(Config{
		Name: "transit", Time: time, NChan: 1,
		Registry: transitRegistry(t),
	}, NewTransit())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	flux, err := m.Eval(0)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}

	// Mid-transit with uniform limb: depth is exactly rp^2.
	mid := flux[50]
	if math.Abs(mid-(1-0.01)) > 1e-12 {
		t.Fatalf("mid-transit flux = %v, want %v", mid, 1-0.01)
	}

	// Far from transit the flux is exactly one.
	if flux[0] != 1 || flux[100] != 1 {
		t.Fatalf("baseline flux = %v, %v, want 1", flux[0], flux[100])
	}

	// Flux never exceeds the baseline or drops below the full depth.
	for i, f := range flux {
		if f > 1 || f < 1-0.01-1e-12 {
			t.Fatalf("flux[%d] = %v outside [%v, 1]", i, f, 1-0.01)
		}
	}
}

func TestTransitNonPhysicalRejectedAtCompose(t *testing.T) {
	time := testutil.Linspace(0, 1, 10)

	bad := transitRegistry(t)
	if err := bad.SetValue("inc", 120); err != nil {
		t.Fatalf("SetValue: %v", err)
	}

	_, err := Compose(Config{
		Name: "transit", Time: time, NChan: 1, Registry: bad,
	}, NewTransit())
	if !errors.Is(err, ErrNonPhysical) {
		t.Fatalf("err = %v, want ErrNonPhysical", err)
	}

	missing := reg(t, params.Parameter{Name: "t0", Value: 0.5})
	_, err = Compose(Config{
		Name: "transit", Time: time, NChan: 1, Registry: missing,
	}, NewTransit())
	if !errors.Is(err, ErrMissingParam) {
		t.Fatalf("err = %v, want ErrMissingParam", err)
	}
}

func TestSysAndPhysEvalSplit(t *testing.T) {
	time := testutil.Linspace(0, 1, 50)

	r := transitRegistry(t)
	r.Merge(stepRegistry(t, 0.05, 0.5))

	m, err := Compose(Config{
		Name: "full", Time: time, NChan: 1, Registry: r,
	}, NewTransit(), NewStep(1))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	sys, err := m.SysEval(0)
	if err != nil {
		t.Fatalf("SysEval: %v", err)
	}

	phys, grid, err := m.PhysEval(0, false)
	if err != nil {
		t.Fatalf("PhysEval: %v", err)
	}

	if len(grid) != len(time) {
		t.Fatalf("PhysEval grid length %d, want %d", len(grid), len(time))
	}

	full, _ := m.Eval(0)
	for i := range full {
		if math.Abs(full[i]-sys[i]*phys[i]) > 1e-14 {
			t.Fatalf("sample %d: sys*phys = %v, want %v", i, sys[i]*phys[i], full[i])
		}
	}

	// The systematics curve must not contain the transit dip.
	for i, v := range sys {
		if v < 1 {
			t.Fatalf("sys[%d] = %v carries the transit", i, v)
		}
	}
}

func TestPhysEvalResampledGrid(t *testing.T) {
	// Deliberately irregular: a gap after the fourth sample.
	time := []float64{0, 0.1, 0.2, 0.3, 0.7, 0.8, 0.9, 1.0}

	m, err := Compose(Config{
		Name: "transit", Time: time, NChan: 1, Registry: transitRegistry(t),
	}, NewTransit())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	flux, grid, err := m.PhysEval(0, true)
	if err != nil {
		t.Fatalf("PhysEval: %v", err)
	}

	// Grid spacing follows the first two samples, endpoint included.
	if grid[0] != 0 || grid[len(grid)-1] != 1 {
		t.Fatalf("grid spans [%v, %v], want [0, 1]", grid[0], grid[len(grid)-1])
	}

	if len(grid) != 11 {
		t.Fatalf("grid has %d points, want 11", len(grid))
	}

	if len(flux) != len(grid) {
		t.Fatalf("flux length %d, grid length %d", len(flux), len(grid))
	}

	// The original axis is restored after resampling.
	if len(m.Time()) != len(time) || m.Time()[4] != 0.7 {
		t.Fatal("time axis not restored after resampled PhysEval")
	}
}

func TestSetupIdempotentAndLikelihood(t *testing.T) {
	time := testutil.Linspace(0, 1, 20)

	r := stepRegistry(t, 0.05, 0.5)
	if err := r.Add(params.Parameter{Name: "scatter_mult", Value: 1, Kind: params.BindShared}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	m, err := Compose(Config{
		Name: "step", Time: time, NChan: 1, Registry: r,
	}, NewStep(1), NewScatter())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if _, err := m.LogLikelihood(); !errors.Is(err, ErrNotSetup) {
		t.Fatalf("pre-setup likelihood: err = %v, want ErrNotSetup", err)
	}

	obs, _ := m.Eval(0)
	unc := make([]float64, len(obs))
	for i := range unc {
		unc[i] = 0.001
	}

	if err := m.Setup(obs, unc); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	ll1, err := m.LogLikelihood()
	if err != nil {
		t.Fatalf("LogLikelihood: %v", err)
	}

	// A perfect prediction leaves only the normalization terms.
	want := float64(len(obs)) * (-0.5*math.Log(2*math.Pi) - math.Log(0.001))
	if math.Abs(ll1-want) > 1e-9 {
		t.Fatalf("LogLikelihood = %v, want %v", ll1, want)
	}

	// A second Setup with different data is a no-op.
	junk := make([]float64, len(obs))
	if err := m.Setup(junk, junk); err != nil {
		t.Fatalf("second Setup: %v", err)
	}

	ll2, err := m.LogLikelihood()
	if err != nil {
		t.Fatalf("LogLikelihood: %v", err)
	}

	if ll2 != ll1 {
		t.Fatalf("likelihood changed after repeated Setup: %v != %v", ll2, ll1)
	}
}

func TestLogPosteriorShortCircuitsPrior(t *testing.T) {
	time := testutil.Linspace(0, 1, 10)

	r := reg(t,
		params.Parameter{
			Name: "step0", Value: 0.05, Kind: params.BindFree,
			Prior: params.PriorUniform, Hyper1: 0, Hyper2: 0.1,
		},
		params.Parameter{Name: "steptime0", Value: 0.5, Kind: params.BindFixed},
	)

	m, err := Compose(Config{
		Name: "step", Time: time, NChan: 1, Registry: r,
	}, NewStep(1))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	obs, _ := m.Eval(0)
	unc := make([]float64, len(obs))
	for i := range unc {
		unc[i] = 0.01
	}

	if err := m.Setup(obs, unc); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	inside, err := m.LogPosterior([]float64{0.05})
	if err != nil {
		t.Fatalf("LogPosterior: %v", err)
	}

	if math.IsInf(inside, 0) || math.IsNaN(inside) {
		t.Fatalf("in-support posterior = %v", inside)
	}

	outside, err := m.LogPosterior([]float64{5})
	if err != nil {
		t.Fatalf("LogPosterior: %v", err)
	}

	if !math.IsInf(outside, -1) {
		t.Fatalf("out-of-support posterior = %v, want -Inf", outside)
	}
}

func TestScatterConfig(t *testing.T) {
	time := testutil.Linspace(0, 1, 10)

	// Neither scatter parameter present.
	_, err := Compose(Config{
		Name: "s", Time: time, NChan: 1,
		Registry: stepRegistry(t, 0.05, 0.5),
	}, NewStep(1), NewScatter())
	if !errors.Is(err, ErrBadConfig) {
		t.Fatalf("missing scatter params: err = %v, want ErrBadConfig", err)
	}

	// scatter_ppm builds an absolute scatter array.
	r := stepRegistry(t, 0.05, 0.5)
	if err := r.Add(params.Parameter{Name: "scatter_ppm", Value: 200, Kind: params.BindShared}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	m, err := Compose(Config{
		Name: "s", Time: time, NChan: 1, Registry: r,
	}, NewStep(1), NewScatter())
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	obs, _ := m.Eval(0)
	unc := make([]float64, len(obs))
	for i := range unc {
		unc[i] = 1
	}

	if err := m.Setup(obs, unc); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	ll, err := m.LogLikelihood()
	if err != nil {
		t.Fatalf("LogLikelihood: %v", err)
	}

	want := float64(len(obs)) * (-0.5*math.Log(2*math.Pi) - math.Log(200e-6))
	if math.Abs(ll-want) > 1e-9 {
		t.Fatalf("LogLikelihood = %v, want %v", ll, want)
	}
}

func TestComposeConfigErrors(t *testing.T) {
	r := stepRegistry(t, 0.05, 0.5)
	time := testutil.Linspace(0, 1, 10)

	for _, tc := range []struct {
		name string
		cfg  Config
	}{
		{"empty time", Config{NChan: 1, Registry: r}},
		{"zero channels", Config{Time: time, Registry: r}},
		{"nil registry", Config{Time: time, NChan: 1}},
	} {
		if _, err := Compose(tc.cfg, NewStep(1)); !errors.Is(err, ErrBadConfig) {
			t.Fatalf("%s: err = %v, want ErrBadConfig", tc.name, err)
		}
	}

	if _, err := Compose(Config{Time: time, NChan: 1, Registry: r}); !errors.Is(err, ErrBadConfig) {
		t.Fatalf("no components: err = %v, want ErrBadConfig", err)
	}
}

func TestNestedComposite(t *testing.T) {
	time := testutil.Linspace(0, 1, 25)

	inner, err := Compose(Config{
		Name: "inner", Time: time, NChan: 1,
		Registry: stepRegistry(t, 0.05, 0.3),
	}, NewStep(1))
	if err != nil {
		t.Fatalf("Compose inner: %v", err)
	}

	outerReg := transitRegistry(t)
	outerReg.Merge(inner.Binding().Registry())

	outer, err := Compose(Config{
		Name: "outer", Time: time, NChan: 1, Registry: outerReg,
	}, NewTransit(), inner)
	if err != nil {
		t.Fatalf("Compose outer: %v", err)
	}

	// The nested composite's systematic part stays out of PhysEval.
	phys, _, err := outer.PhysEval(0, false)
	if err != nil {
		t.Fatalf("PhysEval: %v", err)
	}

	for i, v := range phys {
		if time[i] >= 0.3 && time[i] < 0.4 && v > 1 {
			t.Fatalf("phys[%d] = %v includes the nested step", i, v)
		}
	}

	sys, err := outer.SysEval(0)
	if err != nil {
		t.Fatalf("SysEval: %v", err)
	}

	if sys[24] != 1.05 {
		t.Fatalf("sys[24] = %v, want 1.05 from the nested step", sys[24])
	}
}
