package prescription_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	rx "github.com/warp/optical-engine/prescription"
)

// =============================================================================
// NEAR VISION
// =============================================================================

func TestNearVisionSph(t *testing.T) {
	assert.Equal(t, "0.00", rx.NearVisionSph("-2.00", "+2.00"))
	assert.Equal(t, "+2.50", rx.NearVisionSph("+1.50", "+1.00"))
	assert.Equal(t, "-0.75", rx.NearVisionSph("-2.25", "1.50"))
	assert.Equal(t, "", rx.NearVisionSph("", "+1.00"))
	assert.Equal(t, "", rx.NearVisionSph("-1.00", "x"))
}

func TestDeriveNearVision(t *testing.T) {
	previous := rx.EyeMeasurement{Sph: "9", Vn: "N8"}

	t.Run("full prescription copies cylinder and axis", func(t *testing.T) {
		dv := rx.EyeMeasurement{Sph: "-1.00", Cyl: "-0.50", Ax: "90", Add: "2.00"}
		nv, ok := rx.DeriveNearVision(dv, previous)
		require.True(t, ok)
		assert.Equal(t, rx.EyeMeasurement{Sph: "+1.00", Cyl: "-0.50", Ax: "90", Vn: "N"}, nv)
	})

	t.Run("no cylinder clears cylinder and axis", func(t *testing.T) {
		dv := rx.EyeMeasurement{Sph: "-2.00", Cyl: "0", Add: "2.00"}
		nv, ok := rx.DeriveNearVision(dv, previous)
		require.True(t, ok)
		assert.Equal(t, rx.EyeMeasurement{Sph: "0.00", Vn: "N"}, nv)
	})

	t.Run("cylinder without axis copies cylinder only", func(t *testing.T) {
		dv := rx.EyeMeasurement{Sph: "+1.00", Cyl: "-1.00", Add: "1.50"}
		nv, ok := rx.DeriveNearVision(dv, previous)
		require.True(t, ok)
		assert.Equal(t, rx.EyeMeasurement{Sph: "+2.50", Cyl: "-1.00", Vn: "N"}, nv)
	})

	t.Run("blank add leaves near row alone", func(t *testing.T) {
		nv, ok := rx.DeriveNearVision(rx.EyeMeasurement{Sph: "-1.00"}, previous)
		assert.False(t, ok)
		assert.Equal(t, previous, nv)
	})
}

// =============================================================================
// SPHERICAL EQUIVALENT
// =============================================================================

func TestSphericalEquivalent(t *testing.T) {
	se := rx.SphericalEquivalent("-1.00", "-0.50")
	require.True(t, se.Valid)
	assert.Equal(t, "-1.25", se.Decimal.String())

	se = rx.SphericalEquivalent("+2.25", "-1.75")
	require.True(t, se.Valid)
	assert.Equal(t, "1.375", se.Decimal.String())

	assert.False(t, rx.SphericalEquivalent("", "-0.50").Valid)
	assert.False(t, rx.SphericalEquivalent("-1.00", "abc").Valid)
}

// =============================================================================
// PUPILLARY DISTANCE
// =============================================================================

func TestTotalPD(t *testing.T) {
	assert.Equal(t, "62.0", rx.TotalPD("30.0", "32.0"))
	assert.Equal(t, "63.5", rx.TotalPD("31.5", "32"))
	assert.Equal(t, "", rx.TotalPD("10", "32"), "RPD below range floor")
	assert.Equal(t, "", rx.TotalPD("30", "41"), "LPD above range ceiling")
	assert.Equal(t, "", rx.TotalPD("30", ""))
}

func TestLiveIPD(t *testing.T) {
	assert.Equal(t, "62.0", rx.LiveIPD("30", "32"))
	assert.Equal(t, "42.0", rx.LiveIPD("10", "32"), "no range check")
	assert.Equal(t, "31.0", rx.LiveIPD("31", ""))
	assert.Equal(t, "", rx.LiveIPD("", ""))
	assert.Equal(t, "", rx.LiveIPD("x", "y"))
}

func TestIPD_FollowsPolicy(t *testing.T) {
	tables := rx.DefaultTables()
	assert.Equal(t, "42.0", tables.IPD("10", "32"))

	tables.IPDPolicy = rx.IPDStrict
	assert.Equal(t, "", tables.IPD("10", "32"))
	assert.Equal(t, "62.0", tables.IPD("30", "32"))
}

func TestPDWarnings(t *testing.T) {
	tables := rx.DefaultTables()
	assert.Empty(t, tables.PDWarnings("30", "32"))

	warnings := tables.PDWarnings("22", "")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "RPD 22.0 mm")
}

// =============================================================================
// SPECIAL CASES
// =============================================================================

func TestHandleSpecialCases(t *testing.T) {
	// GIVEN: zero cylinder with a leftover axis and an ADD above range
	m := rx.EyeMeasurement{Sph: "-1.00", Cyl: "0", Ax: "90", Add: "5"}

	// WHEN
	got := rx.HandleSpecialCases(m)

	// THEN
	assert.Equal(t, "", got.Ax)
	assert.Equal(t, "+4.00", got.Add)
	require.True(t, got.SphericalEquivalent.Valid)
	assert.Equal(t, "-1", got.SphericalEquivalent.Decimal.String())

	// Blank cylinder also clears the axis; SE needs both values
	got = rx.HandleSpecialCases(rx.EyeMeasurement{Sph: "-1.00", Ax: "45"})
	assert.Equal(t, "", got.Ax)
	assert.False(t, got.SphericalEquivalent.Valid)

	// A set cylinder keeps its axis
	got = rx.HandleSpecialCases(rx.EyeMeasurement{Sph: "-1.00", Cyl: "-0.50", Ax: "45"})
	assert.Equal(t, "45", got.Ax)
	assert.Equal(t, "-1.25", got.SphericalEquivalent.Decimal.String())
}

// =============================================================================
// HIGH PRESCRIPTION
// =============================================================================

func TestCheckHighPrescription(t *testing.T) {
	high := rx.CheckHighPrescription("-25", "0")
	assert.True(t, high.IsHigh)
	require.Len(t, high.Warnings, 1)
	assert.Contains(t, high.Warnings[0], "spherical")
	assert.Contains(t, high.Warnings[0], "-25.00D")

	low := rx.CheckHighPrescription("-2", "0")
	assert.False(t, low.IsHigh)
	assert.Empty(t, low.Warnings)

	both := rx.CheckHighPrescription("+21", "-7")
	assert.Len(t, both.Warnings, 2)

	// Unparseable values are skipped
	assert.Empty(t, rx.CheckHighPrescription("x", "").Warnings)
}
