package sim

import "testing"

func TestUnitIsPureAndInRange(t *testing.T) {
	for i := 0; i < 10000; i++ {
		a := unit(42, uint64(i), saltVariance)
		b := unit(42, uint64(i), saltVariance)
		if a != b {
			t.Fatalf("unit not pure for word %d: %v vs %v", i, a, b)
		}
		if a < 0 || a >= 1 {
			t.Fatalf("unit out of [0,1) for word %d: %v", i, a)
		}
	}
}

func TestUnitSaltsDecorrelate(t *testing.T) {
	same := 0
	for i := 0; i < 1000; i++ {
		if unit(42, uint64(i), saltVariance) == unit(42, uint64(i), saltInterval) {
			same++
		}
	}
	if same > 0 {
		t.Fatalf("expected salts to produce distinct streams, %d collisions", same)
	}
}

func TestRollBaseSpeedBounds(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		for idx := 0; idx < 8; idx++ {
			got := RollBaseSpeed(seed, idx)
			if got < BaseSpeedMin || got >= BaseSpeedMax {
				t.Fatalf("base speed out of range for seed=%d idx=%d: %v", seed, idx, got)
			}
			if again := RollBaseSpeed(seed, idx); again != got {
				t.Fatalf("base speed not stable for seed=%d idx=%d", seed, idx)
			}
		}
	}
}
