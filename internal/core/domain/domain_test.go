package domain

import (
	"errors"
	"math"
	"testing"
)

func TestParseBloodType(t *testing.T) {
	for _, bt := range AllTypes() {
		got, err := ParseBloodType(bt.String())
		if err != nil {
			t.Errorf("%s: unexpected error: %v", bt, err)
		}
		if got != bt {
			t.Errorf("expected %s, got %s", bt, got)
		}
	}

	for _, code := range []string{"", "o+", "ab+", "AB", "C+", " O+", "O+,"} {
		if _, err := ParseBloodType(code); !errors.Is(err, ErrUnknownBloodType) {
			t.Errorf("%q: expected ErrUnknownBloodType, got: %v", code, err)
		}
	}
}

func TestBloodTypeString_OutOfRange(t *testing.T) {
	if got := BloodType(9).String(); got != "BloodType(9)" {
		t.Errorf("expected BloodType(9), got %s", got)
	}
	if BloodType(-1).Valid() {
		t.Error("expected -1 to be invalid")
	}
}

func TestFormatLiters(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0.0"},
		{2, "2.0"},
		{38, "38.0"},
		{2.5, "2.5"},
		{0.25, "0.25"},
		{100, "100.0"},
	}
	for _, c := range cases {
		if got := FormatLiters(c.in); got != c.want {
			t.Errorf("FormatLiters(%v): expected %s, got %s", c.in, c.want, got)
		}
	}
}

func TestInventoryTotalAndShare(t *testing.T) {
	if total := SeedInventory.Total(); total != 100 {
		t.Errorf("expected seed total 100, got %v", total)
	}
	if share := SeedInventory.Share(OPositive); math.Abs(share-36) > 1e-9 {
		t.Errorf("expected O+ share 36, got %v", share)
	}

	var empty Inventory
	for _, bt := range AllTypes() {
		if share := empty.Share(bt); share != 0 {
			t.Errorf("%s: expected share 0 for empty inventory, got %v", bt, share)
		}
	}
}

func TestCanDonate(t *testing.T) {
	for _, recipient := range AllTypes() {
		if !CanDonate(ONegative, recipient) {
			t.Errorf("expected O- to donate to %s", recipient)
		}
	}

	cases := []struct {
		donor, recipient BloodType
		want             bool
	}{
		{OPositive, ABPositive, true},
		{OPositive, ONegative, false},
		{APositive, ABPositive, true},
		{APositive, BPositive, false},
		{ABPositive, ABPositive, true},
		{ABPositive, OPositive, false},
		{ABNegative, ABPositive, true},
		{BNegative, ANegative, false},
	}
	for _, c := range cases {
		if got := CanDonate(c.donor, c.recipient); got != c.want {
			t.Errorf("CanDonate(%s, %s): expected %v, got %v", c.donor, c.recipient, c.want, got)
		}
	}
}

func TestCompatibilityIsSymmetric(t *testing.T) {
	for _, donor := range AllTypes() {
		for _, recipient := range AllTypes() {
			receives := CompatibilityOf(recipient).ReceivesFrom
			listed := receives == nil
			for _, r := range receives {
				if r == donor {
					listed = true
				}
			}
			if CanDonate(donor, recipient) != listed {
				t.Errorf("%s -> %s: donor and receiver tables disagree", donor, recipient)
			}
		}
	}
}

func TestDirectionValid(t *testing.T) {
	if !DirectionAdd.Valid() || !DirectionRemove.Valid() {
		t.Error("expected add and remove to be valid")
	}
	if Direction("transfer").Valid() {
		t.Error("expected unknown direction to be invalid")
	}
}
