package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestCompatibleFullTable(t *testing.T) {
	// Donor group rows against recipient group columns O, A, B, AB.
	table := map[string][4]bool{
		"O":  {true, true, true, true},
		"A":  {false, true, false, true},
		"B":  {false, false, true, true},
		"AB": {false, false, false, true},
	}
	recipients := []string{"O", "A", "B", "AB"}
	signs := []string{"+", "-"}

	for donorGroup, row := range table {
		for i, recipientGroup := range recipients {
			for _, ds := range signs {
				for _, rs := range signs {
					donor := donorGroup + ds
					recipient := recipientGroup + rs
					assert.Equal(t, row[i], Compatible(donor, recipient),
						"%s -> %s", donor, recipient)
				}
			}
		}
	}
}

func TestCompatibleFailsClosed(t *testing.T) {
	assert.False(t, Compatible("", "A+"))
	assert.False(t, Compatible("C+", "A+"))
	assert.False(t, Compatible("ABO", "AB+"))
}

func TestCompatibleIgnoresRhSign(t *testing.T) {
	assert.True(t, Compatible("O-", "O+"))
	assert.True(t, Compatible("A+", "AB-"))
	assert.False(t, Compatible("AB-", "A+"))
}

// Compatibility must equal: donor is O, or groups are equal, or recipient is
// AB — for every sign combination.
func TestCompatibleProperty(t *testing.T) {
	groups := []string{"O", "A", "B", "AB"}
	signs := []string{"", "+", "-"}

	rapid.Check(t, func(t *rapid.T) {
		dg := rapid.SampledFrom(groups).Draw(t, "donorGroup")
		rg := rapid.SampledFrom(groups).Draw(t, "recipientGroup")
		ds := rapid.SampledFrom(signs).Draw(t, "donorSign")
		rs := rapid.SampledFrom(signs).Draw(t, "recipientSign")

		want := dg == "O" || dg == rg || rg == "AB"
		got := Compatible(dg+ds, rg+rs)
		if got != want {
			t.Fatalf("Compatible(%q, %q) = %v, want %v", dg+ds, rg+rs, got, want)
		}
	})
}
