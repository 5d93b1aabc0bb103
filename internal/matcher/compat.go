package matcher

import "strings"

// ABOGroup strips the Rh sign from a blood type and reports whether the
// remainder is a known ABO group.
func ABOGroup(bloodType string) (string, bool) {
	group := strings.TrimRight(strings.TrimSpace(bloodType), "+-")
	switch group {
	case "O", "A", "B", "AB":
		return group, true
	}
	return "", false
}

// Compatible reports whether a donor blood type may give to a recipient blood
// type. Only the ABO group matters: O gives to everyone, A to A and AB, B to
// B and AB, AB only to AB. An unknown donor group fails closed.
func Compatible(donor, recipient string) bool {
	donorGroup, ok := ABOGroup(donor)
	if !ok {
		return false
	}
	recipientGroup, _ := ABOGroup(recipient)
	switch donorGroup {
	case "O":
		return true
	case "A":
		return recipientGroup == "A" || recipientGroup == "AB"
	case "B":
		return recipientGroup == "B" || recipientGroup == "AB"
	case "AB":
		return recipientGroup == "AB"
	}
	return false
}
