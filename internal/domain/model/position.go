// Package model contains the lineup domain types passed between layers.
package model

import (
	"fmt"
	"strings"
)

// Position is one of the ten defensive slots.
type Position string

// Defensive positions in canonical order.
const (
	FirstBase   Position = "1B"
	SecondBase  Position = "2B"
	ThirdBase   Position = "3B"
	Shortstop   Position = "SS"
	Pitcher     Position = "P"
	Catcher     Position = "C"
	LeftField   Position = "LF"
	LeftCenter  Position = "LC"
	RightCenter Position = "RC"
	RightField  Position = "RF"
)

// NumPositions is the number of fielders per inning.
const NumPositions = 10

// Positions lists every position in canonical order.
var Positions = [NumPositions]Position{
	FirstBase, SecondBase, ThirdBase, Shortstop, Pitcher,
	Catcher, LeftField, LeftCenter, RightCenter, RightField,
}

var positionAliases = map[string]Position{
	"LCF": LeftCenter,
	"RCF": RightCenter,
}

// ParsePosition accepts canonical labels and the LCF/RCF aliases, any case.
func ParsePosition(s string) (Position, error) {
	label := strings.ToUpper(strings.TrimSpace(s))
	if p, ok := positionAliases[label]; ok {
		return p, nil
	}
	for _, p := range Positions {
		if string(p) == label {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown position %q", s)
}

// Index returns the canonical index of p, or -1.
func (p Position) Index() int {
	for i, q := range Positions {
		if q == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is a known position.
func (p Position) Valid() bool { return p.Index() >= 0 }

func (p Position) String() string { return string(p) }
