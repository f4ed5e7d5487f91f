package domain

import "fmt"

// RoundKey identifies one of the five fixed rounds of the event.
type RoundKey string

const (
	RoundOpening   RoundKey = "opening"
	RoundLogic     RoundKey = "logic"
	RoundCodeTrace RoundKey = "codetrace"
	RoundDecode    RoundKey = "decode"
	RoundMCQ       RoundKey = "mcq"
)

// FinalRound is the round whose completion finishes the game.
const FinalRound = RoundMCQ

// MCQPinCount is the number of questions pinned for the multiple-choice round.
const MCQPinCount = 3

// Rounds returns all round keys in play order. The set is closed; code that
// inspects or mutates locks should switch exhaustively over these values.
func Rounds() []RoundKey {
	return []RoundKey{RoundOpening, RoundLogic, RoundCodeTrace, RoundDecode, RoundMCQ}
}

// Valid reports whether r is one of the five known rounds.
func (r RoundKey) Valid() bool {
	switch r {
	case RoundOpening, RoundLogic, RoundCodeTrace, RoundDecode, RoundMCQ:
		return true
	}
	return false
}

// LockState is the tri-state status of a round for a team. Unlocked and
// PermanentlyLocked are terminal; a round never leaves either state.
type LockState string

const (
	Locked            LockState = "locked"
	Unlocked          LockState = "unlocked"
	PermanentlyLocked LockState = "permanently_locked"
)

// Variant selects one of the two mutually exclusive code-trace tracks.
type Variant string

const (
	VariantA Variant = "a"
	VariantB Variant = "b"
)

func (v Variant) Valid() bool {
	return v == VariantA || v == VariantB
}

// QuestionType tags a question with the round (and, for code-trace, the
// variant) it belongs to.
type QuestionType string

const (
	TypeOpening    QuestionType = "opening"
	TypeLogic      QuestionType = "logic"
	TypeCodeTraceA QuestionType = "codetrace_a"
	TypeCodeTraceB QuestionType = "codetrace_b"
	TypeDecode     QuestionType = "decode"
	TypeMCQ        QuestionType = "mcq"
)

// QuestionTypeFor maps a round to its question type tag. The code-trace round
// resolves through the variant; all other rounds ignore it.
func QuestionTypeFor(round RoundKey, variant Variant) (QuestionType, error) {
	switch round {
	case RoundOpening:
		return TypeOpening, nil
	case RoundLogic:
		return TypeLogic, nil
	case RoundCodeTrace:
		switch variant {
		case VariantA:
			return TypeCodeTraceA, nil
		case VariantB:
			return TypeCodeTraceB, nil
		default:
			return "", fmt.Errorf("%w: variant must be %q or %q", ErrInvalidInput, VariantA, VariantB)
		}
	case RoundDecode:
		return TypeDecode, nil
	case RoundMCQ:
		return TypeMCQ, nil
	default:
		return "", fmt.Errorf("%w: unknown round %q", ErrInvalidInput, round)
	}
}
