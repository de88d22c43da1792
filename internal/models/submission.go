package models

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// AnonymousID replaces the user id of submitters who chose anonymity.
const AnonymousID = "anonymous"

// Answer is one question of the fixed question set, resolved to a strict boolean.
type Answer struct {
	Key   string
	Label string
	Value bool
}

// Submission is a normalized survey response, ready for dispatch. Nothing
// mutates it after the normalizer builds it.
type Submission struct {
	ID          uuid.UUID
	SubmittedAt time.Time

	UserID    string
	Anonymous bool
	Flags     *big.Int
	Answers   []Answer // question-set order
	Platforms []string // allow-listed, submitted order, duplicates kept
}

// Identifier is the id persisted with the record.
func (s *Submission) Identifier() string {
	if s.Anonymous {
		return AnonymousID
	}
	return s.UserID
}

// FlagsString renders the flags bitmask as a decimal string.
func (s *Submission) FlagsString() string {
	if s.Flags == nil {
		return "0"
	}
	return s.Flags.String()
}

// AnswerMap returns one entry per question key.
func (s *Submission) AnswerMap() map[string]bool {
	out := make(map[string]bool, len(s.Answers))
	for _, a := range s.Answers {
		out[a.Key] = a.Value
	}
	return out
}
