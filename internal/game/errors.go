package game

import (
	"errors"
	"fmt"
)

// Kind groups rejections by how the caller should present them.
type Kind string

const (
	KindValidation Kind = "validation" // malformed input
	KindNotFound   Kind = "not_found"  // no matching dictionary noun
	KindConstraint Kind = "constraint" // valid noun that breaks a game rule
	KindState      Kind = "state"      // game cannot take input right now
)

// Reason is the specific rule a submission failed.
type Reason string

const (
	ReasonNotJapanese       Reason = "not_japanese"
	ReasonBadLength         Reason = "bad_length"
	ReasonNotKanji          Reason = "not_kanji"
	ReasonNotFound          Reason = "not_found"
	ReasonStartKanaMismatch Reason = "start_kana_mismatch"
	ReasonEndKanaMismatch   Reason = "end_kana_mismatch"
	ReasonAlreadyUsed       Reason = "already_used"
	ReasonAlreadyGuessed    Reason = "already_guessed"
	ReasonBusy              Reason = "busy"
	ReasonGameOver          Reason = "game_over"
	ReasonNotOwner          Reason = "not_owner"
)

var reasonKinds = map[Reason]Kind{
	ReasonNotJapanese:       KindValidation,
	ReasonBadLength:         KindValidation,
	ReasonNotKanji:          KindValidation,
	ReasonNotFound:          KindNotFound,
	ReasonStartKanaMismatch: KindConstraint,
	ReasonEndKanaMismatch:   KindConstraint,
	ReasonAlreadyUsed:       KindConstraint,
	ReasonAlreadyGuessed:    KindConstraint,
	ReasonBusy:              KindState,
	ReasonGameOver:          KindState,
	ReasonNotOwner:          KindState,
}

// RejectError reports a submission that left the game unchanged.
type RejectError struct {
	Kind    Kind
	Reason  Reason
	Message string
	Err     error // underlying cause, e.g. an upstream lookup failure
}

func (e *RejectError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *RejectError) Unwrap() error { return e.Err }

func reject(r Reason, msg string, cause error) *RejectError {
	return &RejectError{Kind: reasonKinds[r], Reason: r, Message: msg, Err: cause}
}

// AsReject extracts a *RejectError from err.
func AsReject(err error) (*RejectError, bool) {
	var re *RejectError
	ok := errors.As(err, &re)
	return re, ok
}

// IsReason reports whether err is a rejection for reason r.
func IsReason(err error, r Reason) bool {
	re, ok := AsReject(err)
	return ok && re.Reason == r
}

// IsKind reports whether err is a rejection of kind k.
func IsKind(err error, k Kind) bool {
	re, ok := AsReject(err)
	return ok && re.Kind == k
}
