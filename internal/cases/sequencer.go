// Package cases drives the loot-case opening flow.
//
// Each user runs one state machine at a time: Idle until an open starts,
// Requesting while the server call and the reveal animation run, Revealed
// once the timer elapses, then back to Idle on claim. The server's answer is
// authoritative — the sequencer only orchestrates timing and sanity-checks
// the reveal strip.
package cases

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/gameapi"
	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

const (
	// SequenceLength is how many items the reveal strip carries.
	SequenceLength = 60
	// StopIndex is where the strip stops; the server must place the won
	// item exactly here.
	StopIndex = 30
	// DefaultRevealDelay is how long the strip rolls before the result
	// is shown.
	DefaultRevealDelay = 5 * time.Second
)

var (
	ErrBusy              = errors.New("case opening already in progress")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidMethod     = errors.New("unknown payment method")
	ErrNoOpening         = errors.New("no case opening in progress")
	ErrNotRevealed       = errors.New("reveal timer still running")
	ErrSequenceMismatch  = errors.New("reveal sequence does not contain the won item at the stop index")
)

// Opener is the single upstream call the sequencer makes.
type Opener interface {
	OpenCase(ctx context.Context, caseID, userID int, method gameapi.PaymentMethod) (*gameapi.OpenResult, error)
}

// Phase is the per-user state machine position.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseRequesting Phase = "requesting"
	PhaseRevealed   Phase = "revealed"
)

// Opening is one in-flight or revealed case open.
type Opening struct {
	CaseID   int
	Method   gameapi.PaymentMethod
	Price    int64
	Result   *gameapi.OpenResult
	OpenedAt time.Time
	RevealAt time.Time
}

// State is the snapshot handed to the HTTP layer. The won item stays hidden
// until the reveal timer elapses; the animation strip is available at once so
// the frontend can start rolling.
type State struct {
	Phase          Phase                 `json:"phase"`
	CaseID         int                   `json:"case_id,omitempty"`
	Method         gameapi.PaymentMethod `json:"method,omitempty"`
	Price          int64                 `json:"price,omitempty"`
	AnimationItems []gameapi.CaseItem    `json:"animation_items,omitempty"`
	StopIndex      int                   `json:"stop_index,omitempty"`
	RevealAt       time.Time             `json:"reveal_at,omitempty"`
	WonItem        *gameapi.CaseItem     `json:"won_item,omitempty"`
	InventorySlot  int                   `json:"inventory_slot,omitempty"`
}

// Sequencer runs the per-user case-opening state machines.
type Sequencer struct {
	opener      Opener
	revealDelay time.Duration
	logger      *slog.Logger

	mu     sync.Mutex
	active map[int]*Opening // keyed by user ID
}

// NewSequencer creates a sequencer. A zero revealDelay falls back to
// DefaultRevealDelay; tests pass a tiny delay instead.
func NewSequencer(opener Opener, revealDelay time.Duration, logger *slog.Logger) *Sequencer {
	if revealDelay <= 0 {
		revealDelay = DefaultRevealDelay
	}
	return &Sequencer{
		opener:      opener,
		revealDelay: revealDelay,
		logger:      logger.With("component", "cases"),
		active:      make(map[int]*Opening),
	}
}

// Open starts an opening for the user. The balance check is advisory — the
// server decides for real — but it catches the obvious case without a round
// trip. On any upstream error the machine aborts back to Idle and the
// server's message passes through verbatim.
func (s *Sequencer) Open(ctx context.Context, user model.UserRecord, cs gameapi.Case, method gameapi.PaymentMethod) (*State, error) {
	if !method.Valid() {
		return nil, ErrInvalidMethod
	}

	price := cs.Price(method)
	balance := user.Money
	if method == gameapi.PayDonate {
		balance = user.Donate
	}
	if balance < price {
		return nil, ErrInsufficientFunds
	}

	s.mu.Lock()
	if _, busy := s.active[user.ID]; busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	opening := &Opening{
		CaseID:   cs.ID,
		Method:   method,
		Price:    price,
		OpenedAt: time.Now(),
	}
	s.active[user.ID] = opening
	s.mu.Unlock()

	result, err := s.opener.OpenCase(ctx, cs.ID, user.ID, method)
	if err != nil {
		s.abort(user.ID)
		return nil, err
	}

	if err := validateSequence(result); err != nil {
		s.abort(user.ID)
		s.logger.Error("reveal sequence rejected", "user_id", user.ID, "case_id", cs.ID, "error", err)
		return nil, err
	}

	s.mu.Lock()
	opening.Result = result
	opening.RevealAt = time.Now().Add(s.revealDelay)
	state := s.stateLocked(user.ID)
	s.mu.Unlock()

	s.logger.Info("case opened", "user_id", user.ID, "case_id", cs.ID,
		"method", method, "price", price, "won", result.WonItem.Name)
	return state, nil
}

// State reports the user's current machine position.
func (s *Sequencer) State(userID int) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(userID)
}

// Claim finishes a revealed opening, resetting the machine to Idle. Returns
// the finished opening so the handler can report the won item and slot.
func (s *Sequencer) Claim(userID int) (*Opening, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	opening, ok := s.active[userID]
	if !ok {
		return nil, ErrNoOpening
	}
	if opening.Result == nil || time.Now().Before(opening.RevealAt) {
		return nil, ErrNotRevealed
	}

	delete(s.active, userID)
	return opening, nil
}

// abort drops the user's opening without claiming.
func (s *Sequencer) abort(userID int) {
	s.mu.Lock()
	delete(s.active, userID)
	s.mu.Unlock()
}

func (s *Sequencer) stateLocked(userID int) *State {
	opening, ok := s.active[userID]
	if !ok {
		return &State{Phase: PhaseIdle}
	}

	st := &State{
		Phase:     PhaseRequesting,
		CaseID:    opening.CaseID,
		Method:    opening.Method,
		Price:     opening.Price,
		StopIndex: StopIndex,
	}
	if opening.Result == nil {
		return st
	}

	st.AnimationItems = opening.Result.AnimationItems
	st.RevealAt = opening.RevealAt
	if time.Now().Before(opening.RevealAt) {
		return st
	}

	won := opening.Result.WonItem
	st.Phase = PhaseRevealed
	st.WonItem = &won
	st.InventorySlot = opening.Result.InventorySlot
	return st
}

// validateSequence refuses a reveal strip that would lie to the player: the
// strip must be full length and carry the won item at the stop position.
func validateSequence(result *gameapi.OpenResult) error {
	if len(result.AnimationItems) != SequenceLength {
		return ErrSequenceMismatch
	}
	if !result.AnimationItems[StopIndex].Same(result.WonItem) {
		return ErrSequenceMismatch
	}
	return nil
}

// StopOffset computes the horizontal translation, in pixels, that parks the
// stop-index item under the center marker. The old page hardcoded this for
// one viewport; deriving it from the geometry keeps any viewport honest.
func StopOffset(viewportWidth, itemWidth, itemGap int) int {
	stride := itemWidth + itemGap
	return viewportWidth/2 - StopIndex*stride - itemWidth/2
}
