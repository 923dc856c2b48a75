package rules

import (
	"errors"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Side identifies one of the two player roles in a match.
type Side string

const (
	SideWhite Side = "white"
	SideBlack Side = "black"
)

func (s Side) Opposite() Side {
	if s == SideWhite {
		return SideBlack
	}
	return SideWhite
}

// Terminal classifies a finished position.
type Terminal string

const (
	TerminalNone         Terminal = ""
	TerminalCheckmate    Terminal = "checkmate"
	TerminalStalemate    Terminal = "stalemate"
	TerminalRepetition   Terminal = "repetition"
	TerminalInsufficient Terminal = "insufficient_material"
	TerminalFiftyMove    Terminal = "fifty_move"
	TerminalOtherDraw    Terminal = "draw"
)

// IsDraw reports whether the terminal state has no winner.
func (t Terminal) IsDraw() bool {
	switch t {
	case TerminalStalemate, TerminalRepetition, TerminalInsufficient, TerminalFiftyMove, TerminalOtherDraw:
		return true
	}
	return false
}

var ErrIllegalMove = errors.New("illegal move")

// Position is a snapshot of the full game state (board, side to move, rules
// history needed for repetition and fifty-move accounting). Apply never
// mutates its receiver; an accepted move yields a fresh Position.
type Position struct {
	game *nchess.Game
}

// Initial returns the standard starting position.
func Initial() Position {
	return Position{game: nchess.NewGame()}
}

func (p Position) FEN() string {
	if p.game == nil {
		return ""
	}
	return p.game.FEN()
}

func (p Position) Turn() Side {
	if p.game == nil {
		return SideWhite
	}
	if p.game.Position().Turn() == nchess.Black {
		return SideBlack
	}
	return SideWhite
}

// Plies returns the number of half-moves applied so far.
func (p Position) Plies() int {
	if p.game == nil {
		return 0
	}
	return len(p.game.Moves())
}

// Move is the engine's report of an accepted move.
type Move struct {
	SAN      string
	UCI      string
	From     string
	To       string
	Captured string // piece letter ("p", "n", "b", "r", "q"), empty when no capture
	Check    bool   // the move gives check
}

// Engine validates and applies moves. Stateless; safe for concurrent use on
// distinct positions.
type Engine struct{}

func NewEngine() Engine { return Engine{} }

// Apply validates moveSpec (SAN preferred, UCI fallback) against p and returns
// the resulting position. p is left untouched on every path. Threefold
// repetition and the fifty-move rule are claimed automatically so the
// resulting position reports them as terminal.
func (Engine) Apply(p Position, moveSpec string) (Position, Move, error) {
	if p.game == nil {
		return p, Move{}, ErrIllegalMove
	}
	text := strings.TrimSpace(moveSpec)
	if text == "" {
		return p, Move{}, ErrIllegalMove
	}

	clone := p.game.Clone()
	pos := clone.Position()

	notationSAN := nchess.AlgebraicNotation{}
	notationUCI := nchess.UCINotation{}
	mv, err := notationSAN.Decode(pos, text)
	if err != nil {
		mv, err = notationUCI.Decode(pos, strings.ToLower(text))
		if err != nil {
			return p, Move{}, ErrIllegalMove
		}
	}

	captured := capturedLetter(pos, mv)
	if err := clone.Move(mv, nil); err != nil {
		return p, Move{}, ErrIllegalMove
	}

	// Auto-claim draws the original rules treat as immediate.
	if clone.Outcome() == nchess.NoOutcome {
		for _, m := range clone.EligibleDraws() {
			if m == nchess.ThreefoldRepetition || m == nchess.FiftyMoveRule {
				_ = clone.Draw(m)
				break
			}
		}
	}

	out := Move{
		SAN:      notationSAN.Encode(pos, mv),
		UCI:      strings.ToLower(notationUCI.Encode(pos, mv)),
		From:     mv.S1().String(),
		To:       mv.S2().String(),
		Captured: captured,
		Check:    mv.HasTag(nchess.Check),
	}
	return Position{game: clone}, out, nil
}

// TerminalStatus classifies p; TerminalNone while the game is still live.
func (Engine) TerminalStatus(p Position) Terminal {
	if p.game == nil || p.game.Outcome() == nchess.NoOutcome {
		return TerminalNone
	}
	switch p.game.Method() {
	case nchess.Checkmate:
		return TerminalCheckmate
	case nchess.Stalemate:
		return TerminalStalemate
	case nchess.ThreefoldRepetition, nchess.FivefoldRepetition:
		return TerminalRepetition
	case nchess.InsufficientMaterial:
		return TerminalInsufficient
	case nchess.FiftyMoveRule, nchess.SeventyFiveMoveRule:
		return TerminalFiftyMove
	default:
		return TerminalOtherDraw
	}
}

// IsCheck reports whether the side to move in p is currently in check.
func (Engine) IsCheck(p Position) bool {
	if p.game == nil {
		return false
	}
	moves := p.game.Moves()
	if len(moves) == 0 {
		return false
	}
	return moves[len(moves)-1].HasTag(nchess.Check)
}

// MovesSAN re-encodes the applied move list for display and archival.
func (p Position) MovesSAN() []string {
	if p.game == nil {
		return nil
	}
	notation := nchess.AlgebraicNotation{}
	moves := p.game.Moves()
	positions := p.game.Positions()
	out := make([]string, 0, len(moves))
	for i, mv := range moves {
		if i >= len(positions) {
			break
		}
		out = append(out, notation.Encode(positions[i], mv))
	}
	return out
}

func capturedLetter(pos *nchess.Position, mv *nchess.Move) string {
	if !mv.HasTag(nchess.Capture) && !mv.HasTag(nchess.EnPassant) {
		return ""
	}
	captureSquare := mv.S2()
	if mv.HasTag(nchess.EnPassant) {
		file := mv.S2().File()
		rank := mv.S2().Rank()
		if pos.Turn() == nchess.White {
			captureSquare = nchess.NewSquare(file, rank-1)
		} else {
			captureSquare = nchess.NewSquare(file, rank+1)
		}
	}
	piece := pos.Board().Piece(captureSquare)
	if piece == nchess.NoPiece {
		return ""
	}
	switch piece.Type() {
	case nchess.Pawn:
		return "p"
	case nchess.Knight:
		return "n"
	case nchess.Bishop:
		return "b"
	case nchess.Rook:
		return "r"
	case nchess.Queen:
		return "q"
	case nchess.King:
		return "k"
	default:
		return ""
	}
}
