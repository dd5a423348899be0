/*
 * FTN77 - Statement classifier and program unit state machine
 *
 * Copyright 2025, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package parser

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/rcornwell/ftn77/ftn/cal"
	"github.com/rcornwell/ftn77/ftn/expr"
	"github.com/rcornwell/ftn77/ftn/listing"
	scan "github.com/rcornwell/ftn77/ftn/scanner"
	"github.com/rcornwell/ftn77/ftn/symbols"
	"github.com/rcornwell/ftn77/ftn/types"
)

// Program unit states, traversed strictly forward.
const (
	StProgUnit = iota
	StImplicit
	StSpecification
	StDefinition
	StExecutable
)

// Statement arrived in a state that cannot accept it.
var ErrMisplacedStatement = errors.New("misplaced statement")

// Open DO loop.
type doEntry struct {
	term  int // Terminating statement label.
	back  string
	end   string
	ref   cal.Ref
	float bool
}

// Open block IF level: the label ending the current block and the
// label past the whole construct.
type ifEntry struct {
	blockEnd string
	ifEnd    string
}

// Deferred DATA initialisation: a word image at a static or common
// offset.
type dataInit struct {
	sym    *symbols.Symbol
	offset int // Words from the symbol's base.
	word   uint64
}

// Adjustable array with the argument slot its dope vector loads the
// base address from.
type adjSlot struct {
	sym       *symbols.Symbol
	argOffset int
}

// Compiler context for one source file. Everything per program unit
// resets at END; the symbol table's common descriptors and the
// label sequence persist.
type Parser struct {
	src  *scan.Scanner
	tbl  *symbols.Table
	emit *cal.Emitter
	ev   *expr.Evaluator
	lst  *listing.Listing
	log  *slog.Logger

	state     int
	unitSym   *symbols.Symbol
	unitClass symbols.Class
	mainProg  bool

	staticLocals bool
	echoSource   bool

	doStack []doEntry
	ifStack []ifEntry

	adjBounds map[*symbols.Symbol][][2]*scan.Token
	adjSlots  []adjSlot
	inits     []dataInit
	saveAll   bool

	staticImage  map[int]uint64
	commonImages map[string]map[int]uint64

	frameSize  int
	staticSize int

	errs    listing.ErrList // Current unit, reported at END.
	allErrs listing.ErrList // Whole file, for the final summary.
	curStmt *scan.Stmt
}

// Options for a compilation.
type Options struct {
	StaticLocals bool
	EchoSource   bool
}

func New(src *scan.Scanner, emit *cal.Emitter, lst *listing.Listing, log *slog.Logger, opt Options) *Parser {
	return &Parser{
		src:          src,
		tbl:          emit.Table(),
		emit:         emit,
		ev:           expr.New(emit),
		lst:          lst,
		log:          log,
		staticLocals: opt.StaticLocals,
		echoSource:   opt.EchoSource,
		adjBounds:    map[*symbols.Symbol][][2]*scan.Token{},
	}
}

// Errors returns the error and warning counts over the whole file.
func (p *Parser) Errors() (int, int) {
	return p.allErrs.Counts()
}

// diag appends to the unit's diagnostic list and annotates the
// listing at the current statement.
func (p *Parser) diag(msg string, warn bool) {
	line := 0
	if p.curStmt != nil {
		line = p.curStmt.Line
	}
	entry := listing.ErrEntry{Line: line, Msg: msg, Warn: warn}
	p.errs = append(p.errs, entry)
	p.allErrs = append(p.allErrs, entry)
	if warn {
		p.lst.Warning(msg)
	} else {
		p.lst.Error(msg)
	}
}

// error records a diagnostic against the current statement and keeps
// compiling.
func (p *Parser) error(err error) {
	p.diag(err.Error(), false)
	p.log.Debug("error", "msg", err.Error())
	p.ev.Reset()
}

func (p *Parser) warn(msg string) {
	p.diag(msg, true)
}

// Compile processes every program unit in the source stream.
func (p *Parser) Compile() error {
	for {
		stmt, err := p.src.Next()
		if err != nil {
			p.error(err)
			break
		}
		if stmt == nil {
			break
		}
		p.curStmt = stmt
		p.lst.Echo(stmt)
		if p.echoSource {
			for _, card := range stmt.Cards {
				p.emit.Comment(card)
			}
		}
		p.statement(stmt)
	}
	if p.state != StProgUnit {
		p.error(errors.New("missing END statement"))
		p.endUnit()
	}
	errs, warns := p.allErrs.Counts()
	p.lst.Summary(errs, warns)
	if errs > 0 {
		return p.allErrs
	}
	return nil
}

// statement classifies and dispatches one statement.
func (p *Parser) statement(stmt *scan.Stmt) {
	if stmt.Text == "" && stmt.Label == 0 {
		return
	}

	// A labelled executable statement defines its line label before
	// the statement's code. FORMAT labels stay data side.
	if stmt.Label != 0 && !strings.HasPrefix(stmt.Text, "FORMAT(") {
		p.advance(StExecutable)
		lbl, err := p.tbl.DefineLabel(stmt.Label)
		if err != nil {
			p.error(err)
			return
		}
		p.emit.Define(lbl.CalLabel)
	}

	p.dispatch(stmt.Text)

	// Shared DO termination: close every loop ending on this label.
	if stmt.Label != 0 {
		p.closeLoops(stmt.Label)
	}
}

// dispatch routes statement text to its handler.
func (p *Parser) dispatch(text string) {
	if text == "" {
		return
	}
	cur := scan.NewCursor(text)

	if isAssignment(text) {
		p.handleAssignLike(cur)
		return
	}

	kw, rest := matchKeyword(text)
	if kw == nil {
		p.error(errors.Wrapf(ErrMisplacedStatement, "unrecognized statement %q", clip(text)))
		return
	}

	// A type keyword opening a unit can be a typed FUNCTION header.
	if p.state == StProgUnit && isTypeKeyword(kw.name) && strings.Contains(rest, "FUNCTION") {
		p.handleTypedFunction(kw.name, scan.NewCursor(rest))
		return
	}

	if p.state > kw.maxState {
		p.error(errors.Wrapf(ErrMisplacedStatement, "%s statement out of order", kw.name))
		return
	}
	p.advance(kw.minState)
	kw.handler(p, scan.NewCursor(rest))
}

// advance runs the state machine forward to the target state,
// firing the transition actions along the way.
func (p *Parser) advance(target int) {
	for p.state < target {
		switch p.state {
		case StProgUnit:
			// Unnamed main program.
			if p.unitSym == nil {
				p.startUnit("MAIN", symbols.ClassProgram)
			}
		case StImplicit:
			// Implicit typing is now frozen.
		case StSpecification:
			p.runLayout()
		case StDefinition:
		}
		p.state++
	}
}

// Keyword table. Longest match first; minState is the state the
// statement moves the unit into, maxState the last state that still
// accepts it.
type keyword struct {
	name     string
	minState int
	maxState int
	handler  func(*Parser, *scan.Cursor)
}

var keywords []keyword

func init() {
	keywords = []keyword{
		{"DOUBLEPRECISION", StSpecification, StSpecification, (*Parser).handleTypeDouble},
		{"IMPLICITNONE", StImplicit, StImplicit, (*Parser).handleImplicitNone},
		{"EQUIVALENCE", StSpecification, StSpecification, (*Parser).handleEquivalence},
		{"SUBROUTINE", StProgUnit, StProgUnit, (*Parser).handleSubroutine},
		{"BLOCKDATA", StProgUnit, StProgUnit, (*Parser).handleBlockData},
		{"CHARACTER", StSpecification, StSpecification, (*Parser).handleTypeCharacter},
		{"DIMENSION", StSpecification, StSpecification, (*Parser).handleDimension},
		{"PARAMETER", StSpecification, StSpecification, (*Parser).handleParameter},
		{"INTRINSIC", StSpecification, StSpecification, (*Parser).handleIntrinsic},
		{"FUNCTION", StProgUnit, StProgUnit, (*Parser).handleFunction},
		{"EXTERNAL", StSpecification, StSpecification, (*Parser).handleExternal},
		{"IMPLICIT", StImplicit, StImplicit, (*Parser).handleImplicit},
		{"CONTINUE", StExecutable, StExecutable, (*Parser).handleContinue},
		{"PROGRAM", StProgUnit, StProgUnit, (*Parser).handleProgram},
		{"INTEGER", StSpecification, StSpecification, (*Parser).handleTypeInteger},
		{"COMPLEX", StSpecification, StSpecification, (*Parser).handleTypeComplex},
		{"LOGICAL", StSpecification, StSpecification, (*Parser).handleTypeLogical},
		{"POINTER", StSpecification, StSpecification, (*Parser).handlePointer},
		{"ELSEIF", StExecutable, StExecutable, (*Parser).handleElseIf},
		{"ASSIGN", StExecutable, StExecutable, (*Parser).handleAssign},
		{"RETURN", StExecutable, StExecutable, (*Parser).handleReturn},
		{"FORMAT", StImplicit, StExecutable, (*Parser).handleFormat},
		{"COMMON", StSpecification, StSpecification, (*Parser).handleCommon},
		{"ENDIF", StExecutable, StExecutable, (*Parser).handleEndIf},
		{"ENTRY", StImplicit, StExecutable, (*Parser).handleEntry},
		{"WRITE", StExecutable, StExecutable, (*Parser).handleWrite},
		{"PRINT", StExecutable, StExecutable, (*Parser).handlePrint},
		{"PAUSE", StExecutable, StExecutable, (*Parser).handlePause},
		{"READ", StExecutable, StExecutable, (*Parser).handleRead},
		{"CALL", StExecutable, StExecutable, (*Parser).handleCall},
		{"GOTO", StExecutable, StExecutable, (*Parser).handleGoto},
		{"STOP", StExecutable, StExecutable, (*Parser).handleStop},
		{"SAVE", StSpecification, StSpecification, (*Parser).handleSave},
		{"DATA", StSpecification, StSpecification, (*Parser).handleData},
		{"ELSE", StExecutable, StExecutable, (*Parser).handleElse},
		{"REAL", StSpecification, StSpecification, (*Parser).handleTypeReal},
		{"END", StProgUnit, StExecutable, (*Parser).handleEnd},
		{"IF", StExecutable, StExecutable, (*Parser).handleIf},
		{"DO", StExecutable, StExecutable, (*Parser).handleDo},
	}
}

// matchKeyword finds the first keyword prefixing the text.
func matchKeyword(text string) (*keyword, string) {
	for i := range keywords {
		kw := &keywords[i]
		if strings.HasPrefix(text, kw.name) {
			return kw, text[len(kw.name):]
		}
	}
	return nil, ""
}

// isAssignment detects the classic FORTRAN ambiguity: a statement is
// an assignment (or statement function definition) when an '=' at
// paren depth zero follows a plain variable reference and no depth
// zero comma comes after it.
func isAssignment(text string) bool {
	depth := 0
	eq := -1
	for i := 0; i < len(text); i++ {
		by := text[i]
		if by == '\'' {
			// Skip the character literal.
			for i++; i < len(text); i++ {
				if text[i] == '\'' {
					break
				}
			}
			continue
		}
		switch by {
		case '(':
			depth++
		case ')':
			depth--
		case '=':
			if depth == 0 && eq < 0 {
				eq = i
			}
		case ',':
			if depth == 0 && eq >= 0 {
				return false
			}
		}
	}
	if eq <= 0 {
		return false
	}
	return isVarRef(text[:eq])
}

// isVarRef accepts IDENT, IDENT(...), or IDENT(...)(...) shapes.
func isVarRef(text string) bool {
	i := 0
	if i >= len(text) || !unicode.IsLetter(rune(text[i])) {
		return false
	}
	for i < len(text) && (unicode.IsLetter(rune(text[i])) || unicode.IsDigit(rune(text[i]))) {
		i++
	}
	for i < len(text) {
		if text[i] != '(' {
			return false
		}
		depth := 0
		for ; i < len(text); i++ {
			if text[i] == '(' {
				depth++
			}
			if text[i] == ')' {
				depth--
				if depth == 0 {
					i++
					break
				}
			}
		}
		if depth != 0 {
			return false
		}
	}
	return true
}

func clip(text string) string {
	if len(text) > 24 {
		return text[:24] + "..."
	}
	return text
}

// startUnit opens a program unit: scope, entry code, register state.
func (p *Parser) startUnit(name string, class symbols.Class) {
	p.tbl.SetQualifier(name)
	p.tbl.ResetCommons()
	p.unitSym = p.tbl.Register(name, class)
	p.unitClass = class
	p.mainProg = class == symbols.ClassProgram
	p.emit.S.Reset()
	p.emit.A.Reset()
	p.emit.Ident(name)
	if class != symbols.ClassBlockData {
		p.emit.Prolog(name, p.mainProg)
	}
	p.log.Debug("unit", "name", name)
}

// runLayout fires once on the specification to definition edge:
// storage classes settle, the three layout passes run, and the
// adjustable array dope vectors are initialised.
func (p *Parser) runLayout() {
	// Locals forced static by SAVE or the static locals option, and
	// default types for anything still untyped.
	p.tbl.Walk(func(sym *symbols.Symbol) {
		if sym.Type.Base == types.Undefined && sym.Class.IsVariable() {
			sym.Type.Base = p.tbl.ImplicitType(sym.Name)
			sym.SetSize()
		}
		if sym.Class == symbols.ClassAuto && (sym.Saved || p.staticLocals || p.saveAll) {
			sym.Class = symbols.ClassStatic
		}
	})
	p.tbl.AutoStatic = p.staticLocals || p.saveAll

	if err := p.tbl.LayoutCommon(); err != nil {
		p.error(err)
	}
	size, err := p.tbl.LayoutStatic()
	if err != nil {
		p.error(err)
	}
	p.staticSize = size
	frame, err := p.tbl.LayoutAuto()
	if err != nil {
		p.error(err)
	}
	p.frameSize = frame

	p.emitDopeInit()
	p.emitDataInits()
}

// closeLoops unwinds DO loops terminating on a statement label.
func (p *Parser) closeLoops(label int) {
	for len(p.doStack) > 0 {
		top := p.doStack[len(p.doStack)-1]
		if top.term != label {
			break
		}
		p.doStack = p.doStack[:len(p.doStack)-1]
		if err := p.emit.DoIncr(top.back, top.end, top.float); err != nil {
			p.error(err)
		}
		p.emit.Define(top.end)
		p.emit.DoDrop()
	}
}

// endUnit closes the current program unit.
func (p *Parser) endUnit() {
	p.advance(StExecutable)

	if len(p.doStack) > 0 {
		p.error(errors.Errorf("%d unterminated DO loops", len(p.doStack)))
	}
	if len(p.ifStack) > 0 {
		p.error(errors.Errorf("%d unterminated IF blocks", len(p.ifStack)))
	}
	for _, num := range p.tbl.Unresolved() {
		p.error(errors.Errorf("label %d never defined", num))
	}

	p.emit.BoundsStub()
	if p.unitClass != symbols.ClassBlockData {
		var result *symbols.Symbol
		if p.unitClass == symbols.ClassFunction {
			result = p.unitSym
		}
		if err := p.emit.Epilog(result); err != nil {
			p.error(err)
		}
		p.emit.FrameSize(p.tbl.FrameSize())
	}
	p.emit.StaticBlock(p.tbl.StaticSize(), p.staticImage)
	p.emit.FlushData()
	p.emit.Commons(p.tbl.Commons(), p.commonImages)

	p.lst.SymbolTable(p.tbl)
	p.lst.Report(p.errs)
	p.errs = nil

	p.tbl.EndUnit()
	p.doStack = nil
	p.ifStack = nil
	p.adjBounds = map[*symbols.Symbol][][2]*scan.Token{}
	p.adjSlots = nil
	p.inits = nil
	p.staticImage = nil
	p.commonImages = nil
	p.saveAll = false
	p.frameSize = 0
	p.staticSize = 0
	p.unitSym = nil
	p.state = StProgUnit
}

// parseLen parses an optional *len or *(*) suffix after a type word.
func parseLen(cur *scan.Cursor) (int, bool) {
	if !cur.Accept('*') {
		return types.LenDefault, true
	}
	if cur.Accept('(') {
		if cur.Accept('*') && cur.Accept(')') {
			return types.LenAssumed, true
		}
		return 0, false
	}
	n := cur.GetNumber()
	if n <= 0 {
		return 0, false
	}
	return n, true
}
