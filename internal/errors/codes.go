package errors

// Error code constants, grouped by phase. Codes are stable identifiers tests
// assert against; Message text in a *Report may be refined freely.
const (
	// Lexer (LEX###)
	LEX001 = "LEX001" // unterminated string literal
	LEX002 = "LEX002" // invalid escape sequence
	LEX003 = "LEX003" // digit run immediately followed by identifier char
	LEX004 = "LEX004" // unknown symbol

	// Parser (PAR###)
	PAR001 = "PAR001" // missing `end`
	PAR002 = "PAR002" // unexpected token
	PAR003 = "PAR003" // invalid method name
	PAR004 = "PAR004" // duplicate variance annotation
	PAR005 = "PAR005" // setter method must have exactly one parameter
	PAR006 = "PAR006" // module cannot declare a superclass
	PAR007 = "PAR007" // invalid type expression

	// Name resolution (NAM###)
	NAM001 = "NAM001" // unknown type name
	NAM002 = "NAM002" // unknown constant
	NAM003 = "NAM003" // more than one superclass
	NAM004 = "NAM004" // superclass appears after an included module
	NAM005 = "NAM005" // final class used as superclass
	NAM006 = "NAM006" // missing required method for included module
	NAM007 = "NAM007" // cycle in superclass chain

	// Type checking (TYP###)
	TYP001 = "TYP001" // conformance failure
	TYP002 = "TYP002" // arity mismatch
	TYP003 = "TYP003" // reassignment type mismatch
	TYP004 = "TYP004" // no common ancestor for if/match branches
	TYP005 = "TYP005" // invalid return type
	TYP006 = "TYP006" // unknown method on receiver type
	TYP007 = "TYP007" // block-lambda break requires Void return type
	TYP008 = "TYP008" // method-signature mismatch against module requirement

	// Program errors (PRG###)
	PRG001 = "PRG001" // break outside loop/block
	PRG002 = "PRG002" // return inside a block-lambda (unsupported)
	PRG003 = "PRG003" // return/break outside any enclosing method/fn
	PRG004 = "PRG004" // ivar assignment outside initialize to undeclared ivar
	PRG005 = "PRG005" // ivar reassignment to a readonly ivar
	PRG006 = "PRG006" // lvar reassignment to a readonly lvar
	PRG007 = "PRG007" // re-declaration of an existing lvar via `var`
	PRG008 = "PRG008" // break inside an fn-lambda
	PRG009 = "PRG009" // non-exhaustive pattern reached at runtime
	PRG010 = "PRG010" // return from a block-lambda

	// Internal / verifier (INT###)
	INT001 = "INT001" // MIR expression type mismatch
	INT002 = "INT002" // indirect call arity mismatch
	INT003 = "INT003" // Never used as a parameter type
	INT004 = "INT004" // return expression not typed Never
	INT005 = "INT005" // vtable/wtable index out of range
	INT006 = "INT006" // CreateObject references unknown class
	INT007 = "INT007" // chapter frame size mismatch after splitting
)

// Info describes one error code's static metadata.
type Info struct {
	Code        string
	Kind        Kind
	Phase       string
	Description string
}

// Registry maps every code above to its Kind/phase/description.
var Registry = map[string]Info{
	LEX001: {LEX001, Lex, "lexer", "unterminated string literal"},
	LEX002: {LEX002, Lex, "lexer", "invalid escape sequence"},
	LEX003: {LEX003, Lex, "lexer", "digit run immediately followed by identifier character"},
	LEX004: {LEX004, Lex, "lexer", "unknown symbol"},

	PAR001: {PAR001, Parse, "parser", "missing end"},
	PAR002: {PAR002, Parse, "parser", "unexpected token"},
	PAR003: {PAR003, Parse, "parser", "invalid method name"},
	PAR004: {PAR004, Parse, "parser", "duplicate variance annotation"},
	PAR005: {PAR005, Parse, "parser", "setter must take exactly one parameter"},
	PAR006: {PAR006, Parse, "parser", "module cannot declare a superclass"},
	PAR007: {PAR007, Parse, "parser", "invalid type expression"},

	NAM001: {NAM001, Name, "typedict", "unknown type name"},
	NAM002: {NAM002, Name, "hir", "unknown constant"},
	NAM003: {NAM003, Name, "typedict", "more than one superclass"},
	NAM004: {NAM004, Name, "typedict", "superclass after included module"},
	NAM005: {NAM005, Name, "typedict", "final class used as superclass"},
	NAM006: {NAM006, Name, "typedict", "missing required method"},
	NAM007: {NAM007, Name, "typedict", "cycle in superclass chain"},

	TYP001: {TYP001, Type, "hir", "conformance failure"},
	TYP002: {TYP002, Type, "hir", "arity mismatch"},
	TYP003: {TYP003, Type, "hir", "reassignment type mismatch"},
	TYP004: {TYP004, Type, "hir", "no common ancestor"},
	TYP005: {TYP005, Type, "hir", "invalid return type"},
	TYP006: {TYP006, Type, "typedict", "unknown method"},
	TYP007: {TYP007, Type, "hir", "block with break requires Void return"},
	TYP008: {TYP008, Type, "typedict", "module requirement signature mismatch"},

	PRG001: {PRG001, Program, "hir", "break outside loop or block"},
	PRG002: {PRG002, Program, "hir", "return inside block-lambda unsupported"},
	PRG003: {PRG003, Program, "hir", "return or break with no enclosing scope"},
	PRG004: {PRG004, Program, "hir", "ivar use outside initialize"},
	PRG005: {PRG005, Program, "hir", "readonly ivar reassignment"},
	PRG006: {PRG006, Program, "hir", "readonly lvar reassignment"},
	PRG007: {PRG007, Program, "hir", "duplicate var declaration"},
	PRG008: {PRG008, Program, "hir", "break inside fn-lambda"},
	PRG009: {PRG009, Program, "eval", "non-exhaustive match"},
	PRG010: {PRG010, Program, "hir", "return from block-lambda"},

	INT001: {INT001, Internal, "verifier", "expression type mismatch"},
	INT002: {INT002, Internal, "verifier", "indirect call arity mismatch"},
	INT003: {INT003, Internal, "verifier", "Never parameter type"},
	INT004: {INT004, Internal, "verifier", "return expression not Never-typed"},
	INT005: {INT005, Internal, "verifier", "vtable/wtable index out of range"},
	INT006: {INT006, Internal, "verifier", "CreateObject unknown class"},
	INT007: {INT007, Internal, "async", "chapter frame size mismatch"},
}
