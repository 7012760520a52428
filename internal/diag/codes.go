package diag

import (
	"fmt"
)

type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0

	// Лексические
	LexInfo               Code = 1000
	LexUnknownChar        Code = 1001
	LexUnterminatedString Code = 1002
	LexBadNumber          Code = 1004
	LexTokenTooLong       Code = 1005
	LexUnterminatedDate   Code = 1006
	LexBadContinuation    Code = 1007
	LexUnterminatedName   Code = 1008

	// Парсерные
	SynInfo                Code = 2000
	SynUnexpectedToken     Code = 2001
	SynUnclosedParen       Code = 2006
	SynExpectEndOfStmt     Code = 2012
	SynExpectIn            Code = 2013
	SynExpectEquals        Code = 2018
	SynMissingEnd          Code = 2030
	SynMismatchedEnd       Code = 2031
	SynMisplacedStatement  Code = 2032
	SynBadHeader           Code = 2033
	SynExpectThen          Code = 2034
	SynExpectTo            Code = 2035
	SynExpectLib           Code = 2036
	SynModifierNotAllowed  Code = 2037
	SynExpectIdentifier    Code = 2102
	SynExpectType          Code = 2202
	SynExpectExpression    Code = 2203
	SynVariadicMustBeLast  Code = 2207
	SynOptionalBeforeParam Code = 2208
	SynInternal            Code = 2999

	// Разрешение имён
	ResInfo                 Code = 3000
	ResDuplicateDeclaration Code = 3002
	ResUnboundReference     Code = 3005
	ResNotAType             Code = 3010
	ResCircularType         Code = 3011
	ResAmbiguousName        Code = 3012
	ResUnknownMember        Code = 3013
	ResInternal             Code = 3099

	// IO
	IOLoadFileError Code = 4001
	IOWatchError    Code = 4002

	// Проект
	ProjInfo                Code = 5000
	ProjManifestInvalid     Code = 5001
	ProjDuplicateModule     Code = 5002
	ProjReferenceNotFound   Code = 5003
	ProjReferenceLoadFailed Code = 5004
)

var (
	codeDescription = map[Code]string{
		UnknownCode:           "Unknown error",
		LexInfo:               "Lexical information",
		LexUnknownChar:        "Unknown character",
		LexUnterminatedString: "Unterminated string literal",
		LexBadNumber:          "Invalid numeric literal",
		LexTokenTooLong:       "Token too long",
		LexUnterminatedDate:   "Unterminated date literal",
		LexBadContinuation:    "Line continuation must be the last token on a line",
		LexUnterminatedName:   "Unterminated bracketed identifier",

		SynInfo:                "Syntax information",
		SynUnexpectedToken:     "Unexpected token",
		SynUnclosedParen:       "Unclosed parenthesis",
		SynExpectEndOfStmt:     "Expected end of statement",
		SynExpectIn:            "Expected 'In' in For Each",
		SynExpectEquals:        "Expected '='",
		SynMissingEnd:          "Block is not closed",
		SynMismatchedEnd:       "Block closed by the wrong End statement",
		SynMisplacedStatement:  "Statement is not valid here",
		SynBadHeader:           "Malformed module header",
		SynExpectThen:          "Expected 'Then'",
		SynExpectTo:            "Expected 'To'",
		SynExpectLib:           "Expected 'Lib' in Declare statement",
		SynModifierNotAllowed:  "Modifier not allowed here",
		SynExpectIdentifier:    "Expected identifier",
		SynExpectType:          "Expected type name",
		SynExpectExpression:    "Expected expression",
		SynVariadicMustBeLast:  "ParamArray must be the last parameter",
		SynOptionalBeforeParam: "Required parameter follows an Optional parameter",
		SynInternal:            "Internal parser error",

		ResInfo:                 "Resolution information",
		ResDuplicateDeclaration: "Duplicate declaration in the same scope",
		ResUnboundReference:     "Undeclared identifier",
		ResNotAType:             "Name does not refer to a type",
		ResCircularType:         "User-defined type contains itself",
		ResAmbiguousName:        "Ambiguous name",
		ResUnknownMember:        "Member not found",
		ResInternal:             "Internal resolver failure",

		IOLoadFileError: "I/O load file error",
		IOWatchError:    "File watcher error",

		ProjInfo:                "Project information",
		ProjManifestInvalid:     "Invalid project manifest",
		ProjDuplicateModule:     "Duplicate module name",
		ProjReferenceNotFound:   "Referenced library not found",
		ProjReferenceLoadFailed: "Failed to load referenced library",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("RES%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// IsParse reports whether the code belongs to the lexer or parser ranges.
func (c Code) IsParse() bool {
	return c >= 1000 && c < 3000
}

// IsResolution reports whether the code belongs to the resolver range.
func (c Code) IsResolution() bool {
	return c >= 3000 && c < 4000
}
