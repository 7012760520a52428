package token

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF
	// Newline ends a logical line. Line continuations never produce it.
	Newline
	// Colon separates statements on one line; also ends a line label.
	Colon

	// Ident represents an identifier token, bracketed names included.
	Ident
	// IntLit represents an integer literal, including &H and &O forms.
	IntLit
	// FloatLit represents a floating point literal.
	FloatLit
	// StringLit represents a double-quoted string literal.
	StringLit
	// DateLit represents a #...# date literal.
	DateLit

	kwStart
	KwAddressOf  // AddressOf
	KwAnd        // And
	KwAs         // As
	KwByRef      // ByRef
	KwByVal      // ByVal
	KwCall       // Call
	KwCase       // Case
	KwConst      // Const
	KwDeclare    // Declare
	KwDim        // Dim
	KwDo         // Do
	KwEach       // Each
	KwElse       // Else
	KwElseIf     // ElseIf
	KwEmpty      // Empty
	KwEnd        // End
	KwEndIf      // EndIf (legacy spelling)
	KwEnum       // Enum
	KwEqv        // Eqv
	KwErase      // Erase
	KwEvent      // Event
	KwExit       // Exit
	KwFalse      // False
	KwFor        // For
	KwFriend     // Friend
	KwFunction   // Function
	KwGlobal     // Global
	KwGoSub      // GoSub
	KwGoTo       // GoTo
	KwIf         // If
	KwImp        // Imp
	KwImplements // Implements
	KwIn         // In
	KwIs         // Is
	KwLet        // Let
	KwLike       // Like
	KwLoop       // Loop
	KwMe         // Me
	KwMod        // Mod
	KwNew        // New
	KwNext       // Next
	KwNot        // Not
	KwNothing    // Nothing
	KwNull       // Null
	KwOn         // On
	KwOption     // Option
	KwOptional   // Optional
	KwOr         // Or
	KwParamArray // ParamArray
	KwPrivate    // Private
	KwProperty   // Property
	KwPublic     // Public
	KwRaiseEvent // RaiseEvent
	KwReDim      // ReDim
	KwResume     // Resume
	KwSelect     // Select
	KwSet        // Set
	KwStatic     // Static
	KwStop       // Stop
	KwSub        // Sub
	KwThen       // Then
	KwTo         // To
	KwTrue       // True
	KwType       // Type
	KwTypeOf     // TypeOf
	KwUntil      // Until
	KwWend       // Wend
	KwWhile      // While
	KwWith       // With
	KwWithEvents // WithEvents
	KwXor        // Xor
	kwEnd

	// Plus is '+'.
	Plus
	// Minus is '-'.
	Minus
	// Star is '*'.
	Star
	// Slash is '/'.
	Slash
	// Backslash is '\' (integer division).
	Backslash
	// Caret is '^'.
	Caret
	// Amp is '&' (string concatenation).
	Amp
	// Eq is '=' (assignment and comparison).
	Eq
	// NotEq is '<>'.
	NotEq
	Lt
	LtEq
	Gt
	GtEq
	LParen
	RParen
	Comma
	Semicolon
	Dot
	// Bang is '!' used for default-member access (rs!Field).
	Bang
	// ColonEq is ':=' for named arguments.
	ColonEq
	// Hash is '#' outside a date literal (file numbers).
	Hash
)

var kindNames = map[Kind]string{
	Invalid:   "Invalid",
	EOF:       "EOF",
	Newline:   "Newline",
	Colon:     "Colon",
	Ident:     "Ident",
	IntLit:    "IntLit",
	FloatLit:  "FloatLit",
	StringLit: "StringLit",
	DateLit:   "DateLit",
	Plus:      "+",
	Minus:     "-",
	Star:      "*",
	Slash:     "/",
	Backslash: "\\",
	Caret:     "^",
	Amp:       "&",
	Eq:        "=",
	NotEq:     "<>",
	Lt:        "<",
	LtEq:      "<=",
	Gt:        ">",
	GtEq:      ">=",
	LParen:    "(",
	RParen:    ")",
	Comma:     ",",
	Semicolon: ";",
	Dot:       ".",
	Bang:      "!",
	ColonEq:   ":=",
	Hash:      "#",
}

func (k Kind) String() string {
	if k.IsKeyword() {
		return keywordSpelling[k]
	}
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// IsKeyword reports whether k is a reserved word.
func (k Kind) IsKeyword() bool {
	return k > kwStart && k < kwEnd
}
